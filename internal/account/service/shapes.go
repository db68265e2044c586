package service

import (
	"bytes"
	"context"
	"encoding/json"

	"evera/internal/account/models"
	session "evera/internal/session/models"
	dErrors "evera/pkg/domain-errors"
)

// ErrNoAccessToken means the backend accepted the request but no known
// response shape carried a token.
var ErrNoAccessToken = dErrors.New(dErrors.CodeInvalidResponse, "No access token received from server")

// authFields is the token-bearing record every shape reduces to.
type authFields struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
}

// authShape reads one backend response layout. It reports false when the
// layout does not apply or carries no token.
type authShape func(body map[string]json.RawMessage) (authFields, bool)

// authShapes are tried in order; the first to yield a token wins.
var authShapes = []authShape{
	envelopedShape,
	flatShape,
	bareShape,
}

// envelopedShape: {success, data: {user, token, refreshToken}}.
func envelopedShape(body map[string]json.RawMessage) (authFields, bool) {
	var success bool
	if err := json.Unmarshal(body["success"], &success); err != nil || !success {
		return authFields{}, false
	}
	var f authFields
	if err := json.Unmarshal(body["data"], &f); err != nil {
		return authFields{}, false
	}
	return f, f.Token != ""
}

// flatShape: {user, token, refreshToken}.
func flatShape(body map[string]json.RawMessage) (authFields, bool) {
	if !present(body["user"]) {
		return authFields{}, false
	}
	return bareShape(body)
}

// bareShape: the body is the data record itself; only the token is required.
func bareShape(body map[string]json.RawMessage) (authFields, bool) {
	var f authFields
	if err := json.Unmarshal(body["token"], &f.Token); err != nil || f.Token == "" {
		return authFields{}, false
	}
	if present(body["refreshToken"]) {
		_ = json.Unmarshal(body["refreshToken"], &f.RefreshToken)
	}
	f.User = body["user"]
	return f, true
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// extractAuth reduces a sign-in or sign-up payload to the fields of the first
// shape that carries a token.
func extractAuth(payload json.RawMessage) (authFields, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return authFields{}, ErrNoAccessToken
	}

	for _, shape := range authShapes {
		if f, ok := shape(body); ok {
			return f, nil
		}
	}
	return authFields{}, ErrNoAccessToken
}

// authResult builds the session values from matched fields. A user record
// that cannot be read leaves the profile empty; the token still counts.
func (s *Service) authResult(ctx context.Context, f authFields) *models.AuthResult {
	result := &models.AuthResult{
		Credential: session.Credential{AccessToken: f.Token, RefreshToken: f.RefreshToken},
	}
	if !present(f.User) {
		return result
	}
	if err := json.Unmarshal(f.User, &result.Profile); err != nil {
		s.logger.WarnContext(ctx, "ignoring unreadable user record", "error", err)
		result.Profile = session.Profile{}
	}
	return result
}
