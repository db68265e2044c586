package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"evera/pkg/email"
	platformstrings "evera/pkg/platform/strings"
)

// State is the session state machine position.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Credential is the bearer token pair granted by the backend.
type Credential struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Present reports whether an access token is held.
func (c Credential) Present() bool {
	return c.AccessToken != ""
}

// Claims decodes the access token's payload without verifying its signature.
// The backend owns verification; the client only reads the claims for display.
func (c Credential) Claims() (jwt.MapClaims, bool) {
	if !c.Present() {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExpiresAt returns the access token's exp claim when the token is a JWT
// carrying one.
func (c Credential) ExpiresAt() (time.Time, bool) {
	claims, ok := c.Claims()
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Role is one entry of a profile's role set.
type Role struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

// Key is the value used for authorization comparisons: the code, or the name
// when no code is set, lower-cased.
func (r Role) Key() string {
	if r.Code != "" {
		return strings.ToLower(r.Code)
	}
	return strings.ToLower(r.Name)
}

// Profile describes the signed-in user. Every field may be absent until the
// backend populates it.
type Profile struct {
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email,omitempty"`
	Username    string   `json:"username,omitempty"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Status      string   `json:"status,omitempty"`
	Roles       []Role   `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// IsZero reports whether no attribute has been populated.
func (p Profile) IsZero() bool {
	return p.ID == "" && p.Email == "" && p.Username == "" && p.FirstName == "" &&
		p.LastName == "" && p.Avatar == "" && p.Status == "" &&
		len(p.Roles) == 0 && len(p.Permissions) == 0
}

// HasRole compares role codes case-insensitively.
func (p Profile) HasRole(code string) bool {
	want := strings.ToLower(code)
	for _, r := range p.Roles {
		if r.Key() == want {
			return true
		}
	}
	return false
}

// RoleKeys lists the profile's role keys without duplicates.
func (p Profile) RoleKeys() []string {
	keys := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		keys = append(keys, r.Key())
	}
	return platformstrings.CompactFold(keys)
}

// DisplayName prefers the profile names, then the username, then a name
// derived from the email's local part.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	if p.Email != "" {
		first, last := email.DeriveName(p.Email)
		return strings.TrimSpace(first + " " + last)
	}
	return ""
}

// Snapshot is the persisted form of the session: the namespace key's value.
// The layout matches what earlier releases of the client wrote, so existing
// sessions survive an upgrade.
type Snapshot struct {
	State   SnapshotState `json:"state"`
	Version int           `json:"version"`
}

// SnapshotState holds the two persisted fields.
type SnapshotState struct {
	Profile    Profile    `json:"userInfo"`
	Credential Credential `json:"userToken"`
}
