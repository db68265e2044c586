package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// User-facing messages.
const (
	MsgGeneric        = "Something went wrong. Please try again."
	MsgRequestFailed  = "The request failed. Please try again later."
	MsgDuplicateEmail = "An account with this email already exists. Please use a different email or try logging in."
	MsgWeakPassword   = "Password is too weak. Please use a stronger password with at least 8 characters."
	MsgInvalidEmail   = "Please enter a valid email address."
	MsgMissingFields  = "Please fill in all required fields."
	MsgVerifyEmail    = "Please verify your email address before logging in. Check your inbox for a verification link."
	MsgAccountLocked  = "Your account has been temporarily locked due to too many failed login attempts. Please try again in 30 minutes."
	MsgRateLimited    = "Too many login attempts. Please wait 15 minutes before trying again."
	MsgLinkExpired    = "This link has expired. Please request a new password reset link."
	MsgLinkInvalid    = "This link is invalid. Please request a new password reset link."
	MsgInvalidData    = "Invalid data provided. Please check your information and try again."
	MsgAuthFailed     = "Authentication failed. Please check your credentials."
	MsgAccessDenied   = "Access denied. You don't have permission to perform this action."
	MsgNotFound       = "The requested resource was not found."
	MsgValidation     = "Validation failed. Please check your input and try again."
	MsgServerError    = "Server error. Please try again later."
)

// messageRule rewrites a backend message that matches known validation
// phrasing. The table matches case-sensitive substrings of free text the
// backend never promised to keep stable; treat it as a best-effort shim.
type messageRule struct {
	match       func(msg string) bool
	replacement string
}

func containsAll(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if !strings.Contains(msg, w) {
				return false
			}
		}
		return true
	}
}

func containsAny(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

func both(a, b func(string) bool) func(string) bool {
	return func(msg string) bool { return a(msg) && b(msg) }
}

// First match wins.
var messageRules = []messageRule{
	{containsAll("email", "already"), MsgDuplicateEmail},
	{containsAll("password", "weak"), MsgWeakPassword},
	{containsAll("email", "invalid"), MsgInvalidEmail},
	{containsAll("required"), MsgMissingFields},
	{both(containsAll("email"), containsAny("verify", "verification")), MsgVerifyEmail},
	{both(containsAll("account"), containsAny("lock", "locked")), MsgAccountLocked},
	{containsAll("rate", "limit"), MsgRateLimited},
	{containsAll("token", "expired"), MsgLinkExpired},
	{containsAll("token", "invalid"), MsgLinkInvalid},
}

// TranslateMessage maps a backend message to its friendlier form, or returns
// it unchanged when no rule matches.
func TranslateMessage(msg string) string {
	for _, rule := range messageRules {
		if rule.match(msg) {
			return rule.replacement
		}
	}
	return msg
}

var statusMessages = map[int]string{
	http.StatusBadRequest:          MsgInvalidData,
	http.StatusUnauthorized:        MsgAuthFailed,
	http.StatusForbidden:           MsgAccessDenied,
	http.StatusNotFound:            MsgNotFound,
	http.StatusConflict:            MsgDuplicateEmail,
	http.StatusUnprocessableEntity: MsgValidation,
	http.StatusInternalServerError: MsgServerError,
}

// StatusMessage maps an HTTP status to a message for responses without a
// body. transportMsg is used for unlisted statuses when non-empty.
func StatusMessage(status int, transportMsg string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	if transportMsg != "" {
		return transportMsg
	}
	return MsgGeneric
}

// TranslateError produces the one user-facing string for a non-2xx response.
//
// Precedence: a string body verbatim; the message field through the rule
// table; the error field; a list body joined; the errors map flattened; and
// with no body at all, the status table.
func TranslateError(status int, body []byte, transportMsg string) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return StatusMessage(status, transportMsg)
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(body)
	}
	if !truthy(decoded) {
		return StatusMessage(status, transportMsg)
	}

	switch v := decoded.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"]; ok && truthy(msg) {
			if s, isString := msg.(string); isString {
				return TranslateMessage(s)
			}
			return stringify(msg)
		}
		if e, ok := v["error"]; ok && truthy(e) {
			return stringify(e)
		}
		if errs, ok := v["errors"]; ok && truthy(errs) {
			if joined, ok := flattenErrors(trimmed); ok {
				return joined
			}
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok && truthy(m["message"]) {
				parts = append(parts, stringify(m["message"]))
				continue
			}
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	}
	return MsgGeneric
}

// flattenErrors joins every message under the body's "errors" field, keeping
// the field order of the document.
func flattenErrors(body []byte) (string, bool) {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	raw := bytes.TrimSpace(envelope.Errors)
	if len(raw) == 0 {
		return "", false
	}

	var values []any
	switch raw[0] {
	case '{':
		dec := json.NewDecoder(bytes.NewReader(raw))
		if _, err := dec.Token(); err != nil {
			return "", false
		}
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return "", false
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return "", false
			}
			values = append(values, v)
		}
	case '[':
		if err := json.Unmarshal(raw, &values); err != nil {
			return "", false
		}
	default:
		return "", false
	}

	var parts []string
	for _, v := range values {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				parts = append(parts, stringify(item))
			}
			continue
		}
		parts = append(parts, stringify(v))
	}
	return strings.Join(parts, ", "), true
}

// truthy follows the loose falsiness the backend's clients rely on: null,
// false, 0 and "" count as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
