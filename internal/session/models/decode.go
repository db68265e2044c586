package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UnmarshalJSON reads a user record as the backend sends it. Backends differ
// in field types: ids and status may be numbers, roles and permissions may be
// strings or objects. Fields that fit none of the accepted forms are left
// empty. Only a record that is not a JSON object is an error.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("user record: %w", err)
	}
	if raw == nil {
		return nil
	}
	*p = Profile{
		ID:          scalarString(raw["id"]),
		Email:       scalarString(raw["email"]),
		Username:    scalarString(raw["username"]),
		FirstName:   scalarString(raw["firstName"]),
		LastName:    scalarString(raw["lastName"]),
		Avatar:      scalarString(raw["avatar"]),
		Status:      scalarString(raw["status"]),
		Roles:       decodeRoles(raw["roles"]),
		Permissions: decodePermissions(raw["permissions"]),
	}
	return nil
}

// UnmarshalJSON accepts a role object or a bare role code.
func (r *Role) UnmarshalJSON(data []byte) error {
	var v any
	if err := decodeNumber(data, &v); err != nil {
		return fmt.Errorf("role: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return nil
	case string, json.Number:
		*r = Role{Code: scalarString(data)}
		return nil
	case map[string]any:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("role: %w", err)
		}
		*r = Role{
			ID:   scalarString(raw["id"]),
			Name: scalarString(raw["name"]),
			Code: scalarString(raw["code"]),
		}
		return nil
	default:
		return fmt.Errorf("role: unexpected %T", t)
	}
}

func decodeRoles(raw json.RawMessage) []Role {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var roles []Role
	for _, item := range items {
		var r Role
		if err := json.Unmarshal(item, &r); err != nil || r == (Role{}) {
			continue
		}
		roles = append(roles, r)
	}
	return roles
}

// decodePermissions keeps permission codes; object entries contribute their
// code, or their name when no code is set.
func decodePermissions(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var codes []string
	for _, item := range items {
		code := scalarString(item)
		if code == "" {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(item, &fields); err == nil {
				code = scalarString(fields["code"])
				if code == "" {
					code = scalarString(fields["name"])
				}
			}
		}
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// scalarString renders a JSON string, number or boolean as text. Anything
// else, including null, yields "".
func scalarString(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var v any
	if err := decodeNumber(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func decodeNumber(data []byte, v *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
