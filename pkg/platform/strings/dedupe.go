// Package strings holds slice helpers for string sets received from the
// backend.
package strings

import "strings"

// Compact trims every element, drops empty ones and removes duplicates,
// keeping first-seen order. A nil slice stays nil.
//
//	Compact([]string{" users:read", "users:read", ""}) // []string{"users:read"}
func Compact(values []string) []string {
	return compact(values, false)
}

// CompactFold is Compact with elements lower-cased first, for codes that
// compare case-insensitively.
func CompactFold(values []string) []string {
	return compact(values, true)
}

func compact(values []string, fold bool) []string {
	if values == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
