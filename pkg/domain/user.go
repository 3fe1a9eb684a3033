package domain

import (
	"fmt"
	"sort"
)

// User is the identity record returned by the API. Its shape is owned by the
// server, so it is kept as a generic JSON object.
type User map[string]any

// String returns the field as a string, or "" when missing or not a scalar.
func (u User) String(key string) string {
	v, ok := u[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	}
	return ""
}

// Username returns the best display handle for the user.
func (u User) Username() string {
	for _, k := range []string{"username", "display_name", "email", "id"} {
		if s := u.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Keys returns the record's field names in sorted order.
func (u User) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
