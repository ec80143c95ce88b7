package recommendation

import (
	"strings"
)

// nameFieldPreference is the ordered list of alternative name keys seen
// across catalog imports; the first non-empty one wins
var nameFieldPreference = []string{"name", "ingredient_name", "ingredientName", "title", "label"}

// listFieldPreference is the conventional wrapper keys a single-object
// ingredient field may carry
var listFieldPreference = []string{"ingredients_list", "benefits_list", "list", "items", "values"}

// NormalizeField flattens an arbitrarily-shaped catalog field into a
// lower-cased list of names. The catalog was populated by several
// imports with no shared schema, so this is the one place shape
// tolerance lives; everything downstream sees a flat []string.
//
// Handled shapes: absent/null, list of strings, list of objects with
// one of several name keys, a single object wrapping a list, a bare
// string. Anything else normalizes to an empty list, never an error.
func NormalizeField(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case string:
		if s := strings.ToLower(strings.TrimSpace(v)); s != "" {
			return []string{s}
		}
		return []string{}
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.ToLower(strings.TrimSpace(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				if s := strings.ToLower(strings.TrimSpace(entry)); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if name := firstNameField(entry); name != "" {
					out = append(out, name)
				}
			}
		}
		return out
	case map[string]any:
		for _, key := range listFieldPreference {
			if inner, ok := v[key]; ok {
				return NormalizeField(inner)
			}
		}
		// a single object may itself be one named entry
		if name := firstNameField(v); name != "" {
			return []string{name}
		}
		return []string{}
	default:
		// numbers, booleans and other surprises are non-fatal
		return []string{}
	}
}

func firstNameField(entry map[string]any) string {
	for _, key := range nameFieldPreference {
		if raw, ok := entry[key]; ok {
			if s, ok := raw.(string); ok {
				if name := strings.ToLower(strings.TrimSpace(s)); name != "" {
					return name
				}
			}
		}
	}
	return ""
}
