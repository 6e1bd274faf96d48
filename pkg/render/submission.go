package render

import (
	"fmt"
	"sort"
	"strings"
)

// GroupIDFieldName is the hidden input carrying the rendered group id so a
// submission can be routed back to its group.
const GroupIDFieldName = "_group"

// HiddenField represents a hidden input emitted next to the compiled controls.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken constructs a hidden field carrying the provided token under the
// caller's input name ("_csrf", "csrf_token", ...).
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// GroupField returns the hidden field identifying the submitted group.
func GroupField(groupID int64) HiddenField {
	return Hidden(GroupIDFieldName, groupID)
}

// MergeHiddenFields returns a copy of base with fields applied. Blank names are
// ignored; later fields win on collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		out[field.Name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields returns hidden fields ordered by name.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}

	result := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		result = append(result, HiddenField{Name: key, Value: value})
	}
	if len(result) == 0 {
		return nil
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
