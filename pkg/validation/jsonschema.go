package validation

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FromJSONSchema converts a gojsonschema result into a validation result.
// Context paths such as "(root).formGroups.0.name" become JSON pointers.
func FromJSONSchema(result *gojsonschema.Result) SchemaValidationResult {
	if result == nil || result.Valid() {
		return SchemaValidationResult{Valid: true}
	}
	issues := make([]SchemaIssue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		path := contextToPointer(desc)
		issues = append(issues, SchemaIssue{
			Path:    path,
			Field:   fieldPathFromPointer(path),
			Message: strings.TrimSpace(desc.Description()),
		})
	}
	return finish(issues)
}

func contextToPointer(desc gojsonschema.ResultError) string {
	var raw string
	if ctx := desc.Context(); ctx != nil {
		raw = ctx.String()
	}
	raw = strings.TrimPrefix(raw, "(root)")
	raw = strings.TrimPrefix(raw, ".")

	// required errors report the parent; append the missing property.
	if desc.Type() == "required" {
		if property, ok := desc.Details()["property"].(string); ok && property != "" {
			if raw == "" {
				raw = property
			} else {
				raw += "." + property
			}
		}
	}
	if raw == "" {
		return ""
	}
	return "/" + strings.ReplaceAll(raw, ".", "/")
}
