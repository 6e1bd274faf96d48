// Package validation checks field groups for structural problems before they
// reach the store, and turns JSON Schema results into the same issue shape.
package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// SchemaIssue represents a validation error with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures validation outcomes.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// Error joins the issues into one message.
func (r SchemaValidationResult) Error() string {
	if r.Valid || len(r.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if issue.Field != "" {
			parts = append(parts, issue.Field+": "+issue.Message)
			continue
		}
		parts = append(parts, issue.Message)
	}
	return strings.Join(parts, "; ")
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
		return model.FieldType(fl.Field().String()).Valid()
	})
	return v
}

// ValidateGroup checks a single group. Paths are JSON pointers relative to
// the group.
func ValidateGroup(group model.FieldGroup) SchemaValidationResult {
	return finish(groupIssues(group, ""))
}

// ValidateGroups checks a group list, including id uniqueness across
// groups. Paths are JSON pointers relative to the list.
func ValidateGroups(groups []model.FieldGroup) SchemaValidationResult {
	issues := groupIDIssues(groups)
	for idx, group := range groups {
		issues = append(issues, groupIssues(group, "/"+strconv.Itoa(idx))...)
	}
	return finish(issues)
}

// UniqueGroupIDs reports every group whose id repeats an earlier one.
func UniqueGroupIDs(groups []model.FieldGroup) SchemaValidationResult {
	return finish(groupIDIssues(groups))
}

func groupIDIssues(groups []model.FieldGroup) []SchemaIssue {
	var issues []SchemaIssue
	seen := make(map[int64]int, len(groups))
	for idx, group := range groups {
		if first, dup := seen[group.ID]; dup {
			issues = append(issues, newIssue("/"+strconv.Itoa(idx)+"/id", fmt.Sprintf("duplicate group id %d (also at index %d)", group.ID, first)))
			continue
		}
		seen[group.ID] = idx
	}
	return issues
}

func groupIssues(group model.FieldGroup, prefix string) []SchemaIssue {
	var issues []SchemaIssue

	if err := structValidator.Struct(group); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				issues = append(issues, newIssue(prefix+namespaceToPointer(fe.Namespace()), messageFor(fe)))
			}
		} else {
			issues = append(issues, newIssue(prefix, err.Error()))
		}
	}

	if group.Name != "" && strings.TrimSpace(group.Name) == "" {
		issues = append(issues, newIssue(prefix+"/name", "is required"))
	}

	seen := make(map[int64]int, len(group.Elements))
	for idx, element := range group.Elements {
		path := prefix + "/elements/" + strconv.Itoa(idx)
		if first, dup := seen[element.ID]; dup {
			issues = append(issues, newIssue(path+"/id", fmt.Sprintf("duplicate element id %d (also at index %d)", element.ID, first)))
		} else {
			seen[element.ID] = idx
		}
		if element.Label != "" && strings.TrimSpace(element.Label) == "" {
			issues = append(issues, newIssue(path+"/label", "is required"))
		}
		if element.Type.IsSelection() && len(nonBlank(element.Options)) == 0 {
			issues = append(issues, newIssue(path+"/options", "selection fields need at least one option"))
		}
	}
	return issues
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "fieldtype":
		return fmt.Sprintf("unknown field type %q", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

func newIssue(path, message string) SchemaIssue {
	return SchemaIssue{Path: path, Field: fieldPathFromPointer(path), Message: message}
}

func finish(issues []SchemaIssue) SchemaValidationResult {
	if len(issues) == 0 {
		return SchemaValidationResult{Valid: true}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return SchemaValidationResult{Valid: false, Issues: issues}
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

// namespaceToPointer turns "FieldGroup.elements[1].label" into
// "/elements/1/label".
func namespaceToPointer(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return ""
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	rest = strings.ReplaceAll(rest, "]", "")
	return "/" + strings.ReplaceAll(rest, ".", "/")
}

// fieldPathFromPointer turns "/0/elements/1/label" into "0.elements.1.label".
func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimSpace(pointer)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.ReplaceAll(part, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		if segment == "" {
			continue
		}
		out = append(out, segment)
	}
	return strings.Join(out, ".")
}
