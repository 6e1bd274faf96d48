// Package testsupport holds fixtures and golden helpers shared by package
// tests.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// ContactGroup returns a group exercising a text, email, selection and upload
// field.
func ContactGroup() model.FieldGroup {
	return model.FieldGroup{
		ID:          1,
		Name:        "Contact",
		Description: "Reach out to <b>us</b>",
		Elements: []model.FieldDefinition{
			{ID: 1, Type: model.FieldTypeSingleLineText, Label: "Full name", Required: true, Placeholder: "Ada Lovelace"},
			{ID: 2, Type: model.FieldTypeSingleLineText, Label: "Email", Required: true},
			{ID: 3, Type: model.FieldTypeDropdown, Label: "Topic", Options: []string{"Sales", "Support"}},
			{ID: 4, Type: model.FieldTypeMultiLineText, Label: "Message"},
			{ID: 5, Type: model.FieldTypeUpload, Label: "Attachment"},
		},
	}
}

// SurveyGroup returns a group exercising every non-text field type.
func SurveyGroup() model.FieldGroup {
	return model.FieldGroup{
		ID:   2,
		Name: "Survey",
		Elements: []model.FieldDefinition{
			{ID: 6, Type: model.FieldTypeInteger, Label: "Age"},
			{ID: 7, Type: model.FieldTypeDate, Label: "Birthday"},
			{ID: 8, Type: model.FieldTypeTime, Label: "Preferred time"},
			{ID: 9, Type: model.FieldTypeDateTime, Label: "Appointment"},
			{ID: 10, Type: model.FieldTypeSingleSelection, Label: "Rating", Options: []string{"Good", "Bad"}, Required: true},
			{ID: 11, Type: model.FieldTypeMultiSelection, Label: "Channels", Options: []string{"Email", "Phone"}},
		},
	}
}

// Groups returns both fixture groups.
func Groups() []model.FieldGroup {
	return []model.FieldGroup{ContactGroup(), SurveyGroup()}
}

// NewStore returns an in-memory store seeded with groups.
func NewStore(t *testing.T, groups ...model.FieldGroup) *store.Store {
	t.Helper()

	s := store.New()
	if len(groups) > 0 {
		s.ReplaceAll(groups)
	}
	return s
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput runs render against a buffer and returns both the
// returned string and what was written.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
