package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

func sampleForm() *compiler.Form {
	return compiler.Compile(model.FieldGroup{ID: 1, Name: "Contact", Elements: []model.FieldDefinition{
		{ID: 7, Type: model.FieldTypeSingleLineText, Label: "Email", Required: true},
		{ID: 8, Type: model.FieldTypeMultiSelection, Label: "Topics", Options: []string{"a", "b"}},
		{ID: 9, Type: model.FieldTypeUpload, Label: "Avatar"},
	}})
}

func TestMapErrorPayload_KeySpellings(t *testing.T) {
	payload := map[string][]string{
		"field-7":          {"Email invalid"},
		"/field-8":         {" Pick one ", "Pick one"},
		"9":                {"Too large"},
		"#/field-7":        {"Already taken"},
		"body.values[8]":   {"Unknown topic"},
		"non_field_errors": {"Form level error"},
		"field-99":         {"Should fall back to form errors"},
		"":                 {"Unscoped form error"},
	}

	mapped := render.MapErrorPayload(sampleForm(), payload)

	wantFields := map[string][]string{
		"field-7": {"Email invalid", "Already taken"},
		"field-8": {"Pick one", "Unknown topic"},
		"field-9": {"Too large"},
	}
	sortStrings := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff(wantFields, mapped.Fields, sortStrings); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Form level error", "Should fall back to form errors", "Unscoped form error"}
	if diff := cmp.Diff(wantForm, mapped.Form, sortStrings); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorPayload_Empty(t *testing.T) {
	mapped := render.MapErrorPayload(sampleForm(), nil)
	if mapped.Fields != nil || mapped.Form != nil {
		t.Fatalf("expected empty mapping, got %#v", mapped)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
