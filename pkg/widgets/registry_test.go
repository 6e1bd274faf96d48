package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

func TestResolve_OverrideWins(t *testing.T) {
	reg := NewRegistry()
	reg.Override(7, "signature-pad")

	control := compiler.Control{FieldID: 7, Type: model.FieldTypeUpload}
	if got, ok := reg.Resolve(control); !ok || got != "signature-pad" {
		t.Fatalf("expected override to win, got %q (ok=%v)", got, ok)
	}

	reg.Override(7, "")
	if got, _ := reg.Resolve(control); got != WidgetFileUpload {
		t.Fatalf("expected matcher after clearing override, got %q", got)
	}
}

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name    string
		control compiler.Control
		expect  string
	}{
		{
			name:    "plain text",
			control: compiler.Control{Type: model.FieldTypeSingleLineText},
			expect:  WidgetTextInput,
		},
		{
			name: "email text",
			control: compiler.Control{
				Type:       model.FieldTypeSingleLineText,
				Validators: []compiler.ValidatorKind{compiler.ValidatorEmail},
			},
			expect: WidgetEmail,
		},
		{
			name: "email label on textarea stays textarea",
			control: compiler.Control{
				Type:       model.FieldTypeMultiLineText,
				Validators: []compiler.ValidatorKind{compiler.ValidatorEmail},
			},
			expect: WidgetTextarea,
		},
		{name: "integer", control: compiler.Control{Type: model.FieldTypeInteger}, expect: WidgetNumber},
		{name: "date", control: compiler.Control{Type: model.FieldTypeDate}, expect: WidgetDatePicker},
		{name: "time", control: compiler.Control{Type: model.FieldTypeTime}, expect: WidgetTimePicker},
		{name: "datetime", control: compiler.Control{Type: model.FieldTypeDateTime}, expect: WidgetDateTimePicker},
		{name: "dropdown", control: compiler.Control{Type: model.FieldTypeDropdown}, expect: WidgetSelect},
		{name: "single", control: compiler.Control{Type: model.FieldTypeSingleSelection}, expect: WidgetRadioGroup},
		{name: "multi", control: compiler.Control{Type: model.FieldTypeMultiSelection}, expect: WidgetCheckboxGroup},
		{name: "upload", control: compiler.Control{Type: model.FieldTypeUpload}, expect: WidgetFileUpload},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := reg.Resolve(tc.control)
			if !ok {
				t.Fatalf("expected resolution for %s", tc.name)
			}
			if got != tc.expect {
				t.Fatalf("resolve %s: want %q, got %q", tc.name, tc.expect, got)
			}
		})
	}
}

func TestResolve_PriorityOverride(t *testing.T) {
	reg := NewRegistry()
	reg.Register("custom", 999, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeInteger
	})

	got, ok := reg.Resolve(compiler.Control{Type: model.FieldTypeInteger})
	if !ok || got != "custom" {
		t.Fatalf("priority matcher should win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_EmptyRegistry(t *testing.T) {
	var reg Registry
	if _, ok := reg.Resolve(compiler.Control{Type: model.FieldTypeInteger}); ok {
		t.Fatalf("empty registry must not resolve")
	}
}

func TestAssign(t *testing.T) {
	reg := NewRegistry()
	form := compiler.Compile(model.FieldGroup{ID: 1, Name: "g", Elements: []model.FieldDefinition{
		{ID: 1, Type: model.FieldTypeSingleLineText, Label: "Work email"},
		{ID: 2, Type: model.FieldTypeUpload, Label: "CV"},
	}})

	want := map[string]string{"field-1": WidgetEmail, "field-2": WidgetFileUpload}
	if diff := cmp.Diff(want, reg.Assign(form.Controls())); diff != "" {
		t.Fatalf("widgets mismatch (-want +got):\n%s", diff)
	}
}
