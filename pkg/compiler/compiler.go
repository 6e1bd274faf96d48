// Package compiler turns a field group into a runtime form: one control per
// element with a type-dependent default value and an inferred validator set.
//
// Compilation is a pure function of the group value. Forms are rebuilt from
// scratch whenever the source group changes; values are never carried over.
package compiler

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// ValidatorKind names a validation rule attached to a control.
type ValidatorKind string

const (
	ValidatorRequired ValidatorKind = "required"
	ValidatorEmail    ValidatorKind = "well-formed-email"
)

const keyPrefix = "field-"

// ControlKey returns the form key for an element id.
func ControlKey(fieldID int64) string {
	return keyPrefix + strconv.FormatInt(fieldID, 10)
}

// ParseControlKey extracts the element id from a control key.
func ParseControlKey(key string) (int64, bool) {
	raw, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Control is the runtime state of one field.
type Control struct {
	Key         string          `json:"key"`
	FieldID     int64           `json:"fieldId"`
	Type        model.FieldType `json:"type"`
	Label       string          `json:"label"`
	Placeholder string          `json:"placeholder,omitempty"`
	Required    bool            `json:"required"`
	Options     []string        `json:"options,omitempty"`
	Validators  []ValidatorKind `json:"validators"`
	Value       any             `json:"value"`
	Touched     bool            `json:"touched"`
	Errors      []string        `json:"errors,omitempty"`
}

// HasValidator reports whether kind is attached to the control.
func (c Control) HasValidator(kind ValidatorKind) bool {
	for _, v := range c.Validators {
		if v == kind {
			return true
		}
	}
	return false
}

// Compile builds a fresh form for the group.
func Compile(group model.FieldGroup) *Form {
	form := &Form{
		GroupID:     group.ID,
		Name:        group.Name,
		Description: group.Description,
		controls:    make([]*Control, 0, len(group.Elements)),
		index:       make(map[string]int, len(group.Elements)),
	}
	for _, field := range group.Elements {
		control := &Control{
			Key:         ControlKey(field.ID),
			FieldID:     field.ID,
			Type:        field.Type,
			Label:       field.Label,
			Placeholder: field.Placeholder,
			Required:    field.Required,
			Validators:  InferValidators(field),
			Value:       DefaultValue(field.Type),
		}
		if field.Type.IsSelection() {
			control.Options = append([]string{}, field.Options...)
		}
		form.index[control.Key] = len(form.controls)
		form.controls = append(form.controls, control)
	}
	return form
}

// DefaultValue returns the initial value for a control of type t.
func DefaultValue(t model.FieldType) any {
	switch t {
	case model.FieldTypeMultiSelection:
		return []string{}
	case model.FieldTypeInteger, model.FieldTypeDate, model.FieldTypeTime,
		model.FieldTypeDateTime, model.FieldTypeUpload:
		return nil
	default:
		return ""
	}
}

// InferValidators derives the validator set from the field's current
// properties. The email rule is inferred from label and placeholder text.
func InferValidators(field model.FieldDefinition) []ValidatorKind {
	validators := make([]ValidatorKind, 0, 2)
	if field.Required {
		validators = append(validators, ValidatorRequired)
	}
	if mentionsEmail(field.Label) || mentionsEmail(field.Placeholder) {
		validators = append(validators, ValidatorEmail)
	}
	return validators
}

func mentionsEmail(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "email") || strings.Contains(lower, "e-mail")
}
