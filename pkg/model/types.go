package model

// FieldType enumerates the input kinds a field definition can take.
type FieldType string

const (
	FieldTypeSingleLineText  FieldType = "single-line-text"
	FieldTypeMultiLineText   FieldType = "multi-line-text"
	FieldTypeInteger         FieldType = "integer"
	FieldTypeDate            FieldType = "date"
	FieldTypeTime            FieldType = "time"
	FieldTypeDateTime        FieldType = "datetime"
	FieldTypeDropdown        FieldType = "dropdown"
	FieldTypeSingleSelection FieldType = "single-selection"
	FieldTypeMultiSelection  FieldType = "multi-selection"
	FieldTypeUpload          FieldType = "upload"
)

var fieldTypes = []FieldType{
	FieldTypeSingleLineText,
	FieldTypeMultiLineText,
	FieldTypeInteger,
	FieldTypeDate,
	FieldTypeTime,
	FieldTypeDateTime,
	FieldTypeDropdown,
	FieldTypeSingleSelection,
	FieldTypeMultiSelection,
	FieldTypeUpload,
}

// FieldTypes returns every known field type in palette order.
func FieldTypes() []FieldType {
	return append([]FieldType(nil), fieldTypes...)
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	for _, known := range fieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsSelection reports whether the type draws its values from Options.
func (t FieldType) IsSelection() bool {
	switch t {
	case FieldTypeDropdown, FieldTypeSingleSelection, FieldTypeMultiSelection:
		return true
	default:
		return false
	}
}

// FieldDefinition describes a single typed input inside a group. Options are
// only meaningful for selection types and are ignored otherwise.
type FieldDefinition struct {
	ID           int64     `json:"id" yaml:"id"`
	Type         FieldType `json:"type" yaml:"type" validate:"required,fieldtype"`
	Label        string    `json:"label" yaml:"label" validate:"required"`
	Required     bool      `json:"required" yaml:"required"`
	Placeholder  string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	DefaultValue any       `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Options      []string  `json:"options,omitempty" yaml:"options,omitempty"`
}

// Clone returns a copy that shares no slices with f.
func (f FieldDefinition) Clone() FieldDefinition {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	return out
}

// FieldGroup is a named, ordered collection of field definitions. Element
// order is the on-screen and on-submit order.
type FieldGroup struct {
	ID          int64             `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name" validate:"required"`
	Description string            `json:"description" yaml:"description"`
	Elements    []FieldDefinition `json:"elements" yaml:"elements" validate:"dive"`
}

// Clone deep-copies the group so callers can mutate the result freely.
func (g FieldGroup) Clone() FieldGroup {
	out := g
	out.Elements = CloneElements(g.Elements)
	return out
}

// IndexOf returns the position of the element with the given id or -1.
func (g FieldGroup) IndexOf(elementID int64) int {
	for idx, element := range g.Elements {
		if element.ID == elementID {
			return idx
		}
	}
	return -1
}

// Element returns the element with the given id.
func (g FieldGroup) Element(elementID int64) (FieldDefinition, bool) {
	idx := g.IndexOf(elementID)
	if idx < 0 {
		return FieldDefinition{}, false
	}
	return g.Elements[idx], true
}

// CloneElements copies a slice of field definitions. A nil input yields an
// empty, non-nil slice so encoded groups always carry an `elements` array.
func CloneElements(elements []FieldDefinition) []FieldDefinition {
	out := make([]FieldDefinition, len(elements))
	for idx, element := range elements {
		out[idx] = element.Clone()
	}
	return out
}

// CloneGroups deep-copies a slice of groups.
func CloneGroups(groups []FieldGroup) []FieldGroup {
	out := make([]FieldGroup, len(groups))
	for idx, group := range groups {
		out[idx] = group.Clone()
	}
	return out
}
