package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDragPayload is returned when a palette drop cannot be decoded.
var ErrInvalidDragPayload = errors.New("model: invalid drag payload")

// PaletteEntry is one draggable field kind offered by the palette.
type PaletteEntry struct {
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}

// PaletteCategory groups palette entries under a heading.
type PaletteCategory struct {
	Name    string         `json:"name"`
	Entries []PaletteEntry `json:"elements"`
}

var palette = []PaletteCategory{
	{
		Name: "TEXT",
		Entries: []PaletteEntry{
			{Type: FieldTypeSingleLineText, Label: "Single Line Text", Description: "Single text area"},
			{Type: FieldTypeMultiLineText, Label: "Multi Line Text", Description: "Multi text area"},
			{Type: FieldTypeInteger, Label: "Integer", Description: "Integer type area"},
		},
	},
	{
		Name: "DATE",
		Entries: []PaletteEntry{
			{Type: FieldTypeDate, Label: "Date", Description: "Select date from datepicker"},
			{Type: FieldTypeTime, Label: "Time", Description: "Select time from timepicker"},
			{Type: FieldTypeDateTime, Label: "Date & Time", Description: "Select date & time from picker"},
		},
	},
	{
		Name: "MULTI",
		Entries: []PaletteEntry{
			{Type: FieldTypeSingleSelection, Label: "Single Selection", Description: "Select single option"},
			{Type: FieldTypeMultiSelection, Label: "Multi Selection", Description: "Select multiple options"},
			{Type: FieldTypeDropdown, Label: "Dropdown", Description: "Select options from dropdown"},
		},
	},
	{
		Name: "MEDIA",
		Entries: []PaletteEntry{
			{Type: FieldTypeUpload, Label: "Upload", Description: "Upload documents/media files"},
		},
	},
}

// Palette returns a copy of the built-in palette catalogue.
func Palette() []PaletteCategory {
	out := make([]PaletteCategory, len(palette))
	for idx, category := range palette {
		out[idx] = PaletteCategory{
			Name:    category.Name,
			Entries: append([]PaletteEntry(nil), category.Entries...),
		}
	}
	return out
}

// Label returns the palette label for the type, falling back to the raw value.
func (t FieldType) Label() string {
	for _, category := range palette {
		for _, entry := range category.Entries {
			if entry.Type == t {
				return entry.Label
			}
		}
	}
	return string(t)
}

// DragPayload is the palette -> canvas drop payload, carried as JSON.
type DragPayload struct {
	Type  FieldType `json:"type"`
	Label string    `json:"label"`
}

// ParseDragPayload decodes a JSON drop payload and checks the field type.
func ParseDragPayload(raw []byte) (DragPayload, error) {
	var payload DragPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return DragPayload{}, fmt.Errorf("%w: %v", ErrInvalidDragPayload, err)
	}
	if !payload.Type.Valid() {
		return DragPayload{}, fmt.Errorf("%w: unknown field type %q", ErrInvalidDragPayload, payload.Type)
	}
	payload.Label = strings.TrimSpace(payload.Label)
	if payload.Label == "" {
		payload.Label = payload.Type.Label()
	}
	return payload, nil
}

// NewField instantiates a field definition for a dropped palette entry. New
// fields are optional and carry no options until edited.
func NewField(payload DragPayload, id int64) FieldDefinition {
	return FieldDefinition{
		ID:       id,
		Type:     payload.Type,
		Label:    payload.Label,
		Required: false,
	}
}
