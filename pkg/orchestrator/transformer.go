package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Transformer mutates a group copy before decorators run. Implementations
// can relabel fields, tighten requirements, or perform arbitrary rewrites.
type Transformer interface {
	Transform(ctx context.Context, group *model.FieldGroup) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, group *model.FieldGroup) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, group *model.FieldGroup) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, group)
}

// PresetTransformer applies declarative overrides loaded from a JSON or YAML
// document. Fields are addressed by element id or by exact label:
//
//	name: Contact us
//	fields:
//	  "2":
//	    placeholder: you@example.com
//	    required: true
//	  Topic:
//	    options: [Sales, Support, Billing]
type PresetTransformer struct {
	document presetDocument
}

type presetDocument struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Fields      map[string]fieldPatch `yaml:"fields"`
}

type fieldPatch struct {
	Label       string   `yaml:"label"`
	Placeholder string   `yaml:"placeholder"`
	Required    *bool    `yaml:"required"`
	Options     []string `yaml:"options"`
}

// NewPresetTransformer constructs a transformer from raw JSON or YAML bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var document presetDocument
	// JSON is a YAML subset, one decoder covers both.
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{document: document}, nil
}

// NewPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the declarative patches onto the supplied group.
func (t *PresetTransformer) Transform(ctx context.Context, group *model.FieldGroup) error {
	if group == nil {
		return errors.New("preset transformer: group is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if name := strings.TrimSpace(t.document.Name); name != "" {
		group.Name = name
	}
	if t.document.Description != "" {
		group.Description = t.document.Description
	}

	for ref, patch := range t.document.Fields {
		idx := findElement(group.Elements, ref)
		if idx < 0 {
			return fmt.Errorf("preset transformer: field %q not found", ref)
		}
		applyFieldPatch(&group.Elements[idx], patch)
	}
	return nil
}

func applyFieldPatch(field *model.FieldDefinition, patch fieldPatch) {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.Placeholder != "" {
		field.Placeholder = patch.Placeholder
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if len(patch.Options) > 0 && field.Type.IsSelection() {
		field.Options = append([]string(nil), patch.Options...)
	}
}

func findElement(elements []model.FieldDefinition, ref string) int {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for idx := range elements {
			if elements[idx].ID == id {
				return idx
			}
		}
	}
	for idx := range elements {
		if elements[idx].Label == ref {
			return idx
		}
	}
	return -1
}
