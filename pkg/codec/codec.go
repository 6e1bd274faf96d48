// Package codec reads and writes the exchange envelope used for import and
// export of form configurations:
//
//	{ "version": "1.0", "exportDate": "<ISO-8601>", "formGroups": [ ... ] }
//
// Envelopes are written as indented JSON and may be read back from JSON or
// YAML. Reads are validated against an embedded JSON Schema before any
// group reaches the store.
package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Version is the only envelope version this package writes.
const Version = "1.0"

// ExportDateLayout renders export timestamps in UTC with milliseconds.
const ExportDateLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidFormat is wrapped by every decode failure.
var ErrInvalidFormat = errors.New("codec: invalid format")

//go:embed schema/envelope.json
var envelopeSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// Envelope is the exchange document.
type Envelope struct {
	Version    string             `json:"version" yaml:"version"`
	ExportDate string             `json:"exportDate" yaml:"exportDate"`
	FormGroups []model.FieldGroup `json:"formGroups" yaml:"formGroups"`
}

// FormatError carries the schema issues behind an ErrInvalidFormat.
type FormatError struct {
	Result validation.SchemaValidationResult
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrInvalidFormat, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFormat, e.Result.Error())
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidFormat, e.Err}
	}
	return []error{ErrInvalidFormat}
}

// Export wraps groups in a versioned envelope stamped with now.
func Export(groups []model.FieldGroup, now time.Time) Envelope {
	return Envelope{
		Version:    Version,
		ExportDate: now.UTC().Format(ExportDateLayout),
		FormGroups: model.CloneGroups(groups),
	}
}

// ExportFilename returns the conventional download name for an export made
// on the given day.
func ExportFilename(now time.Time) string {
	return "form-configuration-" + now.Format("2006-01-02") + ".json"
}

// Marshal encodes the envelope as JSON indented by two spaces.
func Marshal(env Envelope) ([]byte, error) {
	if env.FormGroups == nil {
		env.FormGroups = []model.FieldGroup{}
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return data, nil
}

// MarshalYAML encodes the envelope as YAML.
func MarshalYAML(env Envelope) ([]byte, error) {
	if env.FormGroups == nil {
		env.FormGroups = []model.FieldGroup{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses and validates an envelope. JSON is tried first, then YAML.
// A numeric version is accepted and normalised to its text form. Group ids
// must be unique.
func Decode(data []byte) (Envelope, error) {
	raw, err := toJSON(data)
	if err != nil {
		return Envelope{}, &FormatError{Err: err}
	}

	schema, err := loadSchema()
	if err != nil {
		return Envelope{}, err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Envelope{}, &FormatError{Err: err}
	}
	if !result.Valid() {
		return Envelope{}, &FormatError{Result: validation.FromJSONSchema(result)}
	}

	var wire struct {
		Version    json.RawMessage    `json:"version"`
		ExportDate string             `json:"exportDate"`
		FormGroups []model.FieldGroup `json:"formGroups"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{}, &FormatError{Err: err}
	}
	if result := validation.UniqueGroupIDs(wire.FormGroups); !result.Valid {
		return Envelope{}, &FormatError{Result: prefixIssues(result, "/formGroups")}
	}

	env := Envelope{
		Version:    decodeVersion(wire.Version),
		ExportDate: wire.ExportDate,
		FormGroups: make([]model.FieldGroup, len(wire.FormGroups)),
	}
	for idx, group := range wire.FormGroups {
		env.FormGroups[idx] = group.Clone()
	}
	return env, nil
}

func toJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if json.Valid(trimmed) {
		return trimmed, nil
	}

	var doc any
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("neither JSON nor YAML: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return raw, nil
}

func decodeVersion(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(raw))
}

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(envelopeSchema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("codec: compile envelope schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}
