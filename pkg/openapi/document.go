package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Version is the OpenAPI version emitted by Document.
const Version = "3.0.3"

const (
	contentJSON      = "application/json"
	contentMultipart = "multipart/form-data"
	contentProblem   = "application/problem+json"

	// FieldIDExtension carries the element id on each property schema.
	FieldIDExtension = "x-field-id"
	// FieldTypeExtension carries the element type on each property schema.
	FieldTypeExtension = "x-field-type"
)

// Info describes the generated document.
type Info struct {
	Title       string
	Version     string
	Description string
	ServerURL   string
}

// SubmissionPath returns the submission path of a group.
func SubmissionPath(groupID int64) string {
	return fmt.Sprintf("/forms/%d/submissions", groupID)
}

// OperationID returns the operation id of a group's submission.
func OperationID(groupID int64) string {
	return fmt.Sprintf("submitGroup%d", groupID)
}

// Document builds and validates an OpenAPI document with one submission
// operation per group, in group order.
func Document(ctx context.Context, groups []model.FieldGroup, info Info) (*openapi3.T, error) {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = "Form submissions"
	}
	version := strings.TrimSpace(info.Version)
	if version == "" {
		version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       title,
			Version:     version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
	}
	if server := strings.TrimSpace(info.ServerURL); server != "" {
		doc.Servers = openapi3.Servers{{URL: server}}
	}

	for _, group := range groups {
		doc.AddOperation(SubmissionPath(group.ID), http.MethodPost, Operation(group))
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}

// Operation builds the submission operation of a group.
func Operation(group model.FieldGroup) *openapi3.Operation {
	form := compiler.Compile(group)
	body := SubmissionSchema(form)

	request := openapi3.NewRequestBody().WithRequired(true)
	if hasUpload(form) {
		request = request.WithFormDataSchema(body)
	} else {
		request = request.WithJSONSchema(body)
	}

	accepted := openapi3.NewResponse().
		WithDescription("Submission accepted").
		WithJSONSchema(body)
	invalid := openapi3.NewResponse().
		WithDescription("Validation failed").
		WithContent(openapi3.NewContentWithSchema(problemSchema(), []string{contentProblem}))
	missing := openapi3.NewResponse().
		WithDescription("Group not found").
		WithContent(openapi3.NewContentWithSchema(problemSchema(), []string{contentProblem}))

	return &openapi3.Operation{
		OperationID: OperationID(group.ID),
		Summary:     "Submit " + group.Name,
		Description: group.Description,
		Tags:        []string{"forms"},
		RequestBody: &openapi3.RequestBodyRef{Value: request},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusCreated, &openapi3.ResponseRef{Value: accepted}),
			openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{Value: missing}),
			openapi3.WithStatus(http.StatusUnprocessableEntity, &openapi3.ResponseRef{Value: invalid}),
		),
	}
}

// SubmissionSchema returns the object schema of a form's submission, one
// property per control keyed by control key.
func SubmissionSchema(form *compiler.Form) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Title = form.Name
	schema.Required = []string{}
	for _, control := range form.Controls() {
		schema.WithProperty(control.Key, ControlSchema(control))
		if control.Required {
			schema.Required = append(schema.Required, control.Key)
		}
	}
	if len(schema.Required) == 0 {
		schema.Required = nil
	}
	return schema
}

// ControlSchema maps one control to its property schema.
func ControlSchema(control compiler.Control) *openapi3.Schema {
	var schema *openapi3.Schema
	switch control.Type {
	case model.FieldTypeInteger:
		schema = openapi3.NewInt64Schema()
	case model.FieldTypeDate:
		schema = openapi3.NewStringSchema().WithFormat("date")
	case model.FieldTypeTime:
		schema = openapi3.NewStringSchema().WithPattern(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	case model.FieldTypeDateTime:
		schema = openapi3.NewDateTimeSchema()
	case model.FieldTypeDropdown, model.FieldTypeSingleSelection:
		schema = openapi3.NewStringSchema().WithEnum(enumValues(control.Options, !control.Required)...)
	case model.FieldTypeMultiSelection:
		items := openapi3.NewStringSchema().WithEnum(enumValues(control.Options, false)...)
		schema = openapi3.NewArraySchema().WithItems(items).WithUniqueItems(true)
		if control.Required {
			schema = schema.WithMinItems(1)
		}
	case model.FieldTypeUpload:
		schema = openapi3.NewStringSchema().WithFormat("binary")
	default:
		schema = openapi3.NewStringSchema()
		if control.HasValidator(compiler.ValidatorEmail) {
			schema = schema.WithFormat("email")
		}
		if control.Required {
			schema = schema.WithMinLength(1)
		}
	}

	schema.Title = control.Label
	if control.Placeholder != "" {
		schema.Description = control.Placeholder
	}
	if !control.Required && control.Type != model.FieldTypeMultiSelection && control.Type != model.FieldTypeUpload {
		schema.Nullable = true
	}
	schema.Extensions = map[string]any{
		FieldIDExtension:   control.FieldID,
		FieldTypeExtension: string(control.Type),
	}
	return schema
}

// Encode serializes doc as JSON, or YAML when asYAML is set.
func Encode(doc *openapi3.T, asYAML bool) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("openapi: document is nil")
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal json: %w", err)
	}
	if !asYAML {
		return data, nil
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("openapi: decode json: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal yaml: %w", err)
	}
	return out, nil
}

// Load parses and validates a serialized document (JSON or YAML).
func Load(ctx context.Context, data []byte) (*openapi3.T, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}

func hasUpload(form *compiler.Form) bool {
	for _, control := range form.Controls() {
		if control.Type == model.FieldTypeUpload {
			return true
		}
	}
	return false
}

func enumValues(options []string, allowEmpty bool) []any {
	out := make([]any, 0, len(options)+1)
	if allowEmpty {
		out = append(out, "")
	}
	for _, option := range options {
		out = append(out, option)
	}
	return out
}

func problemSchema() *openapi3.Schema {
	errorsSchema := openapi3.NewObjectSchema().
		WithAdditionalProperties(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))

	return openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("status", openapi3.NewInt32Schema()).
		WithProperty("detail", openapi3.NewStringSchema()).
		WithProperty("errors", errorsSchema)
}
