package openapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func TestDocument_OperationPerGroup(t *testing.T) {
	ctx := context.Background()
	doc, err := openapi.Document(ctx, testsupport.Groups(), openapi.Info{Title: "Forms", ServerURL: "http://localhost:8080/api"})
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	if doc.OpenAPI != openapi.Version {
		t.Fatalf("openapi version: %q", doc.OpenAPI)
	}
	if doc.Paths.Len() != 2 {
		t.Fatalf("expected 2 paths, got %d", doc.Paths.Len())
	}

	contact := doc.Paths.Find(openapi.SubmissionPath(1))
	if contact == nil || contact.Post == nil {
		t.Fatalf("missing contact submission operation")
	}
	if contact.Post.OperationID != "submitGroup1" {
		t.Fatalf("operation id: %q", contact.Post.OperationID)
	}
	if contact.Post.Responses.Status(http.StatusCreated) == nil || contact.Post.Responses.Status(http.StatusUnprocessableEntity) == nil {
		t.Fatalf("expected 201 and 422 responses")
	}

	// Contact has an upload control so it is multipart.
	content := contact.Post.RequestBody.Value.Content
	media := content.Get("multipart/form-data")
	if media == nil {
		t.Fatalf("expected multipart request body, got %v", content)
	}
	schema := media.Schema.Value
	if diff := cmp.Diff([]string{"field-1", "field-2"}, schema.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if got := schema.Properties["field-2"].Value.Format; got != "email" {
		t.Fatalf("expected email format, got %q", got)
	}
	if got := schema.Properties["field-5"].Value.Format; got != "binary" {
		t.Fatalf("expected binary upload, got %q", got)
	}
	topic := schema.Properties["field-3"].Value
	if diff := cmp.Diff([]any{"", "Sales", "Support"}, topic.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}

	survey := doc.Paths.Find(openapi.SubmissionPath(2))
	if survey == nil || survey.Post == nil {
		t.Fatalf("missing survey submission operation")
	}
	if survey.Post.RequestBody.Value.Content.Get("application/json") == nil {
		t.Fatalf("expected json request body for survey")
	}
	channels := survey.Post.RequestBody.Value.Content.Get("application/json").Schema.Value.Properties["field-11"].Value
	if channels.Items == nil || !channels.UniqueItems {
		t.Fatalf("expected unique array for multi-selection, got %#v", channels)
	}
	if got := channels.Extensions[openapi.FieldIDExtension]; got != int64(11) {
		t.Fatalf("field id extension: %#v", got)
	}
}

func TestDocument_EncodeAndLoad(t *testing.T) {
	ctx := context.Background()
	doc, err := openapi.Document(ctx, testsupport.Groups(), openapi.Info{})
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	for _, asYAML := range []bool{false, true} {
		data, err := openapi.Encode(doc, asYAML)
		if err != nil {
			t.Fatalf("encode (yaml=%v): %v", asYAML, err)
		}
		if asYAML && !strings.Contains(string(data), "openapi: 3.0.3") {
			t.Fatalf("expected yaml output, got:\n%s", data)
		}
		loaded, err := openapi.Load(ctx, data)
		if err != nil {
			t.Fatalf("load (yaml=%v): %v", asYAML, err)
		}
		if loaded.Info.Title != "Form submissions" || loaded.Paths.Len() != 2 {
			t.Fatalf("unexpected reloaded document: %#v", loaded.Info)
		}
	}
}

func TestDocument_EmptyGroups(t *testing.T) {
	doc, err := openapi.Document(context.Background(), nil, openapi.Info{Title: "Empty"})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Paths.Len() != 0 {
		t.Fatalf("expected no paths")
	}
}

func TestControlSchema_RequiredText(t *testing.T) {
	doc, err := openapi.Document(context.Background(), []model.FieldGroup{{
		ID:   4,
		Name: "Single",
		Elements: []model.FieldDefinition{
			{ID: 1, Type: model.FieldTypeSingleLineText, Label: "Name", Required: true, Placeholder: "Your name"},
			{ID: 2, Type: model.FieldTypeTime, Label: "At"},
		},
	}}, openapi.Info{})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	body := doc.Paths.Find(openapi.SubmissionPath(4)).Post.RequestBody.Value.Content.Get("application/json").Schema.Value

	name := body.Properties["field-1"].Value
	if name.MinLength != 1 || name.Nullable || name.Description != "Your name" {
		t.Fatalf("unexpected name schema: %#v", name)
	}
	at := body.Properties["field-2"].Value
	if !at.Nullable || at.Pattern == "" {
		t.Fatalf("unexpected time schema: %#v", at)
	}
}

func TestLoad_RejectsEmpty(t *testing.T) {
	if _, err := openapi.Load(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}
