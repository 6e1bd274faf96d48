package server

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

// handleSubmission validates a submission against a fresh form compiled from
// the stored group. JSON, urlencoded and multipart bodies are accepted; keys
// without a matching control are ignored.
func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	form, err := s.orch.Compile(r.Context(), orchestrator.Request{GroupID: id})
	if err != nil {
		if errors.Is(err, orchestrator.ErrGroupNotFound) {
			s.notFound(w, r, fmt.Sprintf("group %d not found", id))
			return
		}
		s.internalError(w, r, err)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var fieldErrors map[string][]string
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		fieldErrors, err = assignFormValues(r, form)
	default:
		fieldErrors, err = assignJSONValues(r, form)
	}
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if len(fieldErrors) > 0 {
		s.rejectSubmission(w, r, fieldErrors)
		return
	}

	values, err := form.Submit()
	if err != nil {
		var verr *compiler.ValidationError
		if errors.As(err, &verr) {
			s.rejectSubmission(w, r, verr.Fields)
			return
		}
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, render.ExportValues(form, values))
}

func (s *Server) rejectSubmission(w http.ResponseWriter, r *http.Request, fields map[string][]string) {
	s.writeProblem(w, r, http.StatusUnprocessableEntity, "validation_error", "submission failed validation", map[string]any{
		"errors": fields,
	})
}

func assignJSONValues(r *http.Request, form *compiler.Form) (map[string][]string, error) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		return nil, err
	}

	fieldErrors := map[string][]string{}
	for _, control := range form.Controls() {
		raw, present := payload[control.Key]
		if !present {
			continue
		}
		value, err := jsonValue(control, raw)
		if err != nil {
			fieldErrors[control.Key] = []string{err.Error()}
			continue
		}
		if err := form.SetValue(control.Key, value); err != nil {
			return nil, err
		}
	}
	return fieldErrors, nil
}

// jsonValue converts a decoded JSON value into the type the control holds.
func jsonValue(control compiler.Control, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return compiler.DefaultValue(control.Type), nil
	case string:
		return compiler.ParseInput(control.Type, v)
	case float64:
		if control.Type == model.FieldTypeInteger && v == math.Trunc(v) {
			return int64(v), nil
		}
		if control.Type == model.FieldTypeInteger {
			return nil, fmt.Errorf("%w: %v is not an integer", compiler.ErrInvalidInput, v)
		}
		return compiler.ParseInput(control.Type, fmt.Sprint(v))
	case []any:
		if control.Type != model.FieldTypeMultiSelection {
			return nil, fmt.Errorf("%w: %s does not take a list", compiler.ErrInvalidInput, control.Label)
		}
		out := make([]string, 0, len(v))
		for _, item := range v {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: options must be strings", compiler.ErrInvalidInput)
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value for %s", compiler.ErrInvalidInput, control.Label)
	}
}

func assignFormValues(r *http.Request, form *compiler.Form) (map[string][]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, fmt.Errorf("invalid multipart body: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}

	fieldErrors := map[string][]string{}
	for _, control := range form.Controls() {
		var (
			value any
			err   error
			set   bool
		)
		switch control.Type {
		case model.FieldTypeUpload:
			value, set, err = formFile(r, control.Key)
		case model.FieldTypeMultiSelection:
			if items, ok := r.PostForm[control.Key]; ok {
				value, set = nonBlank(items), true
			}
		default:
			if _, ok := r.PostForm[control.Key]; ok {
				value, err = compiler.ParseInput(control.Type, r.PostForm.Get(control.Key))
				set = true
			}
		}
		if err != nil {
			fieldErrors[control.Key] = []string{err.Error()}
			continue
		}
		if !set {
			continue
		}
		if err := form.SetValue(control.Key, value); err != nil {
			return nil, err
		}
	}
	return fieldErrors, nil
}

func formFile(r *http.Request, key string) (any, bool, error) {
	if r.MultipartForm == nil {
		return nil, false, nil
	}
	file, header, err := r.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, false, err
	}
	return render.FileInfo{
		Name: header.Filename,
		Size: len(data),
		MIME: mimetype.Detect(data).String(),
	}, true, nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
