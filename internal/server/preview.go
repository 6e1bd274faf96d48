package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/preview"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

type valueRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	controls, err := s.session.Controls()
	if err != nil {
		s.previewError(w, r, err)
		return
	}
	groupID, _ := s.session.GroupID()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"groupId":  groupID,
		"controls": controls,
	})
}

// handlePreviewRender renders the live preview form, including current
// values, touched errors and upload previews.
func (s *Server) handlePreviewRender(w http.ResponseWriter, r *http.Request) {
	renderer, err := s.orch.Registry().Resolve(r.URL.Query().Get("renderer"))
	if err != nil {
		s.notFound(w, r, err.Error())
		return
	}

	previews := map[int64]string{}
	for _, handle := range s.files.Live() {
		previews[handle.FieldID] = handle.URL
	}

	var out []byte
	err = s.session.With(func(form *compiler.Form) error {
		var renderErr error
		out, renderErr = renderer.Render(r.Context(), form, render.RenderOptions{
			Locale:      r.URL.Query().Get("locale"),
			PreviewURLs: previews,
		})
		return renderErr
	})
	if err != nil {
		s.previewError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handlePreviewValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req valueRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.session.SetInput(key, req.Value); err != nil {
		if errors.Is(err, compiler.ErrInvalidInput) {
			s.rejectSubmission(w, r, map[string][]string{key: {err.Error()}})
			return
		}
		s.previewError(w, r, err)
		return
	}

	var control compiler.Control
	_ = s.session.With(func(form *compiler.Form) error {
		control, _ = form.Control(key)
		return nil
	})
	s.writeJSON(w, http.StatusOK, control)
}

// handlePreviewFile attaches a file to an upload field. The content comes
// from the multipart "file" part or, for any other content type, the raw
// body.
func (s *Server) handlePreviewFile(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := s.parseID(w, r, "fieldID")
	if !ok {
		return
	}
	blob, err := readBlob(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	handle, err := s.session.SetFile(fieldID, blob)
	if err != nil {
		switch {
		case errors.Is(err, filepreview.ErrTooLarge):
			s.writeProblem(w, r, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), nil)
		case errors.Is(err, filepreview.ErrUnsupportedType):
			s.writeProblem(w, r, http.StatusUnsupportedMediaType, "unsupported_type", err.Error(), nil)
		default:
			s.previewError(w, r, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, handle)
}

func (s *Server) handlePreviewClearFile(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := s.parseID(w, r, "fieldID")
	if !ok {
		return
	}
	if err := s.session.ClearFile(fieldID); err != nil {
		s.previewError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreviewSubmit(w http.ResponseWriter, r *http.Request) {
	var (
		values map[string]any
		export map[string]any
	)
	err := s.session.With(func(form *compiler.Form) error {
		var submitErr error
		values, submitErr = form.Submit()
		if submitErr == nil {
			export = render.ExportValues(form, values)
		}
		return submitErr
	})
	if err != nil {
		var verr *compiler.ValidationError
		if errors.As(err, &verr) {
			s.rejectSubmission(w, r, verr.Fields)
			return
		}
		s.previewError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, export)
}

// handleBlob serves a live preview blob. Only in-memory providers can serve
// content; other providers issue URLs the client resolves itself.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.files.Provider().(*filepreview.MemoryProvider)
	if !ok {
		s.notFound(w, r, "blob serving is not available")
		return
	}
	id := chi.URLParam(r, "handleID")
	blob, err := provider.Open(id)
	if err != nil {
		s.notFound(w, r, fmt.Sprintf("blob %s not found", id))
		return
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

func (s *Server) previewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, preview.ErrNoForm):
		s.writeProblem(w, r, http.StatusConflict, "no_form", "no group is selected", nil)
	case errors.Is(err, preview.ErrNotUpload), errors.Is(err, compiler.ErrUnknownControl):
		s.notFound(w, r, err.Error())
	case errors.Is(err, preview.ErrStale):
		s.writeProblem(w, r, http.StatusConflict, "stale_form", err.Error(), nil)
	default:
		s.internalError(w, r, err)
	}
}

func readBlob(r *http.Request) (filepreview.Blob, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return filepreview.Blob{}, fmt.Errorf("invalid multipart body: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return filepreview.Blob{}, fmt.Errorf("missing file part: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return filepreview.Blob{}, err
		}
		return filepreview.Blob{Name: header.Filename, Data: data}, nil
	}

	data, err := readBody(r)
	if err != nil {
		return filepreview.Blob{}, err
	}
	return filepreview.Blob{Name: r.URL.Query().Get("name"), Data: data}, nil
}
