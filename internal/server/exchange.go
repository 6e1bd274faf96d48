package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/codec"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

func wantsYAML(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "yaml", "yml":
		return true
	}
	return false
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	env := codec.Export(s.store.Groups(), now)

	var (
		data        []byte
		err         error
		contentType = contentJSON
		filename    = codec.ExportFilename(now)
	)
	if wantsYAML(r) {
		data, err = codec.MarshalYAML(env)
		contentType = "application/yaml"
		filename = strings.TrimSuffix(filename, ".json") + ".yaml"
	} else {
		data, err = codec.Marshal(env)
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	var options []codec.ImportOption
	if strict, _ := strconv.ParseBool(r.URL.Query().Get("strict")); strict {
		options = append(options, codec.WithStrict())
	}

	env, err := codec.Import(s.store, data, options...)
	if err != nil {
		var formatErr *codec.FormatError
		if errors.As(err, &formatErr) {
			s.writeProblem(w, r, http.StatusUnprocessableEntity, "invalid_format", formatErr.Error(), map[string]any{
				"issues": formatErr.Result.Issues,
			})
			return
		}
		s.internalError(w, r, err)
		return
	}
	for _, group := range env.FormGroups {
		s.observe(group.Elements...)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"version":    env.Version,
		"exportDate": env.ExportDate,
		"groups":     len(env.FormGroups),
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := openapi.Document(r.Context(), s.store.Groups(), openapi.Info{ServerURL: "/api"})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	asYAML := wantsYAML(r)
	data, err := openapi.Encode(doc, asYAML)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if asYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", contentJSON)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleRender renders a stored group with a fresh form. The submission
// action points at the group's submission route.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	name := r.URL.Query().Get("renderer")
	renderer, err := s.orch.Registry().Resolve(name)
	if err != nil {
		s.notFound(w, r, err.Error())
		return
	}

	out, err := s.orch.Generate(r.Context(), orchestrator.Request{
		GroupID:  id,
		Renderer: renderer.Name(),
		RenderOptions: render.RenderOptions{
			Action: "/api" + openapi.SubmissionPath(id),
			Locale: r.URL.Query().Get("locale"),
		},
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrGroupNotFound) {
			s.notFound(w, r, fmt.Sprintf("group %d not found", id))
			return
		}
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
