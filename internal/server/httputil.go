package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/moogar0880/problems"
	"go.uber.org/zap"
)

const (
	contentJSON    = "application/json"
	contentProblem = "application/problem+json"

	maxBodyBytes = 8 << 20
)

// writeJSON marshals v as JSON and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server: encode response", zap.Error(err))
	}
}

// writeProblem writes an RFC 7807 body. extra members (such as per-field
// errors) are merged into the problem object.
func (s *Server) writeProblem(w http.ResponseWriter, r *http.Request, status int, kind, detail string, extra map[string]any) {
	problem := problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(kind).
		WithDetail(detail)

	body := map[string]any{}
	if data, err := json.Marshal(problem); err == nil {
		_ = json.Unmarshal(data, &body)
	}
	for key, value := range extra {
		body[key] = value
	}

	w.Header().Set("Content-Type", contentProblem)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("server: encode problem", zap.Error(err))
	}
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	s.writeProblem(w, r, http.StatusBadRequest, "bad_request", detail, nil)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, detail string) {
	s.writeProblem(w, r, http.StatusNotFound, "not_found", detail, nil)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("server: request failed", zap.String("path", r.URL.Path), zap.Error(err))
	s.writeProblem(w, r, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("request body is empty")
	}
	return data, nil
}

// parseID extracts and validates an integer path parameter.
func (s *Server) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(w, r, "invalid id: "+raw)
		return 0, false
	}
	return id, true
}
