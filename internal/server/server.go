// Package server exposes a store over HTTP: JSON routes under /api that
// mirror the store's mutators, a live preview session, exchange and OpenAPI
// endpoints, and a WebSocket stream of store emissions at /api/events.
//
// The server serves a single workspace for a single user. Requests are
// serialised by the store itself; nothing here adds multi-user semantics.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/preview"
	"github.com/goliatone/go-formbuilder/pkg/reorder"
	"github.com/goliatone/go-formbuilder/pkg/renderers/html"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// BlobPrefix is the URL prefix under which the server serves live preview
// blobs from a MemoryProvider.
const BlobPrefix = "/api/blobs/"

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFiles supplies the file-preview manager used by the preview session.
func WithFiles(manager *filepreview.Manager) Option {
	return func(s *Server) {
		s.files = manager
	}
}

// WithOrchestrator replaces the render pipeline.
func WithOrchestrator(orch *orchestrator.Orchestrator) Option {
	return func(s *Server) {
		s.orch = orch
	}
}

// WithIDSource sets the element id generator used for new and duplicated
// fields.
func WithIDSource(ids *model.IDSource) Option {
	return func(s *Server) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithClock sets the clock used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAllowedOrigins sets the origin patterns accepted by the event stream.
// Empty means same-origin only.
func WithAllowedOrigins(patterns ...string) Option {
	return func(s *Server) {
		s.origins = append([]string(nil), patterns...)
	}
}

// Server serves one store.
type Server struct {
	store   *store.Store
	session *preview.Session
	files   *filepreview.Manager
	orch    *orchestrator.Orchestrator
	ids     *model.IDSource
	now     func() time.Time
	origins []string
	logger  *zap.Logger
	hub     *hub
	router  chi.Router

	dragMu sync.Mutex
	drags  map[int64]*reorder.DragSession

	unsubscribe []func()
}

// New builds a server over st. Close releases the preview session and the
// event subscriptions.
func New(st *store.Store, options ...Option) *Server {
	s := &Server{
		store:  st,
		ids:    model.NewIDSource(nil),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.files == nil {
		s.files = filepreview.NewManager(
			filepreview.WithProvider(filepreview.NewMemoryProvider(BlobPrefix)),
			filepreview.WithLogger(s.logger),
		)
	}
	if s.orch == nil {
		s.orch = orchestrator.New(
			orchestrator.WithSource(st),
			orchestrator.WithFiles(s.files),
			orchestrator.WithLogger(s.logger),
		)
	}

	for _, group := range st.Groups() {
		for _, element := range group.Elements {
			s.ids.Observe(element.ID)
		}
	}

	s.hub = newHub(s.logger)
	s.unsubscribe = append(s.unsubscribe,
		st.SubscribeGroups(s.hub.publishGroups),
		st.SubscribeSelected(s.hub.publishSelected),
	)
	s.session = preview.NewSession(st,
		preview.WithManager(s.files),
		preview.WithLogger(s.logger),
		preview.OnRebuild(s.hub.publishPreview),
	)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops event delivery and releases preview resources. Open event
// streams are closed.
func (s *Server) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
	s.hub.closeAll()
	s.session.Close()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServerFS(html.AssetsFS())))

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleEvents)
		r.Get("/palette", s.handlePalette)
		r.Get("/renderers", s.handleRenderers)
		r.Get("/validate", s.handleValidate)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/openapi", s.handleOpenAPI)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.handleListGroups)
			r.Post("/", s.handleAddGroup)
			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Put("/", s.handleUpdateGroup)
				r.Delete("/", s.handleDeleteGroup)
				r.Post("/duplicate", s.handleDuplicateGroup)
				r.Get("/render", s.handleRender)
				r.Post("/elements", s.handleAddElement)
				r.Put("/elements/{elementID}", s.handleUpdateElement)
				r.Delete("/elements/{elementID}", s.handleDeleteElement)
				r.Post("/elements/{elementID}/move", s.handleMoveElement)
				r.Post("/drag", s.handleDrag)
			})
		})

		r.Get("/selection", s.handleGetSelection)
		r.Put("/selection", s.handleSelect)
		r.Delete("/selection", s.handleClearSelection)

		r.Route("/preview", func(r chi.Router) {
			r.Get("/", s.handlePreview)
			r.Get("/render", s.handlePreviewRender)
			r.Put("/values/{key}", s.handlePreviewValue)
			r.Put("/files/{fieldID}", s.handlePreviewFile)
			r.Delete("/files/{fieldID}", s.handlePreviewClearFile)
			r.Post("/submit", s.handlePreviewSubmit)
		})

		r.Get("/blobs/{handleID}", s.handleBlob)
		r.Post("/forms/{groupID}/submissions", s.handleSubmission)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
