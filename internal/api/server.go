// Package api exposes form scanning, tagging, filling and the template
// registry over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/model"
	"github.com/dcdoc/dcform-cli/internal/store"
	"github.com/dcdoc/dcform-cli/internal/tagger"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	store      store.Store
	classifier tagger.Classifier
	catalog    *model.Catalog
	opts       Options
}

// NewServer builds a Server. A nil catalog means the default catalog.
func NewServer(st store.Store, classifier tagger.Classifier, catalog *model.Catalog, opts Options) *Server {
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{store: st, classifier: classifier, catalog: catalog, opts: opts}
}

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", headerReplaced, headerRemoved},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Post("/tags/suggest", s.handleSuggest)
		r.Post("/tags/insert", s.handleInsert)
		r.Post("/tags/strip", s.handleStrip)
		r.Post("/fill", s.handleFill)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTemplate)
				r.Delete("/", s.handleDeleteTemplate)
				r.Get("/document", s.handleTemplateDocument)
				r.Post("/suggest", s.handleTemplateSuggest)
				r.Post("/tags", s.handleTemplateTags)
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
