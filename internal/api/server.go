// Package api provides the HTTP API server and handlers for the Blueprint Store.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blueprintstore/blueprintstore-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog *service.CatalogService
	router  *chi.Mux
	api     huma.API
	logger  *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(catalog *service.CatalogService, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		catalog: catalog,
		router:  router,
		logger:  logger,
	}

	// Middleware must be registered before any routes; humachi.New mounts
	// huma's OpenAPI/docs routes on the router immediately.
	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Blueprint Store API", "1.0.0")
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBlueprintRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. The panel is served from
// the Home Assistant frontend origin, so cross-origin reads are allowed.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}
