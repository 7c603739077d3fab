package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rgehrsitz/rptax/internal/calculation"
	"github.com/rgehrsitz/rptax/internal/config"
	"go.uber.org/zap"
)

// Server exposes the calculation engine over JSON and HTTP.
type Server struct {
	engine *calculation.Engine
	parser *config.InputParser
	logger *zap.Logger
}

// NewServer creates a server; a nil logger discards request logs.
func NewServer(engine *calculation.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		parser: config.NewInputParser(),
		logger: logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(s.logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, AppError{Code: "NOT_FOUND", Message: "no such endpoint", StatusCode: http.StatusNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, AppError{Code: "METHOD_NOT_ALLOWED", Message: r.Method + " is not allowed here", StatusCode: http.StatusMethodNotAllowed})
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tax-years", s.handleTaxYears)
		r.Post("/tax", s.handleTax)
		r.Post("/limits", s.handleLimits)
		r.Post("/allocate", s.handleAllocate)
		r.Post("/projection", s.handleProjection)
		r.Post("/roth", s.handleRoth)
		r.Post("/asset-location", s.handleAssetLocation)
		r.Post("/compare/tax", s.handleCompareTax)
	})
	return r
}
