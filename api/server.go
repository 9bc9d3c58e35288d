/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     zap request logging with the request ID
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests from the deal app frontend
  6. RateLimit:  Per-IP limit on /api (ulule/limiter, in-memory store)

ROUTE GROUPS:
  /api/loans/*      Loan calculations
  /api/apr          APR solve
  /api/dates/*      Date arithmetic
  /api/funds/*      Fund waterfall
  /api/documents/*  Document generation and retrieval
  /healthz          Liveness (not rate limited)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging and rate limiting
  - cmd/server/main.go: Server startup
*/
package api

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	Logger      *zap.Logger
	CORSOrigins []string
	// RateLimit is a limiter rate such as "120-M". Empty disables limiting.
	RateLimit string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) (*chi.Mux, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limit *limiter.Limiter
	if opts.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(opts.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit %q: %w", opts.RateLimit, err)
		}
		limit = limiter.New(memory.NewStore(), rate)
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		if limit != nil {
			r.Use(RateLimit(limit, logger))
		}

		r.Route("/loans", func(r chi.Router) {
			r.Post("/schedule", h.Schedule)
			r.Post("/disclosure", h.Disclosure)
			r.Post("/per-diem", h.PerDiem)
			r.Post("/consistency", h.Consistency)
		})

		r.Post("/apr", h.APR)
		r.Post("/dates/maturity", h.Maturity)
		r.Post("/funds/waterfall", h.Waterfall)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Get("/{id}", h.GetDocument)
			r.Delete("/{id}", h.DeleteDocument)
			r.Get("/{id}/content", h.DocumentContent)
			r.Post("/{id}/regenerate", h.RegenerateDocument)
		})
	})

	return r, nil
}
