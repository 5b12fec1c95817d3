/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the review frontend

ROUTE GROUPS:
  /api/schools/*        Schools, teachers, subjects, lessons, feed,
                        reconciliation
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus scrape
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/schools", func(r chi.Router) {
			r.Post("/", h.CreateSchool)

			r.Route("/{schoolID}", func(r chi.Router) {
				r.Route("/teachers", func(r chi.Router) {
					r.Get("/", h.ListTeachers)
					r.Post("/", h.CreateTeacher)
				})
				r.Route("/subjects", func(r chi.Router) {
					r.Get("/", h.ListSubjects)
					r.Post("/", h.CreateSubject)
				})
				r.Route("/lessons", func(r chi.Router) {
					r.Get("/", h.ListLessons)
					r.Post("/", h.CreateLesson)
					r.Delete("/{id}", h.DeleteLesson)
				})
				r.Post("/feed", h.UploadFeed)
				r.Route("/reconciliation", func(r chi.Router) {
					r.Get("/", h.RunReconciliation)
					r.Post("/check", h.CheckConflict)
					r.Post("/align", h.AlignLesson)
				})
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Operational endpoints
	r.Handle("/metrics", h.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
