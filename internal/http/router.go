package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinemalab/cinema-data/internal/idempotency"
	"github.com/cinemalab/cinema-data/internal/observability"
)

// RouterOptions carries the Redis-backed middleware. Nil fields are skipped.
type RouterOptions struct {
	Limiter     Limiter
	Idempotency *idempotency.Idempotency
}

func SetupRouter(h *Handlers, logger observability.Logger, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	if opts.Limiter != nil {
		r.Use(RateLimitMiddleware(opts.Limiter, logger))
	}
	if opts.Idempotency != nil {
		r.Use(IdempotencyMiddleware(opts.Idempotency, logger))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.ListRooms)
		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms/{id}", h.GetRoom)
		r.Delete("/rooms/{id}", h.DeleteRoom)
		r.Get("/rooms/{id}/seats", h.ListSeats)
		r.Post("/rooms/{id}/seats", h.CreateSeats)

		r.Get("/schedules", h.ListSchedules)
		r.Post("/schedules", h.CreateSchedule)
		r.Get("/schedules/movie/{movie_id}", h.SchedulesByMovie)
	})

	r.Get("/health", h.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
