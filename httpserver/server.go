// Package httpserver exposes the booking engine over HTTP: the
// /v1/messages ingestion endpoint, the HIL approval endpoints an
// operator panel drives, and the health/metrics surface, wired with the
// same middleware chain (CORS, security headers, auth, rate limiting,
// header normalization, timeouts) used across the rest of this codebase.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/metrics"
	bookingmw "github.com/venuedesk/bookingengine/middleware"
	"github.com/venuedesk/bookingengine/workflow"
)

// New returns a configured chi Router with the full middleware chain
// and every route mounted.
func New(cfg *config.Config, log zerolog.Logger, router *workflow.Router, metricsReg *metrics.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(bookingmw.CORSMiddleware([]string{"*"}))
	r.Use(bookingmw.SecurityHeadersMiddleware)
	r.Use(bookingmw.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"bookingengine"}`))
	})

	if metricsReg != nil {
		r.Get("/metrics", metricsReg.Handler())
	}

	h := &messageHandler{router: router, logger: log}
	approvals := &approvalHandler{router: router, logger: log}

	r.Route("/v1", func(r chi.Router) {
		authMW := bookingmw.NewAuthMiddleware(log, cfg.APIKeyHeader)
		rateLimiter := bookingmw.NewRateLimiter(log, cfg.RateLimitEnabled, cfg.RateLimitRPM, cfg.RateLimitBurst)
		headerNorm := bookingmw.NewHeaderNormalization(log)

		timeoutMW := bookingmw.NewTimeoutMiddleware(log, cfg)

		r.Use(authMW.Handler)
		r.Use(rateLimiter.Handler)
		r.Use(headerNorm.Handler)
		r.Use(timeoutMW.Handler)

		r.Post("/messages", h.Handle)

		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Post("/approve", approvals.Approve)
			r.Post("/edit", approvals.EditAndApprove)
			r.Post("/reject", approvals.Reject)
		})
	})

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}
