package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// middleware wraps h with request logging, request IDs, per-request
// timeouts and HTTP metrics. The outermost handler runs first.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.timeout(h)
	h = hlog.AccessHandler(s.access)(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.NewHandler(s.log)(h)
	return h
}

func (s *Server) access(r *http.Request, status, size int, d time.Duration) {
	route := s.route(r)

	level := zerolog.InfoLevel
	switch {
	case status >= 500:
		level = zerolog.ErrorLevel
	case status >= 400:
		level = zerolog.WarnLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("method", r.Method).
		Str("route", route).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveHTTP(route, r.Method, status, d)
	}
}

// route labels a request by the mux pattern it matched so metrics stay low
// cardinality.
func (s *Server) route(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

func (s *Server) timeout(h http.Handler) http.Handler {
	if s.cfg.RequestTimeout <= 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
