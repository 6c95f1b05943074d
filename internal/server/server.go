// Package server exposes the dashboard aggregates over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/runnerr0/yoda/internal/analytics"
	"github.com/runnerr0/yoda/internal/history"
	"github.com/runnerr0/yoda/internal/metrics"
)

// Loader returns the current stored history.
type Loader interface {
	Load(ctx context.Context) ([]history.WatchRecord, []history.SearchRecord, error)
}

// Options configures a Server.
type Options struct {
	Addr       string
	TopN       int
	SmallShare float64
	Log        zerolog.Logger
}

// Server serves dashboard JSON read from a Loader.
type Server struct {
	loader Loader
	opts   Options
	log    zerolog.Logger
	router chi.Router
}

// New creates a Server. Data is reloaded from loader on every request.
func New(loader Loader, opts Options) *Server {
	s := &Server{loader: loader, opts: opts, log: opts.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/dashboard", s.handleDashboard)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("dashboard listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info().Msg("dashboard stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	watch, _, err := s.loader.Load(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "load history", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Options(watch))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := analytics.ParseDate(q.Get("start"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "start", err)
		return
	}
	end, err := analytics.ParseDate(q.Get("end"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "end", err)
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		s.fail(w, http.StatusBadRequest, "range", errors.New("end is before start"))
		return
	}

	top := s.opts.TopN
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.fail(w, http.StatusBadRequest, "top", fmt.Errorf("invalid top %q", v))
			return
		}
		top = n
	}

	watch, search, err := s.loader.Load(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "load history", err)
		return
	}

	filter := analytics.Filter{
		Start:    start,
		End:      end,
		Channel:  q.Get("channel"),
		Category: q.Get("category"),
	}
	dash := analytics.Build(watch, search, filter, analytics.BuildOptions{
		TopN:       top,
		SmallShare: s.opts.SmallShare,
	})
	writeJSON(w, http.StatusOK, dash)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, status int, what string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("op", what).Msg("dashboard request failed")
	}
	writeJSON(w, status, errorBody{Error: fmt.Sprintf("%s: %v", what, err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// instrument counts requests by route pattern and status class.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.DashboardRequests.WithLabelValues(route, fmt.Sprintf("%dxx", status/100)).Inc()

		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("took", time.Since(started)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
