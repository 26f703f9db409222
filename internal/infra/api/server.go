package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/infra/api/apiv1"
)

// Server exposes /health, /metrics and the authenticated admin API.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewRouter(v1 *apiv1.Server, auth *AuthManager, logger *zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(logger), Timeout(10*time.Second))
		apiv1.RegisterAPIV1(r, v1)
	})
	return r
}

func NewServer(port int, handler http.Handler, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminHTTP").Logger()
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: &l,
	}
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("admin HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
