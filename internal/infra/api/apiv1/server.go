package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/repository"
)

type GrantService interface {
	Grant(ctx context.Context, submitterID int64, destinationID, template string, ttl time.Duration) (*model.Grant, error)
	Revoke(ctx context.Context, submitterID int64) error
	Get(ctx context.Context, submitterID int64) (*model.Grant, error)
	ListActive(ctx context.Context) ([]*model.Grant, error)
}

type CounterService interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
	Advance(ctx context.Context, destinationID string, value int64) error
}

type Server struct {
	grants   GrantService
	counters CounterService
	records  repository.PublishLogRepository // optional
	log      *zerolog.Logger
}

func NewServer(grants GrantService, counters CounterService, records repository.PublishLogRepository, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "AdminAPIv1").Logger()
	return &Server{grants: grants, counters: counters, records: records, log: &l}
}

func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/counters", s.listCounters)
		r.Put("/counters/{destination}", s.setCounter)

		r.Get("/grants", s.listGrants)
		r.Get("/grants/{submitterID}", s.getGrant)
		r.Put("/grants/{submitterID}", s.putGrant)
		r.Delete("/grants/{submitterID}", s.deleteGrant)

		r.Get("/publishes", s.listPublishes)
	})
}

// ---- DTOs ----

type Grant struct {
	SubmitterID   int64      `json:"submitter_id"`
	DestinationID string     `json:"destination_id"`
	Template      string     `json:"template"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func toGrant(g *model.Grant) Grant {
	return Grant{
		SubmitterID:   g.SubmitterID,
		DestinationID: g.DestinationID,
		Template:      g.Template,
		Active:        g.Active,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		ExpiresAt:     g.ExpiresAt,
	}
}

type grantRequest struct {
	DestinationID string `json:"destination_id"`
	Template      string `json:"template"`
	TTLHours      int    `json:"ttl_hours"`
}

type counterRequest struct {
	Value *int64 `json:"value"`
}

type PublishRecord struct {
	ID             string    `json:"id"`
	SubmitterID    int64     `json:"submitter_id"`
	SequenceNumber int64     `json:"sequence_number"`
	Kind           string    `json:"kind"`
	Items          int       `json:"items"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ---- handlers ----

func (s *Server) listCounters(w http.ResponseWriter, r *http.Request) {
	snap, err := s.counters.Snapshot(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": snap})
}

func (s *Server) setCounter(w http.ResponseWriter, r *http.Request) {
	dest := chi.URLParam(r, "destination")
	var req counterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"value\": <number>}")
		return
	}
	if err := s.counters.Advance(r.Context(), dest, *req.Value); err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info().Str("destination", dest).Int64("value", *req.Value).
		Str("admin", r.Header.Get("X-Admin-Subject")).Msg("counter set via admin API")
	writeJSON(w, http.StatusOK, map[string]any{"destination_id": dest, "value": *req.Value})
}

func (s *Server) listGrants(w http.ResponseWriter, r *http.Request) {
	gs, err := s.grants.ListActive(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	items := make([]Grant, 0, len(gs))
	for _, g := range gs {
		items = append(items, toGrant(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := submitterParam(w, r)
	if !ok {
		return
	}
	g, err := s.grants.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGrant(g))
}

func (s *Server) putGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := submitterParam(w, r)
	if !ok {
		return
	}
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TTLHours < 0 {
		writeError(w, http.StatusBadRequest, "ttl_hours must not be negative")
		return
	}
	g, err := s.grants.Grant(r.Context(), id, req.DestinationID, req.Template, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGrant(g))
}

func (s *Server) deleteGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := submitterParam(w, r)
	if !ok {
		return
	}
	if err := s.grants.Revoke(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPublishes(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "publish log is not enabled")
		return
	}
	dest := r.URL.Query().Get("destination")
	if dest == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1..500")
			return
		}
		limit = n
	}
	recs, err := s.records.ListRecent(r.Context(), dest, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	items := make([]PublishRecord, 0, len(recs))
	for _, rec := range recs {
		items = append(items, PublishRecord{
			ID: rec.ID, SubmitterID: rec.SubmitterID, SequenceNumber: rec.SequenceNumber,
			Kind: rec.Kind, Items: rec.Items, Status: string(rec.Status), Error: rec.Error, CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ---- helpers ----

func submitterParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "submitterID"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid submitter id")
		return 0, false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCounterRegress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		s.log.Error().Err(err).Msg("storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		s.log.Error().Err(err).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
