//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apiv1 "telegram-object-publisher/internal/infra/api/apiv1"
	"telegram-object-publisher/internal/usecase"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
)

//
// ---------------- in-memory repos ----------------
//

type memCounters struct {
	mu sync.Mutex
	m  map[string]int64
}

func (s *memCounters) Increment(_ context.Context, dest string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[dest]++
	return s.m[dest], nil
}

func (s *memCounters) LoadAll(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out, nil
}

func (s *memCounters) Set(_ context.Context, dest string, v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v < s.m[dest] {
		return domain.ErrCounterRegress
	}
	s.m[dest] = v
	return nil
}

type memGrants struct {
	mu sync.Mutex
	m  map[int64]*model.Grant
}

func (r *memGrants) Save(_ context.Context, g *model.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.m[g.SubmitterID] = &cp
	return nil
}

func (r *memGrants) FindBySubmitter(_ context.Context, id int64) (*model.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGrants) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.m[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.Active = false
	return nil
}

func (r *memGrants) ListActive(context.Context) ([]*model.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Grant
	for _, g := range r.m {
		if g.Active {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmitterID < out[j].SubmitterID })
	return out, nil
}

func (r *memGrants) ExpireBefore(context.Context, time.Time) (int, error) { return 0, nil }

type memLog struct {
	recs []*model.PublishRecord
}

func (l *memLog) Save(_ context.Context, rec *model.PublishRecord) error {
	l.recs = append(l.recs, rec)
	return nil
}

func (l *memLog) ListRecent(_ context.Context, dest string, limit int) ([]*model.PublishRecord, error) {
	var out []*model.PublishRecord
	for _, r := range l.recs {
		if r.DestinationID == dest && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

//
// ---------------- fixture ----------------
//

type fixture struct {
	router   chi.Router
	counters *memCounters
	grants   *memGrants
	log      *memLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	f := &fixture{
		counters: &memCounters{m: map[string]int64{}},
		grants:   &memGrants{m: map[int64]*model.Grant{}},
		log:      &memLog{},
	}
	access := usecase.NewAccessUseCase(f.grants, "@default_feed", &logger)
	seq := usecase.NewSequenceAllocator(f.counters, &logger)
	srv := apiv1.NewServer(access, seq, f.log, &logger)

	f.router = chi.NewRouter()
	apiv1.RegisterAPIV1(f.router, srv)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

//
// ---------------- tests ----------------
//

func TestCounters_ListAndAdvance(t *testing.T) {
	f := newFixture(t)
	f.counters.m["@realty_feed"] = 41

	rr := f.do(t, http.MethodGet, "/api/v1/counters", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rr.Code, rr.Body.String())
	}
	var list struct {
		Items map[string]int64 `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Items["@realty_feed"] != 41 {
		t.Fatalf("items=%v", list.Items)
	}

	rr = f.do(t, http.MethodPut, "/api/v1/counters/@realty_feed", `{"value":100}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("advance status=%d body=%s", rr.Code, rr.Body.String())
	}
	if f.counters.m["@realty_feed"] != 100 {
		t.Fatalf("counter=%d, want 100", f.counters.m["@realty_feed"])
	}
}

func TestCounters_RegressIsConflict(t *testing.T) {
	f := newFixture(t)
	f.counters.m["@realty_feed"] = 50

	rr := f.do(t, http.MethodPut, "/api/v1/counters/@realty_feed", `{"value":10}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status=%d, want 409; body=%s", rr.Code, rr.Body.String())
	}
	if f.counters.m["@realty_feed"] != 50 {
		t.Fatalf("counter changed to %d", f.counters.m["@realty_feed"])
	}
}

func TestCounters_BadBody(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{}`, `not json`, `{"value":-1}`} {
		rr := f.do(t, http.MethodPut, "/api/v1/counters/@realty_feed", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status=%d, want 400", body, rr.Code)
		}
	}
}

func TestGrants_Lifecycle(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPut, "/api/v1/grants/1001",
		`{"destination_id":"@realty_feed","template":"Звоните: @desk","ttl_hours":24}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put status=%d body=%s", rr.Code, rr.Body.String())
	}
	var g apiv1.Grant
	if err := json.Unmarshal(rr.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.SubmitterID != 1001 || g.DestinationID != "@realty_feed" || !g.Active || g.ExpiresAt == nil {
		t.Fatalf("unexpected grant: %+v", g)
	}

	rr = f.do(t, http.MethodGet, "/api/v1/grants/1001", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Звоните: @desk") {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/api/v1/grants", "")
	var list struct {
		Items []apiv1.Grant `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list.Items) != 1 {
		t.Fatalf("list: err=%v items=%v", err, list.Items)
	}

	rr = f.do(t, http.MethodDelete, "/api/v1/grants/1001", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if f.grants.m[1001].Active {
		t.Fatal("grant still active after delete")
	}
}

func TestGrants_Errors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown submitter", http.MethodGet, "/api/v1/grants/42", "", http.StatusNotFound},
		{"revoke unknown", http.MethodDelete, "/api/v1/grants/42", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/grants/abc", "", http.StatusBadRequest},
		{"empty template", http.MethodPut, "/api/v1/grants/42", `{"template":"  "}`, http.StatusBadRequest},
		{"negative ttl", http.MethodPut, "/api/v1/grants/42", `{"template":"x","ttl_hours":-1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, tc.method, tc.path, tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d, want %d; body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestPublishes_List(t *testing.T) {
	f := newFixture(t)
	f.log.recs = []*model.PublishRecord{
		{ID: "a", DestinationID: "@realty_feed", SequenceNumber: 7, Kind: "photo", Items: 1, Status: model.PublishStatusPublished},
		{ID: "b", DestinationID: "@other", SequenceNumber: 1, Kind: "text", Status: model.PublishStatusPublished},
	}

	rr := f.do(t, http.MethodGet, "/api/v1/publishes?destination=@realty_feed", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var list struct {
		Items []apiv1.PublishRecord `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].SequenceNumber != 7 {
		t.Fatalf("items=%+v", list.Items)
	}

	if rr := f.do(t, http.MethodGet, "/api/v1/publishes", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing destination: status=%d", rr.Code)
	}
	if rr := f.do(t, http.MethodGet, "/api/v1/publishes?destination=@x&limit=0", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status=%d", rr.Code)
	}
}
