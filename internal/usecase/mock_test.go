//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/adapter"
	"telegram-object-publisher/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- MockCounterStore ----

type MockCounterStore struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int

	IncrementErr error
	// Regress makes the next Increment return this value instead of the real one.
	Regress int64
}

var _ repository.CounterStore = (*MockCounterStore)(nil)

func NewMockCounterStore() *MockCounterStore {
	return &MockCounterStore{values: make(map[string]int64)}
}

func (m *MockCounterStore) Increment(ctx context.Context, dest string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.IncrementErr != nil {
		return 0, m.IncrementErr
	}
	if m.Regress != 0 {
		v := m.Regress
		m.Regress = 0
		return v, nil
	}
	m.values[dest]++
	return m.values[dest], nil
}

func (m *MockCounterStore) LoadAll(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *MockCounterStore) Set(ctx context.Context, dest string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value < m.values[dest] {
		return domain.ErrCounterRegress
	}
	m.values[dest] = value
	return nil
}

func (m *MockCounterStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ---- MockGrantRepo ----

type MockGrantRepo struct {
	mu     sync.RWMutex
	grants map[int64]*model.Grant

	FindErr error
}

var _ repository.GrantRepository = (*MockGrantRepo)(nil)

func NewMockGrantRepo() *MockGrantRepo {
	return &MockGrantRepo{grants: make(map[int64]*model.Grant)}
}

func (m *MockGrantRepo) Save(ctx context.Context, g *model.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.grants[g.SubmitterID] = &cp
	return nil
}

func (m *MockGrantRepo) FindBySubmitter(ctx context.Context, id int64) (*model.Grant, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *MockGrantRepo) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.Active = false
	g.UpdatedAt = time.Now()
	return nil
}

func (m *MockGrantRepo) ListActive(ctx context.Context) ([]*model.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Grant
	for _, g := range m.grants {
		if g.Active {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockGrantRepo) ExpireBefore(ctx context.Context, t time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, g := range m.grants {
		if g.Active && g.ExpiresAt != nil && !g.ExpiresAt.After(t) {
			g.Active = false
			n++
		}
	}
	return n, nil
}

// grant seeds an active grant with no expiry.
func (m *MockGrantRepo) grant(id int64, dest, template string) {
	g, _ := model.NewGrant(id, dest, template, 0)
	_ = m.Save(context.Background(), g)
}

// ---- MockPublishLog ----

type MockPublishLog struct {
	mu      sync.Mutex
	Records []*model.PublishRecord
}

var _ repository.PublishLogRepository = (*MockPublishLog)(nil)

func (m *MockPublishLog) Save(ctx context.Context, rec *model.PublishRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockPublishLog) ListRecent(ctx context.Context, dest string, limit int) ([]*model.PublishRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PublishRecord
	for i := len(m.Records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.Records[i].DestinationID == dest {
			out = append(out, m.Records[i])
		}
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- MockPublisher ----

type MockPublisher struct {
	mu   sync.Mutex
	Sent []*model.PublishRequest

	PublishFunc func(ctx context.Context, req *model.PublishRequest) error
	published   chan *model.PublishRequest
}

var _ adapter.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{published: make(chan *model.PublishRequest, 64)}
}

func (m *MockPublisher) Publish(ctx context.Context, req *model.PublishRequest) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, req)
	m.mu.Unlock()
	m.published <- req
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, req)
	}
	return nil
}

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Next waits for the next publish call.
func (m *MockPublisher) Next(timeout time.Duration) (*model.PublishRequest, error) {
	select {
	case req := <-m.published:
		return req, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for publish")
	}
}

// ---- MockNotifier ----

type notice struct {
	SubmitterID int64
	Text        string
}

type MockNotifier struct {
	notices chan notice
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{notices: make(chan notice, 64)}
}

func (m *MockNotifier) Notify(ctx context.Context, submitterID int64, text string) error {
	m.notices <- notice{SubmitterID: submitterID, Text: text}
	return nil
}

func (m *MockNotifier) Next(timeout time.Duration) (notice, error) {
	select {
	case n := <-m.notices:
		return n, nil
	case <-time.After(timeout):
		return notice{}, errors.New("timed out waiting for notification")
	}
}

// ---- MockClaimer ----

type MockClaimer struct {
	mu      sync.Mutex
	claimed map[string]bool
}

var _ adapter.SubmissionClaimer = (*MockClaimer)(nil)

func NewMockClaimer() *MockClaimer { return &MockClaimer{claimed: make(map[string]bool)} }

func (m *MockClaimer) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *MockClaimer) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, key)
	return nil
}

// ---- Translator ----

// keyTranslator renders "key arg1 arg2" so assertions don't depend on locale files.
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	parts := []string{key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, " ")
}
