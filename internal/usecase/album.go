package usecase

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/infra/metrics"
)

// DefaultDebounce is how long an album stays open after its first part arrives.
const DefaultDebounce = 1500 * time.Millisecond

// FlushFunc receives the complete, arrival-ordered member list of a group.
// Ownership of the slice passes to the callee.
type FlushFunc func(groupKey string, members []*model.Submission)

type albumGroup struct {
	key          string
	firstArrival time.Time
	members      []*model.Submission
	timer        *time.Timer
}

// AlbumAggregator collects album parts that share a group key and flushes
// them together once the debounce window measured from the first part has
// elapsed. The transport never says how many parts an album has, so the
// window is a policy constant rather than a completion signal.
//
// A group is OPEN from its first part until its timer fires; the flush
// removes it (FLUSHED is terminal). Each key has at most one open group.
type AlbumAggregator struct {
	window  time.Duration
	onFlush FlushFunc
	log     *zerolog.Logger

	mu     sync.Mutex
	groups map[string]*albumGroup
	// recently flushed keys, to recognise parts that arrive after their album went out
	flushed map[string]time.Time
	closed  bool
}

func NewAlbumAggregator(window time.Duration, onFlush FlushFunc, logger *zerolog.Logger) *AlbumAggregator {
	if window <= 0 {
		window = DefaultDebounce
	}
	l := logger.With().Str("component", "AlbumAggregator").Logger()
	return &AlbumAggregator{
		window:  window,
		onFlush: onFlush,
		log:     &l,
		groups:  make(map[string]*albumGroup),
		flushed: make(map[string]time.Time),
	}
}

// Add appends the part to the open group for its key, opening a new group
// and scheduling its flush if there is none. It reports whether a group was opened.
func (a *AlbumAggregator) Add(sub *model.Submission) bool {
	if sub == nil || sub.GroupKey == "" {
		return false
	}
	key := sub.GroupKey

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.log.Warn().Str("group", key).Msg("aggregator closed; flushing part immediately")
		a.deliver(key, []*model.Submission{sub})
		return true
	}
	if g, ok := a.groups[key]; ok {
		g.members = append(g.members, sub)
		a.mu.Unlock()
		return false
	}

	now := time.Now()
	if at, ok := a.flushed[key]; ok {
		delete(a.flushed, key)
		metrics.IncAlbumAnomaly("late_part")
		a.log.Warn().Err(domain.ErrAggregationAnomaly).
			Str("group", key).
			Dur("since_flush", now.Sub(at)).
			Msg("part arrived after its album was flushed; starting a new group")
	}
	a.pruneFlushedLocked(now)

	g := &albumGroup{key: key, firstArrival: now, members: []*model.Submission{sub}}
	g.timer = time.AfterFunc(a.window, func() { a.flush(g) })
	a.groups[key] = g
	a.mu.Unlock()
	return true
}

// flush takes the group out of the map and hands its members over.
// A group that is no longer the live one for its key was already flushed.
func (a *AlbumAggregator) flush(g *albumGroup) {
	a.mu.Lock()
	if cur, ok := a.groups[g.key]; !ok || cur != g {
		a.mu.Unlock()
		metrics.IncAlbumAnomaly("duplicate_flush")
		a.log.Warn().Err(domain.ErrAggregationAnomaly).Str("group", g.key).Msg("duplicate flush ignored")
		return
	}
	delete(a.groups, g.key)
	a.flushed[g.key] = time.Now()
	members := g.members
	g.members = nil
	a.mu.Unlock()

	a.log.Debug().Str("group", g.key).Int("parts", len(members)).
		Dur("open_for", time.Since(g.firstArrival)).Msg("album flushed")
	a.deliver(g.key, members)
}

func (a *AlbumAggregator) deliver(key string, members []*model.Submission) {
	metrics.ObserveAlbumSize(len(members))
	if a.onFlush != nil {
		a.onFlush(key, members)
	}
}

func (a *AlbumAggregator) pruneFlushedLocked(now time.Time) {
	retention := 10 * a.window
	for k, at := range a.flushed {
		if now.Sub(at) > retention {
			delete(a.flushed, k)
		}
	}
}

// Pending returns the number of open groups.
func (a *AlbumAggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Close flushes every open group right away and makes later parts flush on arrival.
func (a *AlbumAggregator) Close() {
	a.mu.Lock()
	a.closed = true
	open := make([]*albumGroup, 0, len(a.groups))
	for _, g := range a.groups {
		if g.timer.Stop() {
			open = append(open, g)
		}
	}
	a.mu.Unlock()

	for _, g := range open {
		a.flush(g)
	}
}
