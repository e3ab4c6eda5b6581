package lexical

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a generation serves before it is considered
// stale and rebuilt.
const DefaultTTL = time.Hour

// State is the freshness state of a managed index.
type State int

const (
	// StateStale means no generation is built yet, or the current one
	// has outlived its TTL.
	StateStale State = iota
	// StateBuilding means a rebuild is in flight.
	StateBuilding
	// StateCurrent means the current generation is within its TTL.
	StateCurrent
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateStale:
		return "stale"
	case StateBuilding:
		return "building"
	case StateCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// Generation is one immutable, versioned build of the lexical index.
// Queries in flight against an older generation complete against it;
// they are never redirected mid-query.
type Generation struct {
	Version uint64
	Index   *Index
	BuiltAt time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL sets the generation time-to-live.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithParams sets the scoring parameters used for builds.
func WithParams(p Params) ManagerOption {
	return func(m *Manager) {
		m.params = p
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns index freshness: it pulls documents from the source,
// builds generations, and publishes them atomically. The read path is
// lock-free; only the manager mutates index state, and only by
// swapping the generation pointer.
type Manager struct {
	source DocumentSource
	params Params
	ttl    time.Duration
	now    func() time.Time

	current    atomic.Pointer[Generation]
	version    atomic.Uint64
	building   atomic.Bool
	group      singleflight.Group
	refreshing atomic.Bool
}

// NewManager creates a freshness manager over the given document source.
func NewManager(source DocumentSource, opts ...ManagerOption) (*Manager, error) {
	if source == nil {
		return nil, fmt.Errorf("lexical: nil document source")
	}
	m := &Manager{
		source: source,
		params: DefaultParams(),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State reports the freshness state machine position.
func (m *Manager) State() State {
	if m.building.Load() {
		return StateBuilding
	}
	gen := m.current.Load()
	if gen == nil || m.now().Sub(gen.BuiltAt) >= m.ttl {
		return StateStale
	}
	return StateCurrent
}

// Current returns the generation to serve a query against. On first
// use it builds synchronously; once a generation exists, a stale one
// keeps serving while a rebuild is kicked off in the background.
func (m *Manager) Current(ctx context.Context) (*Generation, error) {
	gen := m.current.Load()
	if gen == nil {
		if err := m.Refresh(ctx); err != nil {
			return nil, err
		}
		return m.current.Load(), nil
	}

	if m.now().Sub(gen.BuiltAt) >= m.ttl {
		m.refreshAsync()
	}
	return gen, nil
}

// Refresh rebuilds the index from the document source and atomically
// publishes the new generation. Concurrent callers collapse into a
// single in-flight build. On failure the prior generation remains
// authoritative.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.group.Do("rebuild", func() (interface{}, error) {
		m.building.Store(true)
		defer m.building.Store(false)

		start := m.now()
		docs, err := m.source.Documents(ctx)
		if err != nil {
			return nil, fmt.Errorf("load documents: %w", err)
		}

		index, err := Build(docs, m.params)
		if err != nil {
			return nil, fmt.Errorf("build index: %w", err)
		}

		gen := &Generation{
			Version: m.version.Add(1),
			Index:   index,
			BuiltAt: m.now(),
		}
		m.current.Store(gen)

		slog.Debug("lexical_generation_published",
			slog.Uint64("version", gen.Version),
			slog.Int("documents", index.Len()),
			slog.Duration("build_time", m.now().Sub(start)))
		return nil, nil
	})
	if err != nil {
		slog.Warn("lexical_rebuild_failed, previous generation keeps serving",
			slog.String("error", err.Error()))
	}
	return err
}

// refreshAsync triggers a background rebuild unless one is already
// being triggered. Query serving is never blocked by a rebuild.
func (m *Manager) refreshAsync() {
	if !m.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer m.refreshing.Store(false)
		// Rebuilds outlive the query that noticed staleness.
		_ = m.Refresh(context.Background())
	}()
}

// Start runs the TTL-driven refresh loop until ctx is cancelled. The
// check interval is a fraction of the TTL so a failed build is retried
// well before the next full TTL elapses.
func (m *Manager) Start(ctx context.Context) {
	interval := m.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.State() == StateStale {
				_ = m.Refresh(ctx)
			}
		}
	}
}
