package lexical

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a swappable document set and counts loads.
type fakeSource struct {
	mu    sync.Mutex
	docs  []Document
	err   error
	loads atomic.Int32
	delay time.Duration
}

func (s *fakeSource) Documents(ctx context.Context) ([]Document, error) {
	s.loads.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func (s *fakeSource) set(docs []Document, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = docs
	s.err = err
}

func TestNewManagerRequiresSource(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)
}

func TestManagerStateMachine(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src, WithTTL(time.Hour), WithClock(clock))
	require.NoError(t, err)

	assert.Equal(t, StateStale, m.State(), "no generation built yet")

	gen, err := m.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, uint64(1), gen.Version)
	assert.Equal(t, StateCurrent, m.State())

	// Past the TTL the generation is stale again.
	now = now.Add(2 * time.Hour)
	assert.Equal(t, StateStale, m.State())
}

func TestManagerFirstUseBuildsSynchronously(t *testing.T) {
	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src)
	require.NoError(t, err)

	gen, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Index.Len())
	assert.Equal(t, int32(1), src.loads.Load())

	// A fresh generation is served without reloading.
	again, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, gen, again)
	assert.Equal(t, int32(1), src.loads.Load())
}

func TestManagerFirstBuildFailurePropagates(t *testing.T) {
	src := &fakeSource{err: errors.New("database offline")}
	m, err := NewManager(src)
	require.NoError(t, err)

	_, err = m.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateStale, m.State())
}

func TestManagerBuildFailureKeepsPreviousGeneration(t *testing.T) {
	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src)
	require.NoError(t, err)

	gen, err := m.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), gen.Version)

	src.set(nil, errors.New("database offline"))
	require.Error(t, m.Refresh(context.Background()))

	// The prior generation remains authoritative.
	current, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), current.Version)
	assert.Equal(t, 1, current.Index.Len())

	// Recovery publishes a new generation.
	src.set([]Document{doc("1", "Mike Fade", ""), doc("2", "Classic Barber", "")}, nil)
	require.NoError(t, m.Refresh(context.Background()))

	current, err = m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), current.Version)
	assert.Equal(t, 2, current.Index.Len())
}

func TestManagerBuildFailureFromDuplicateDocs(t *testing.T) {
	src := &fakeSource{docs: []Document{doc("1", "Mike", ""), doc("1", "Mike Again", "")}}
	m, err := NewManager(src)
	require.NoError(t, err)

	_, err = m.Current(context.Background())
	require.Error(t, err)

	var dup *DuplicateDocumentError
	assert.ErrorAs(t, err, &dup)
}

func TestManagerCollapsesConcurrentRebuilds(t *testing.T) {
	src := &fakeSource{
		docs:  []Document{doc("1", "Mike Fade", "")},
		delay: 50 * time.Millisecond,
	}
	m, err := NewManager(src)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Refresh(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.loads.Load(), "concurrent rebuilds collapse into one")
	gen, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen.Version)
}

func TestManagerRebuildAtomicity(t *testing.T) {
	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src)
	require.NoError(t, err)

	old, err := m.Current(context.Background())
	require.NoError(t, err)

	src.set([]Document{doc("2", "Classic Barber", ""), doc("3", "Beard Trim", "")}, nil)
	require.NoError(t, m.Refresh(context.Background()))

	// A query holding the old generation keeps seeing its full document
	// set; the new generation is complete from the moment it is
	// published. No mixed state is observable.
	assert.Equal(t, 1, old.Index.Len())
	assert.Len(t, old.Index.Search([]string{"fade"}, 10), 1)

	fresh, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Index.Len())
	assert.Empty(t, fresh.Index.Search([]string{"fade"}, 10))
	assert.Len(t, fresh.Index.Search([]string{"beard"}, 10), 1)
}

func TestManagerStartStopsOnCancel(t *testing.T) {
	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func TestManagerStartRefreshesStaleGeneration(t *testing.T) {
	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src, WithTTL(100*time.Millisecond))
	require.NoError(t, err)

	gen, err := m.Current(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	assert.Eventually(t, func() bool {
		g := m.current.Load()
		return g != nil && g.Version > gen.Version
	}, 5*time.Second, 20*time.Millisecond)
}

func TestManagerStaleGenerationKeepsServing(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	src := &fakeSource{docs: []Document{doc("1", "Mike Fade", "")}}
	m, err := NewManager(src, WithTTL(time.Minute), WithClock(clock))
	require.NoError(t, err)

	gen, err := m.Current(context.Background())
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(5 * time.Minute)
	mu.Unlock()

	// Stale generation serves immediately; the rebuild happens in the
	// background.
	served, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gen.Version, served.Version)

	assert.Eventually(t, func() bool {
		g := m.current.Load()
		return g != nil && g.Version > gen.Version
	}, 2*time.Second, 10*time.Millisecond)
}
