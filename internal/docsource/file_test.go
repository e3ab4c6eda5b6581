package docsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barberly/search/internal/lexical"
)

const sampleCatalog = `
barbers:
  - id: b-1
    name: Mike Fade Specialist
    bio: Ten years of fades and lineups
    specialties: [skin fade, high fade]
    role: barber
    location_id: loc-1
services:
  - id: s-1
    name: High Fade
    description: Tight high fade with clipper work
    location_id: loc-1
    metadata:
      duration_min: "30"
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceRequiresPath(t *testing.T) {
	_, err := NewFileSource("")
	assert.Error(t, err)
}

func TestFileSourceLoadsCatalog(t *testing.T) {
	src, err := NewFileSource(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	barber := docs[0]
	assert.Equal(t, "b-1", barber.EntityID)
	assert.Equal(t, lexical.EntityKindBarber, barber.EntityKind)
	assert.Equal(t, "Mike Fade Specialist", barber.Title)
	assert.Equal(t, 2, barber.Fields["name"].Weight)
	assert.Contains(t, barber.Fields["specialties"].Text, "high fade")
	assert.Equal(t, "loc-1", barber.Metadata["location_id"])

	service := docs[1]
	assert.Equal(t, "s-1", service.EntityID)
	assert.Equal(t, lexical.EntityKindService, service.EntityKind)
	assert.Equal(t, "30", service.Metadata["duration_min"])
	assert.Equal(t, "loc-1", service.Metadata["location_id"])
}

func TestFileSourceMissingFile(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	_, err = src.Documents(context.Background())
	assert.Error(t, err)
}

func TestFileSourceMalformedYAML(t *testing.T) {
	src, err := NewFileSource(writeCatalog(t, "barbers: [unclosed"))
	require.NoError(t, err)

	_, err = src.Documents(context.Background())
	assert.Error(t, err)
}

func TestFileSourceWatchFiresOnWrite(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	src, err := NewFileSource(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	require.NoError(t, src.Watch(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	// Give the watcher goroutine a moment to start receiving.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog+"\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watch callback not invoked after catalog write")
	}
}

func TestFileSourceWatchIgnoresSiblingFiles(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	src, err := NewFileSource(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	require.NoError(t, src.Watch(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	time.Sleep(50 * time.Millisecond)
	sibling := filepath.Join(filepath.Dir(path), "other.yaml")
	require.NoError(t, os.WriteFile(sibling, []byte("x: 1\n"), 0o644))

	select {
	case <-changed:
		t.Fatal("watch callback fired for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
