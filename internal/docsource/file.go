// Package docsource supplies catalog documents to the lexical index.
// Two sources are provided: a YAML catalog file with optional
// filesystem watching, and a SQL catalog for deployments backed by a
// database.
package docsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/barberly/search/internal/lexical"
)

// catalogFile is the YAML catalog schema.
type catalogFile struct {
	Barbers  []barberRecord  `yaml:"barbers"`
	Services []serviceRecord `yaml:"services"`
}

type barberRecord struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Bio         string            `yaml:"bio"`
	Specialties []string          `yaml:"specialties"`
	Role        string            `yaml:"role"`
	LocationID  string            `yaml:"location_id"`
	Metadata    map[string]string `yaml:"metadata"`
}

type serviceRecord struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	LocationID  string            `yaml:"location_id"`
	Metadata    map[string]string `yaml:"metadata"`
}

// FileSource reads documents from a YAML catalog file. It implements
// lexical.DocumentSource.
type FileSource struct {
	path string
}

var _ lexical.DocumentSource = (*FileSource)(nil)

// NewFileSource creates a source over the given catalog path.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("docsource: empty catalog path")
	}
	return &FileSource{path: path}, nil
}

// Documents implements lexical.DocumentSource.
func (s *FileSource) Documents(ctx context.Context) ([]lexical.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", s.path, err)
	}

	docs := make([]lexical.Document, 0, len(catalog.Barbers)+len(catalog.Services))
	for _, b := range catalog.Barbers {
		docs = append(docs, barberDocument(b))
	}
	for _, svc := range catalog.Services {
		docs = append(docs, serviceDocument(svc))
	}
	return docs, nil
}

// Watch triggers onChange whenever the catalog file is written or
// replaced, until ctx is cancelled. Editors and config management
// tools often rename over the watched file, so the parent directory is
// watched and events are filtered by name.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch catalog directory %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		base := filepath.Base(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				slog.Debug("catalog_changed",
					slog.String("path", s.path),
					slog.String("op", event.Op.String()))
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("catalog_watch_error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

// barberDocument maps a barber record to an indexable document. The
// name carries double weight; bio, specialties, and role provide the
// long-tail token stream.
func barberDocument(b barberRecord) lexical.Document {
	metadata := make(map[string]string, len(b.Metadata)+1)
	for k, v := range b.Metadata {
		metadata[k] = v
	}
	if b.LocationID != "" {
		metadata["location_id"] = b.LocationID
	}

	return lexical.Document{
		EntityID:    b.ID,
		EntityKind:  lexical.EntityKindBarber,
		Title:       b.Name,
		Description: b.Bio,
		Fields: map[string]lexical.Field{
			"name":        {Text: b.Name, Weight: 2},
			"bio":         {Text: b.Bio, Weight: 1},
			"specialties": {Text: joinPhrases(b.Specialties), Weight: 2},
			"role":        {Text: b.Role, Weight: 1},
		},
		Metadata: metadata,
	}
}

func serviceDocument(svc serviceRecord) lexical.Document {
	metadata := make(map[string]string, len(svc.Metadata)+1)
	for k, v := range svc.Metadata {
		metadata[k] = v
	}
	if svc.LocationID != "" {
		metadata["location_id"] = svc.LocationID
	}

	return lexical.Document{
		EntityID:    svc.ID,
		EntityKind:  lexical.EntityKindService,
		Title:       svc.Name,
		Description: svc.Description,
		Fields: map[string]lexical.Field{
			"name":        {Text: svc.Name, Weight: 2},
			"description": {Text: svc.Description, Weight: 1},
		},
		Metadata: metadata,
	}
}

func joinPhrases(phrases []string) string {
	out := ""
	for i, p := range phrases {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
