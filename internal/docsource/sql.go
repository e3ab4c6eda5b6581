package docsource

import (
	"context"
	"database/sql"
	"fmt"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/barberly/search/internal/lexical"
)

// SQLSource reads documents from the marketplace database. It
// implements lexical.DocumentSource and is pulled only by the
// freshness manager, never per query.
type SQLSource struct {
	db *sql.DB
}

var _ lexical.DocumentSource = (*SQLSource)(nil)

// NewSQLSource creates a source over an open database handle. The
// caller owns the handle's lifecycle.
func NewSQLSource(db *sql.DB) (*SQLSource, error) {
	if db == nil {
		return nil, fmt.Errorf("docsource: nil database handle")
	}
	return &SQLSource{db: db}, nil
}

// OpenSQLite opens a SQLite catalog database and wraps it in a
// SQLSource.
func OpenSQLite(dsn string) (*SQLSource, func() error, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog database: %w", err)
	}
	src, err := NewSQLSource(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return src, db.Close, nil
}

const barberQuery = `
SELECT id, name, COALESCE(bio, ''), COALESCE(specialties, ''), COALESCE(role, ''), COALESCE(location_id, '')
FROM barbers
ORDER BY id`

const serviceQuery = `
SELECT id, name, COALESCE(description, ''), COALESCE(location_id, '')
FROM services
ORDER BY id`

// Documents implements lexical.DocumentSource. Rows are read in id
// order so repeated loads produce the same insertion order, keeping
// tie-breaks stable across rebuilds.
func (s *SQLSource) Documents(ctx context.Context) ([]lexical.Document, error) {
	var docs []lexical.Document

	rows, err := s.db.QueryContext(ctx, barberQuery)
	if err != nil {
		return nil, fmt.Errorf("query barbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, bio, specialties, role, locationID string
		if err := rows.Scan(&id, &name, &bio, &specialties, &role, &locationID); err != nil {
			return nil, fmt.Errorf("scan barber row: %w", err)
		}
		docs = append(docs, barberDocument(barberRecord{
			ID:          id,
			Name:        name,
			Bio:         bio,
			Specialties: []string{specialties},
			Role:        role,
			LocationID:  locationID,
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate barbers: %w", err)
	}

	svcRows, err := s.db.QueryContext(ctx, serviceQuery)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer svcRows.Close()

	for svcRows.Next() {
		var id, name, description, locationID string
		if err := svcRows.Scan(&id, &name, &description, &locationID); err != nil {
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		docs = append(docs, serviceDocument(serviceRecord{
			ID:          id,
			Name:        name,
			Description: description,
			LocationID:  locationID,
		}))
	}
	if err := svcRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return docs, nil
}
