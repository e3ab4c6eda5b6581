// Package lexical provides the in-memory ranked-retrieval index over
// barber and service documents, plus the generation-based freshness
// machinery that rebuilds it without blocking query serving.
package lexical

import (
	"context"
	"fmt"
)

// EntityKind identifies what a document describes.
type EntityKind string

const (
	// EntityKindBarber is a person offering services.
	EntityKindBarber EntityKind = "barber"

	// EntityKindService is a bookable service offering.
	EntityKindService EntityKind = "service"
)

// Field is one weighted text field of a document. Weight is the
// repetition factor applied to the field's tokens at build time, so a
// weight-2 field counts twice as much toward term frequency.
type Field struct {
	Text   string
	Weight int
}

// Document is the unit indexed by the lexical index. Documents are
// immutable once indexed; updates require a full rebuild.
type Document struct {
	// EntityID is unique within one index generation.
	EntityID string

	// EntityKind is barber or service.
	EntityKind EntityKind

	// Title is the display name returned with results.
	Title string

	// Description is a short summary returned with results and used as
	// the candidate text for reranking.
	Description string

	// Fields maps field names (bio, specialties, name, role) to
	// weighted text used to build the searchable token stream.
	Fields map[string]Field

	// Metadata is pass-through data returned verbatim with results.
	// The booster reads "location_id" from here; everything else is
	// opaque to the ranking pipeline.
	Metadata map[string]string
}

// DuplicateDocumentError reports a caller contract violation: two
// documents with the same entity ID in one build.
type DuplicateDocumentError struct {
	EntityID string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("duplicate document entity id %q in index build", e.EntityID)
}

// DocumentSource supplies the document set consumed by index builds.
// It is pulled only by the freshness manager, never on the query path.
type DocumentSource interface {
	Documents(ctx context.Context) ([]Document, error)
}
