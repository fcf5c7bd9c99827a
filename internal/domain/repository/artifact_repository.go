package repository

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ErrArtifactNotFound is returned when a handle has no backing artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactTag identifies artifacts belonging to one area, for find_by_tag.
type ArtifactTag struct {
	AreaDisplayName string
}

// ArtifactMeta describes a stored artifact without its body.
type ArtifactMeta struct {
	Handle          string
	AreaDisplayName string
	SizeBytes       int64
}

// ArtifactRepository is the spec §4.10 ArtifactStore contract: large
// derived artifacts (the area-wide street GeoJSON) move as byte streams
// and are never embedded in the primary document store. Route GPX is not
// stored here; it is rendered on demand from the stored route.
type ArtifactRepository interface {
	// PutStream writes r's contents under a handle derived from idHint,
	// tagged with the owning area, and returns the opaque handle.
	PutStream(ctx context.Context, idHint string, tag ArtifactTag, r io.Reader) (string, error)

	// GetStream opens a reader for the artifact at handle. Callers must
	// close the returned reader.
	GetStream(ctx context.Context, handle string) (io.ReadCloser, error)

	// Delete removes the artifact at handle. Idempotent: deleting an
	// already-absent handle is not an error.
	Delete(ctx context.Context, handle string) error

	// FindByTag lists artifacts belonging to the given area.
	FindByTag(ctx context.Context, tag ArtifactTag) ([]ArtifactMeta, error)
}
