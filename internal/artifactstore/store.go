// Package artifactstore implements spec §4.10 ArtifactStore: the area-wide
// street GeoJSON moves as a byte stream, never
// embedded in the primary document store, since a single area's GeoJSON can
// run to tens of MB.
package artifactstore

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"streetcoverage/config"
	"streetcoverage/internal/domain/repository"
	"streetcoverage/internal/errors"

	"github.com/google/uuid"
	"gocloud.dev/blob"

	// Register the file:// and gs:// bucket schemes so BucketURL can name
	// either a local dev directory or a production GCS bucket without the
	// caller choosing a driver package explicitly.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"

	"go.uber.org/fx"
)

// Store implements repository.ArtifactRepository over a gocloud.dev/blob
// bucket. Handles are bucket keys of the form "<area>/<id-hint>-<uuid>";
// callers must still treat them as opaque per the spec's contract.
type Store struct {
	bucket *blob.Bucket
	logger *slog.Logger
}

// Params is the fx constructor input for the artifact bucket.
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewStore opens the configured bucket and wires a lifecycle hook to close
// it on shutdown.
func NewStore(ctx context.Context, params Params) (repository.ArtifactRepository, error) {
	if params.Config.ArtifactStore.BucketURL == "" {
		return nil, errors.New("artifactstore: bucketURL is required")
	}

	bucket, err := blob.OpenBucket(ctx, params.Config.ArtifactStore.BucketURL)
	if err != nil {
		return nil, errors.Wrap(err, "artifactstore: open bucket failed")
	}

	s := &Store{bucket: bucket, logger: params.Logger}

	params.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bucket.Close()
		},
	})

	return s, nil
}

// PutStream writes r's contents incrementally so peak memory stays bounded
// independent of artifact size (spec §9 "Artifact streaming").
func (s *Store) PutStream(ctx context.Context, idHint string, tag repository.ArtifactTag, r io.Reader) (string, error) {
	handle := newHandle(tag.AreaDisplayName, idHint)

	w, err := s.bucket.NewWriter(ctx, handle, &blob.WriterOptions{
		Metadata: map[string]string{
			"area_display_name": tag.AreaDisplayName,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "artifactstore: open writer failed")
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()

		return "", errors.Wrap(err, "artifactstore: write failed")
	}

	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "artifactstore: commit failed")
	}

	s.logger.Info("artifact stored", slog.String("handle", handle), slog.String("area", tag.AreaDisplayName))

	return handle, nil
}

// GetStream opens a streaming reader for the artifact at handle. Callers
// must close the returned reader.
func (s *Store) GetStream(ctx context.Context, handle string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, handle, nil)
	if err != nil {
		if s.bucket.IsNotExist(err) {
			return nil, repository.ErrArtifactNotFound
		}

		return nil, errors.Wrap(err, "artifactstore: open reader failed")
	}

	return r, nil
}

// Delete removes the artifact at handle. Idempotent: deleting an
// already-absent handle is not an error (spec §4.10).
func (s *Store) Delete(ctx context.Context, handle string) error {
	err := s.bucket.Delete(ctx, handle)
	if err != nil && !s.bucket.IsNotExist(err) {
		return errors.Wrap(err, "artifactstore: delete failed")
	}

	return nil
}

// FindByTag lists every artifact stored under the given area's key prefix.
func (s *Store) FindByTag(ctx context.Context, tag repository.ArtifactTag) ([]repository.ArtifactMeta, error) {
	prefix := areaPrefix(tag.AreaDisplayName)

	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})

	var out []repository.ArtifactMeta
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "artifactstore: list failed")
		}

		out = append(out, repository.ArtifactMeta{
			Handle:          obj.Key,
			AreaDisplayName: tag.AreaDisplayName,
			SizeBytes:       obj.Size,
		})
	}

	return out, nil
}

func areaPrefix(areaDisplayName string) string {
	return sanitizeKeyPart(areaDisplayName) + "/"
}

func newHandle(areaDisplayName, idHint string) string {
	return areaPrefix(areaDisplayName) + sanitizeKeyPart(idHint) + "-" + uuid.NewString()
}

// sanitizeKeyPart keeps bucket keys free of path separators a display name
// or id hint might otherwise introduce.
func sanitizeKeyPart(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")

	return s
}
