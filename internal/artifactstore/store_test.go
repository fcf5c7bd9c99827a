package artifactstore

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"streetcoverage/config"
	"streetcoverage/internal/domain/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	_ "gocloud.dev/blob/memblob"
)

func newTestStore(t *testing.T) repository.ArtifactRepository {
	t.Helper()

	cfg := &config.Config{}
	cfg.ArtifactStore.BucketURL = "mem://"

	lc := fxtest.NewLifecycle(t)
	logger := slog.New(slog.DiscardHandler)

	store, err := NewStore(context.Background(), Params{
		Lifecycle: lc,
		Config:    cfg,
		Logger:    logger,
	})
	require.NoError(t, err)

	lc.RequireStart()
	t.Cleanup(func() { lc.RequireStop() })

	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"type":"FeatureCollection","features":[]}`)

	handle, err := store.PutStream(ctx, "streets", repository.ArtifactTag{AreaDisplayName: "Springfield"}, bytes.NewReader(payload))
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	r, err := store.GetStream(ctx, handle)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, payload, got)

	require.NoError(t, store.Delete(ctx, handle))
	require.NoError(t, store.Delete(ctx, handle)) // idempotent

	_, err = store.GetStream(ctx, handle)
	require.ErrorIs(t, err, repository.ErrArtifactNotFound)
}

func TestStore_FindByTag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tagA := repository.ArtifactTag{AreaDisplayName: "Springfield"}
	tagB := repository.ArtifactTag{AreaDisplayName: "Shelbyville"}

	h1, err := store.PutStream(ctx, "streets", tagA, bytes.NewReader([]byte("a")))
	require.NoError(t, err)
	_, err = store.PutStream(ctx, "route", tagB, bytes.NewReader([]byte("b")))
	require.NoError(t, err)

	metas, err := store.FindByTag(ctx, tagA)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, h1, metas[0].Handle)
}
