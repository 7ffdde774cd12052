package service

import (
	"context"
	"strings"
	"testing"

	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) *StorageService {
	t.Helper()
	return NewStorageService(&config.Config{Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()}})
}

func TestLocalStorageRoundTrip(t *testing.T) {
	storage := newLocalStorage(t)
	ctx := context.Background()

	ref, err := storage.Save(ctx, "answers", pngBytes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "answers/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, mimeType, err := storage.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mimeType)
}

func TestLocalStorageDeleteNotifiesAndRemoves(t *testing.T) {
	storage := newLocalStorage(t)
	ctx := context.Background()
	var changed []string
	storage.OnChanged(func(ref string) { changed = append(changed, ref) })

	ref, err := storage.Save(ctx, "hints", pngBytes)
	require.NoError(t, err)
	require.NoError(t, storage.Delete(ctx, ref))
	assert.Equal(t, []string{ref}, changed)

	_, _, err = storage.Fetch(ctx, ref)
	assert.ErrorIs(t, err, util.ErrBlobFetch)
}

func TestLocalStorageRejectsEmptyRef(t *testing.T) {
	storage := newLocalStorage(t)

	_, _, err := storage.Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, util.ErrBlobFetch)
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	p := &LocalStorageProvider{Root: root}

	dst, err := p.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dst, root))
}
