// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package cover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
)

// a minimal 1x1 PNG, enough for mimetype.Detect to recognize as image/png.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
	0xde, 0x00, 0x00, 0x00, 0x0c, 0x49, 0x44, 0x41,
	0x54, 0x08, 0xd7, 0x63, 0xf8, 0xcf, 0xc0, 0x00,
	0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xdd, 0x8d,
	0xb0, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
	0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestResolveSidecarCover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), tinyPNG, 0o644))

	store := kv.NewMemoryStore()
	e := New(store)
	blob, err := e.Resolve(context.Background(), filepath.Join(dir, "track.mp3"))
	require.NoError(t, err)
	require.NotNil(t, blob)
	assert.Equal(t, "image/png", blob.MIME)
	assert.NotEmpty(t, blob.Hash)
}

func TestResolveNoCoverReturnsNil(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("x"), 0o644))

	blob, err := New(kv.NewMemoryStore()).Resolve(context.Background(), filepath.Join(dir, "track.mp3"))
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestResolveIsIdempotentWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), tinyPNG, 0o644))

	store := kv.NewMemoryStore()
	e := New(store)
	ctx := context.Background()

	blob1, err := e.Resolve(ctx, filepath.Join(dir, "track.mp3"))
	require.NoError(t, err)
	blob2, err := e.Resolve(ctx, filepath.Join(dir, "track.mp3"))
	require.NoError(t, err)
	assert.Equal(t, blob1.Hash, blob2.Hash)

	pairs, err := store.ScanPrefix(ctx, "artwork:")
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestLookupRoundTrips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), tinyPNG, 0o644))

	store := kv.NewMemoryStore()
	e := New(store)
	ctx := context.Background()

	blob, err := e.Resolve(ctx, filepath.Join(dir, "track.mp3"))
	require.NoError(t, err)

	looked, err := e.Lookup(ctx, blob.Hash)
	require.NoError(t, err)
	require.NotNil(t, looked)
	assert.Equal(t, blob.MIME, looked.MIME)
	assert.Equal(t, blob.Bytes, looked.Bytes)
}

func TestArtworkKeyMatchesStoredKey(t *testing.T) {
	assert.Equal(t, "artwork:deadbeef", identity.ArtworkKey("deadbeef"))
}

func TestPersistAndLookupTrackCoverHash(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store)
	ctx := context.Background()
	albumID := identity.AlbumID("/music/album", "Album")

	hash, err := e.LookupTrackCoverHash(ctx, albumID, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, e.PersistTrackCover(ctx, albumID, 1, 1, "deadbeef"))
	require.NoError(t, e.PersistAlbumCover(ctx, albumID, "deadbeef"))

	hash, err = e.LookupTrackCoverHash(ctx, albumID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hash)

	raw, ok, err := store.Get(ctx, identity.AlbumCoverKey(albumID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 'd', 'e', 'a', 'd', 'b', 'e', 'e', 'f'}, raw)
}
