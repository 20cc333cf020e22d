// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrevar/musfuse/internal/cover"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
	"github.com/ambrevar/musfuse/internal/mapper"
	"github.com/ambrevar/musfuse/internal/scanner"
	"github.com/ambrevar/musfuse/internal/tags"
	"github.com/ambrevar/musfuse/internal/transcode"
	"github.com/ambrevar/musfuse/internal/workerpool"
)

func TestOpenStreamPassthroughForLossySource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mp3 bytes"), 0o644))

	store := kv.NewMemoryStore()
	e := New(
		tags.New(store),
		cover.New(store),
		transcode.New(workerpool.New(2), "ffmpeg", nil),
	)

	track := mapper.TrackEntry{
		AlbumID:    identity.AlbumID(dir, "album"),
		Disc:       1,
		Index:      1,
		SourcePath: path,
		HasCue:     false,
	}

	result, err := e.OpenStream(context.Background(), track, scanner.FormatMP3, "")
	require.NoError(t, err)
	assert.Equal(t, transcode.PassthroughLossy, result.Policy)
	assert.Equal(t, "audio/mpeg", result.MIME)

	var total []byte
	for chunk := range result.Chunks {
		total = append(total, chunk.Bytes...)
	}
	assert.Equal(t, "fake mp3 bytes", string(total))
}

func TestOpenStreamPrefersCachedArtwork(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store := kv.NewMemoryStore()
	coverExt := cover.New(store)
	art := &cover.ArtworkBlob{Bytes: []byte{1, 2, 3}, MIME: "image/png", Hash: "cachedhash"}
	require.NoError(t, store.Put(context.Background(), identity.ArtworkKey(art.Hash), encodeForTest(art)))

	e := New(tags.New(store), coverExt, transcode.New(workerpool.New(1), "ffmpeg", nil))
	track := mapper.TrackEntry{AlbumID: identity.AlbumID(dir, "album"), Disc: 1, Index: 1, SourcePath: path}

	result, err := e.OpenStream(context.Background(), track, scanner.FormatMP3, "cachedhash")
	require.NoError(t, err)
	require.NotNil(t, result.Artwork)
	assert.Equal(t, "cachedhash", result.Artwork.Hash)
	for range result.Chunks {
	}
}

func encodeForTest(b *cover.ArtworkBlob) []byte {
	mimeBytes := []byte(b.MIME)
	payload := make([]byte, 2+len(mimeBytes)+len(b.Bytes))
	payload[0] = byte(len(mimeBytes) >> 8)
	payload[1] = byte(len(mimeBytes))
	copy(payload[2:], mimeBytes)
	copy(payload[2+len(mimeBytes):], b.Bytes)
	return kv.EncodeVersioned(kv.SchemaV1, payload)
}
