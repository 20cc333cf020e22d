// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package tags

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
)

func newRef(t *testing.T) TrackRef {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not actually audio"), 0o644))
	return TrackRef{AlbumID: identity.AlbumID(dir, "album"), Disc: 1, Index: 1, SourcePath: path}
}

func TestLoadEffectiveWithNoOverlayReturnsSourceOnly(t *testing.T) {
	ref := newRef(t)
	e := New(kv.NewMemoryStore())

	merged, err := e.LoadEffective(context.Background(), ref)
	require.NoError(t, err)
	assert.NotNil(t, merged)
}

func TestApplyDeltaThenLoadEffectiveMerges(t *testing.T) {
	ref := newRef(t)
	e := New(kv.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, e.ApplyDelta(ctx, ref, TagMap{"TITLE": {"Overlaid Title"}}))

	merged, err := e.LoadEffective(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"Overlaid Title"}, merged["TITLE"])
}

func TestApplyDeltaTombstoneThenEvictRestoresNothingButClearsOverlay(t *testing.T) {
	ref := newRef(t)
	e := New(kv.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, e.ApplyDelta(ctx, ref, TagMap{"GENRE": {"Rock"}}))
	require.NoError(t, e.ApplyDelta(ctx, ref, TagMap{"GENRE": {}}))

	merged, err := e.LoadEffective(ctx, ref)
	require.NoError(t, err)
	_, present := merged["GENRE"]
	assert.False(t, present)

	require.NoError(t, e.Evict(ctx, ref))
	key := identity.TrackOverlayKey(ref.AlbumID, ref.Disc, ref.Index)
	_, ok, err := e.store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyDeltaSerializesConcurrentWriters(t *testing.T) {
	ref := newRef(t)
	e := New(kv.NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = e.ApplyDelta(ctx, ref, TagMap{"COUNTER": {itoaTest(n)}})
		}(i)
	}
	wg.Wait()

	merged, err := e.LoadEffective(ctx, ref)
	require.NoError(t, err)
	require.Len(t, merged["COUNTER"], 1)
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
