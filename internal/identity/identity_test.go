// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlbumIDStableAcrossCalls(t *testing.T) {
	a := AlbumID("/music/Album", "Greatest Hits")
	b := AlbumID("/music/Album", "Greatest Hits")
	assert.Equal(t, a, b)
}

func TestAlbumIDDiffersOnInputChange(t *testing.T) {
	a := AlbumID("/music/Album", "Greatest Hits")
	b := AlbumID("/music/Album", "Greatest Hits 2")
	assert.NotEqual(t, a, b)
}

func TestTrackIDStableAndFieldSeparated(t *testing.T) {
	album := AlbumID("/music/Album", "Title")
	a := TrackID(album, 1, 2, "song.flac")
	b := TrackID(album, 1, 2, "song.flac")
	assert.Equal(t, a, b)

	// Disc/index concatenation must not collide: (1,23) vs (12,3).
	c := TrackID(album, 1, 23, "x")
	d := TrackID(album, 12, 3, "x")
	assert.NotEqual(t, c, d)
}

func TestDisambiguate(t *testing.T) {
	assert.Equal(t, "Album", Disambiguate("Album", 1))
	assert.Equal(t, "Album#2", Disambiguate("Album", 2))
	assert.Equal(t, "Album#3", Disambiguate("Album", 3))
}

func TestValidKeySegment(t *testing.T) {
	assert.True(t, ValidKeySegment("abc123"))
	assert.False(t, ValidKeySegment(""))
	assert.False(t, ValidKeySegment("has:colon"))
	assert.False(t, ValidKeySegment(string(rune(200)) + "nonascii"))
	long := make([]byte, 257)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidKeySegment(string(long)))
}
