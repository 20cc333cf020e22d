// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package identity derives stable AlbumId/TrackId values and builds the
// KV namespace keys described in spec §3/§4.2. Every function here is
// pure: same attributes in, same identifier out, across runs and
// platforms, as the stability invariant requires.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID is a 128-bit opaque identifier, little-endian per spec §4.2's
// recommendation. xxhash/v2 only exposes a 64-bit sum, so we combine two
// independent digests (the raw input and the input salted with a fixed
// constant) into 128 bits rather than pull in a second hashing library
// for the high half alone.
type ID [16]byte

const saltForHighBits = "musfuse-high-bits-v1\x00"

func sum128(parts ...string) ID {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0}) // field separator, avoids ("ab","c") == ("a","bc")
	}
	low := h.Sum64()

	h.Reset()
	_, _ = h.WriteString(saltForHighBits)
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	high := h.Sum64()

	var id ID
	binary.LittleEndian.PutUint64(id[0:8], low)
	binary.LittleEndian.PutUint64(id[8:16], high)
	return id
}

// String renders the identifier as lowercase hex, ASCII and well under
// the 256-byte key-segment bound spec §4.2 requires.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// AlbumID derives a stable AlbumId from the canonicalized source
// directory path and the album's display title (falling back to the
// directory name when there is no title tag).
func AlbumID(canonicalDir, albumTitleOrDirName string) ID {
	return sum128("album", canonicalDir, albumTitleOrDirName)
}

// TrackID derives a stable TrackId from its owning album, disc/track
// index, and the source file's basename. Re-scanning an unchanged tree
// must reproduce the same ID (spec "TrackId stability").
func TrackID(album ID, disc, index int, sourceBasename string) ID {
	return sum128("track", album.String(), fmt.Sprint(disc), fmt.Sprint(index), sourceBasename)
}

// Disambiguate appends a "#2", "#3", ... suffix to a display name when
// two albums collide on AlbumID (spec §4.5 tie-break rule). n is 1-based;
// n==1 returns name unchanged.
func Disambiguate(name string, n int) string {
	if n <= 1 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, n)
}

// ValidKeySegment reports whether s is safe to use as one ':'-delimited
// segment of a KV key: ASCII, non-empty, at most 256 bytes, and free of
// the reserved separator.
func ValidKeySegment(s string) bool {
	if s == "" || len(s) > 256 {
		return false
	}
	if strings.ContainsRune(s, ':') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
