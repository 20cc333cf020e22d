// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package mapper joins scanned SourceFiles with parsed CUE sheets into
// a TrackIndex (spec C5). Matching CUE to audio mirrors demlo's own
// tag-matching instinct of "try the strict thing, fall back to the
// fuzzy thing, never silently drop a file": exact filename, then
// basename, then a Damerau-Levenshtein uniqueness heuristic grown from
// demlo's fuzzy.go.
package mapper

import "github.com/ambrevar/musfuse/internal/identity"

// TrackEntry is one virtual track (spec §3).
type TrackEntry struct {
	TrackID      identity.ID
	AlbumID      identity.ID
	Disc         int
	Index        int
	Title        string
	SourcePath   string
	StartFrame   int
	LengthFrames int // 0 means "to end of stream" (resolved at open time).
	HasCue       bool
	SampleRate   int // copied from the SourceFile that backs this entry.
}

// AlbumEntry groups TrackIds under a display identity (spec §3).
type AlbumEntry struct {
	AlbumID     identity.ID
	DisplayName string
	SourceDir   string // directory walk order; router's deterministic tie-break key.
	TrackIDs    []identity.ID
	CoverHash   string // empty when no cover is known yet.
}

// TrackIndex is the full mapper output: two independent maps, neither
// owning the other (spec §9 "arena-style indices keyed by
// TrackId/AlbumId rather than back-pointers").
type TrackIndex struct {
	Albums map[identity.ID]AlbumEntry
	Tracks map[identity.ID]TrackEntry
}

func newTrackIndex() *TrackIndex {
	return &TrackIndex{
		Albums: make(map[identity.ID]AlbumEntry),
		Tracks: make(map[identity.ID]TrackEntry),
	}
}

// Diagnostic records a non-fatal mapping problem (spec §4.5 "a match
// failure emits a diagnostic and falls back to 1:1 mapping").
type Diagnostic struct {
	Dir    string
	Reason string
}
