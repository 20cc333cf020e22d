// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package router resolves virtual filesystem paths to entities and
// enumerates directories (spec C10). The virtual layout is:
//
//	/<AlbumName>/
//	/<AlbumName>/<NN - Title>.flac       (CUE-subdivided or lossless track)
//	/<AlbumName>/<NN - Title>.<ext>      (passthrough lossy track)
//	/<AlbumName>/cover.jpg               (album cover, if present; named
//	                                      cover.jpg whatever the image format)
package router

import "github.com/ambrevar/musfuse/internal/identity"

// EntityKind classifies a resolved virtual path (spec §4.10).
type EntityKind int

const (
	KindNotFound EntityKind = iota
	KindRoot
	KindAlbum
	KindTrack
	KindCover
)

// Entity is the result of Lookup.
type Entity struct {
	Kind    EntityKind
	AlbumID identity.ID
	TrackID identity.ID // valid only when Kind == KindTrack
}

// DirEntry is one row of a List result (spec §4.10 "ordered sequence
// of (name, kind, size-hint)").
type DirEntry struct {
	Name     string
	Kind     EntityKind
	SizeHint int64
}
