// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package scanner

import "time"

// SourceFile is a real on-disk audio file (spec §3). ContentHash is lazy:
// the scanner does not hash every file on every run, only when mtime/size
// indicate a change (spec §4.3 "only changed files are re-probed").
type SourceFile struct {
	Path    string // Absolute, realpath-resolved.
	Size    int64
	ModTime time.Time
	Format  Format

	ContentHash string // Hex SHA-1; empty until computed.

	SampleRate int
	Channels   int
	BitDepth   int // 0 when not applicable (e.g. lossy codecs).
}

// Stat is the minimal persisted record under file:{path-hash}:stat,
// compared against the live filesystem on each scan to decide whether a
// file needs re-probing.
type Stat struct {
	ModTime time.Time `json:"mtime"`
	Size    int64     `json:"size"`
	Hash    string    `json:"hash"`
}

// Delta is the result of comparing a scan against the previous snapshot
// (spec §4.3).
type Delta struct {
	Added   []SourceFile
	Removed []string // paths
	Changed []SourceFile
	Current []SourceFile // full current set, for convenience
}
