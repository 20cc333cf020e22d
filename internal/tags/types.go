// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package tags implements the non-destructive metadata overlay engine
// (spec C6): source tags are read-only, edits live in the KV store as
// per-TrackId overlays, and the two are merged on read.
package tags

// TagMap is tag name (canonical uppercase ASCII) to a list of string
// values; multi-valued semantics are preserved (spec §3).
type TagMap map[string][]string

// tombstone marks a key as explicitly hidden in an overlay (spec §3
// "explicit tombstone value ... hides a source key"), distinct from a
// key simply absent from the overlay (which falls through to source).
const tombstoneMarker = "\x00musfuse-tombstone\x00"

func isTombstone(values []string) bool {
	return len(values) == 1 && values[0] == tombstoneMarker
}

func tombstone() []string {
	return []string{tombstoneMarker}
}

// Clone returns a deep copy, since merge results are handed to callers
// who must not be able to mutate the engine's cached state.
func (m TagMap) Clone() TagMap {
	out := make(TagMap, len(m))
	for k, v := range m {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Merge applies overlay on top of source per spec §3's rule: overlay
// keys replace source entirely, a tombstoned key is hidden, and any
// key absent from overlay falls through to source.
func Merge(source, overlay TagMap) TagMap {
	out := source.Clone()
	for k, v := range overlay {
		if isTombstone(v) {
			delete(out, k)
			continue
		}
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
