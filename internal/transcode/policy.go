// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package transcode implements the format policy and streaming
// transcoder (spec C8): PassthroughLossy streams source bytes
// unchanged, ConvertLossless decodes via ffmpeg and re-muxes to FLAC
// with merged tags and artwork.
package transcode

import "github.com/ambrevar/musfuse/internal/scanner"

// Policy is the per-track streaming strategy (spec §4.8).
type Policy int

const (
	PassthroughLossy Policy = iota
	ConvertLossless
)

func (p Policy) String() string {
	if p == ConvertLossless {
		return "ConvertLossless"
	}
	return "PassthroughLossy"
}

// Decide maps a source format and CUE-subdivision flag to a Policy
// (spec §4.8): any CUE-subdivided track, or any lossless container,
// converts; everything else passes through untouched.
func Decide(format scanner.Format, hasCue bool) Policy {
	if hasCue || format.Lossless() {
		return ConvertLossless
	}
	return PassthroughLossy
}

// SupportsInBandTagRewrite reports whether a PassthroughLossy
// container can have its tags rewritten without a full re-encode
// (spec §4.8 "applies only if the container supports in-band tag
// rewrite"; resolved in SPEC_FULL.md §12: MP3 via ID3v2, others not).
func SupportsInBandTagRewrite(format scanner.Format) bool {
	return format == scanner.FormatMP3
}
