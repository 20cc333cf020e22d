// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package engine composes the tag overlay engine, cover extractor, and
// transcoder into a single stream opener (spec C9).
package engine

import (
	"context"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/cover"
	"github.com/ambrevar/musfuse/internal/mapper"
	"github.com/ambrevar/musfuse/internal/scanner"
	"github.com/ambrevar/musfuse/internal/tags"
	"github.com/ambrevar/musfuse/internal/transcode"
)

// TranscodeResult is the C9 open_stream output (spec §4.9).
type TranscodeResult struct {
	Chunks  <-chan transcode.AudioChunk
	Artwork *cover.ArtworkBlob
	MIME    string
	Policy  transcode.Policy
}

// Engine wires C6 (tags), C7 (cover), and C8 (transcode) behind a
// single OpenStream entry point.
type Engine struct {
	tagEngine  *tags.Engine
	coverExt   *cover.Extractor
	transcoder *transcode.Transcoder
}

func New(tagEngine *tags.Engine, coverExt *cover.Extractor, transcoder *transcode.Transcoder) *Engine {
	return &Engine{tagEngine: tagEngine, coverExt: coverExt, transcoder: transcoder}
}

// OpenStream merges tags, resolves artwork, decides policy, and starts
// the transcoder's blocking worker. Every synchronous failure (source
// unreadable, etc.) is returned before any chunk is emitted (spec
// §4.9).
func (e *Engine) OpenStream(ctx context.Context, track mapper.TrackEntry, format scanner.Format, cachedArtworkHash string) (*TranscodeResult, error) {
	ref := tags.TrackRef{AlbumID: track.AlbumID, Disc: track.Disc, Index: track.Index, SourcePath: track.SourcePath}

	effective, err := e.tagEngine.LoadEffective(ctx, ref)
	if err != nil {
		return nil, apperrors.New(apperrors.Io, "engine.OpenStream", err)
	}

	artwork, err := e.resolveArtwork(ctx, track, cachedArtworkHash)
	if err != nil {
		return nil, err
	}

	policy := transcode.Decide(format, track.HasCue)

	streamRef := transcode.StreamRef{
		SourcePath:   track.SourcePath,
		Format:       format,
		HasCue:       track.HasCue,
		StartFrame:   track.StartFrame,
		LengthFrames: track.LengthFrames,
	}
	chunks, err := e.transcoder.Stream(ctx, streamRef, policy, effective, artwork)
	if err != nil {
		return nil, err
	}

	return &TranscodeResult{
		Chunks:  chunks,
		Artwork: artwork,
		MIME:    outputMIME(policy, format),
		Policy:  policy,
	}, nil
}

// resolveArtwork prefers a cached blob (spec §4.9 "preferring cached
// blob in KV under artwork:{hash}") before falling back to the full
// C7 resolution order: the track's own persisted cover hash first,
// then the album-level hash the router passed in, then a fresh
// resolve.
func (e *Engine) resolveArtwork(ctx context.Context, track mapper.TrackEntry, cachedAlbumHash string) (*cover.ArtworkBlob, error) {
	trackHash, err := e.coverExt.LookupTrackCoverHash(ctx, track.AlbumID, track.Disc, track.Index)
	if err != nil {
		return nil, err
	}

	for _, hash := range []string{trackHash, cachedAlbumHash} {
		if hash == "" {
			continue
		}
		blob, err := e.coverExt.Lookup(ctx, hash)
		if err != nil {
			return nil, err
		}
		if blob != nil {
			return blob, nil
		}
	}
	return e.coverExt.Resolve(ctx, track.SourcePath)
}

func outputMIME(policy transcode.Policy, format scanner.Format) string {
	if policy == transcode.ConvertLossless {
		return "audio/flac"
	}
	switch format {
	case scanner.FormatMP3:
		return "audio/mpeg"
	case scanner.FormatAAC:
		return "audio/aac"
	case scanner.FormatOGG:
		return "audio/ogg"
	case scanner.FormatOPUS:
		return "audio/opus"
	default:
		return "application/octet-stream"
	}
}
