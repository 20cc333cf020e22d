// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package router

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/cuesheet"
	"github.com/ambrevar/musfuse/internal/engine"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/mapper"
	"github.com/ambrevar/musfuse/internal/scanner"
	"github.com/ambrevar/musfuse/internal/tags"
	"github.com/ambrevar/musfuse/internal/transcode"
)

// flacCompressionFactor approximates FLAC's typical size relative to
// raw PCM (spec §4.10 "~0.6").
const flacCompressionFactor = 0.6

const defaultChannels = 2
const defaultBitDepth = 16

type trackFile struct {
	Name     string
	TrackID  identity.ID
	SizeHint int64
}

type albumDir struct {
	AlbumID   identity.ID
	DirName   string
	Tracks    []trackFile
	CoverName string
	CoverHash string
}

// Snapshot is an immutable, fully-resolved virtual directory tree, built
// once per scan and swapped in atomically (spec §9 "the TrackIndex is
// read-mostly and swapped atomically on rescan").
type Snapshot struct {
	albumsByLowerDir map[string]*albumDir
	albumsByID       map[identity.ID]*albumDir
	tracks           map[identity.ID]mapper.TrackEntry
}

// Router resolves virtual paths against the current Snapshot and
// delegates reads/writes to the C6 tag engine and C9 media engine.
type Router struct {
	tagEngine *tags.Engine
	media     *engine.Engine

	current atomic.Pointer[Snapshot]
}

func New(tagEngine *tags.Engine, media *engine.Engine) *Router {
	r := &Router{tagEngine: tagEngine, media: media}
	r.current.Store(&Snapshot{
		albumsByLowerDir: map[string]*albumDir{},
		albumsByID:       map[identity.ID]*albumDir{},
		tracks:           map[identity.ID]mapper.TrackEntry{},
	})
	return r
}

// Swap atomically installs a freshly built Snapshot; in-flight streams
// opened against the previous snapshot are unaffected (spec §9).
func (r *Router) Swap(s *Snapshot) {
	r.current.Store(s)
}

// Build resolves every album's display directory name (disambiguating
// on collision in deterministic SourceDir order) and every track's
// filename from its effective tags (spec §4.10 derives names "from
// effective tags"), then returns a ready-to-swap Snapshot.
func Build(ctx context.Context, idx *mapper.TrackIndex, tagEngine *tags.Engine, coverHashOf func(identity.ID) string) (*Snapshot, error) {
	albums := make([]mapper.AlbumEntry, 0, len(idx.Albums))
	for _, a := range idx.Albums {
		albums = append(albums, a)
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].SourceDir < albums[j].SourceDir })

	snap := &Snapshot{
		albumsByLowerDir: map[string]*albumDir{},
		albumsByID:       map[identity.ID]*albumDir{},
		tracks:           map[identity.ID]mapper.TrackEntry{},
	}

	for _, a := range albums {
		baseName := SanitizeName(a.DisplayName)
		dirName := baseName
		for n := 2; ; n++ {
			lower := strings.ToLower(dirName)
			if _, taken := snap.albumsByLowerDir[lower]; !taken {
				break
			}
			dirName = identity.Disambiguate(baseName, n)
		}

		ad := &albumDir{AlbumID: a.AlbumID, DirName: dirName}
		if hash := coverHashOf(a.AlbumID); hash != "" {
			ad.CoverHash = hash
			ad.CoverName = "cover.jpg"
		}

		for _, trackID := range a.TrackIDs {
			track, ok := idx.Tracks[trackID]
			if !ok {
				continue
			}
			name, err := trackFileName(ctx, track, tagEngine)
			if err != nil {
				return nil, err
			}
			ad.Tracks = append(ad.Tracks, trackFile{
				Name:     name,
				TrackID:  trackID,
				SizeHint: estimateSize(track),
			})
			snap.tracks[trackID] = track
		}
		sort.Slice(ad.Tracks, func(i, j int) bool {
			return ad.Tracks[i].Name < ad.Tracks[j].Name
		})

		snap.albumsByLowerDir[strings.ToLower(dirName)] = ad
		snap.albumsByID[a.AlbumID] = ad
	}

	return snap, nil
}

func trackFileName(ctx context.Context, track mapper.TrackEntry, tagEngine *tags.Engine) (string, error) {
	ref := tags.TrackRef{AlbumID: track.AlbumID, Disc: track.Disc, Index: track.Index, SourcePath: track.SourcePath}
	effective, err := tagEngine.LoadEffective(ctx, ref)
	if err != nil {
		return "", apperrors.New(apperrors.Io, "router.trackFileName", err)
	}

	title := track.Title
	if vals, ok := effective["TITLE"]; ok && len(vals) > 0 && vals[0] != "" {
		title = vals[0]
	}
	title = SanitizeName(title)

	nn := fmt.Sprintf("%02d", track.Index)
	if track.Disc >= 2 {
		nn = fmt.Sprintf("D%d-%02d", track.Disc, track.Index)
	}

	policy := transcode.Decide(formatFromPath(track.SourcePath), track.HasCue)
	ext := "flac"
	if policy == transcode.PassthroughLossy {
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(track.SourcePath)), ".")
	}

	return fmt.Sprintf("%s - %s.%s", nn, title, ext), nil
}

func formatFromPath(path string) scanner.Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	f, _ := scanner.ClassifyExtension(ext)
	return f
}

func estimateSize(track mapper.TrackEntry) int64 {
	if track.LengthFrames > 0 && track.SampleRate > 0 {
		samples := cuesheet.FrameToSample(track.LengthFrames, track.SampleRate)
		raw := samples * int64(defaultChannels) * int64(defaultBitDepth/8)
		return int64(float64(raw) * flacCompressionFactor)
	}
	if info, err := os.Stat(track.SourcePath); err == nil {
		return info.Size()
	}
	return 0
}

// Lookup resolves a virtual path (spec §4.10 lookup). Matching is
// case-insensitive; when multiple distinct albums would sanitize to
// the same directory name, Build already disambiguated with #2/#3
// suffixes, so no further conflict remains at lookup time.
func (r *Router) Lookup(path string) Entity {
	segments := splitPath(path)
	snap := r.current.Load()

	if len(segments) == 0 {
		return Entity{Kind: KindRoot}
	}

	album, ok := snap.albumsByLowerDir[strings.ToLower(segments[0])]
	if !ok {
		return Entity{Kind: KindNotFound}
	}
	if len(segments) == 1 {
		return Entity{Kind: KindAlbum, AlbumID: album.AlbumID}
	}
	if len(segments) == 2 {
		leaf := segments[1]
		if album.CoverName != "" && strings.EqualFold(leaf, album.CoverName) {
			return Entity{Kind: KindCover, AlbumID: album.AlbumID}
		}
		for _, tr := range album.Tracks {
			if strings.EqualFold(tr.Name, leaf) {
				return Entity{Kind: KindTrack, AlbumID: album.AlbumID, TrackID: tr.TrackID}
			}
		}
	}
	return Entity{Kind: KindNotFound}
}

// List enumerates a directory path (spec §4.10 list). Ordering is
// deterministic: album directories by sanitized name, tracks within an
// album by filename.
func (r *Router) List(path string) ([]DirEntry, bool) {
	snap := r.current.Load()
	segments := splitPath(path)

	if len(segments) == 0 {
		names := make([]string, 0, len(snap.albumsByLowerDir))
		for _, a := range snap.albumsByLowerDir {
			names = append(names, a.DirName)
		}
		sort.Strings(names)
		entries := make([]DirEntry, 0, len(names))
		for _, n := range names {
			entries = append(entries, DirEntry{Name: n, Kind: KindAlbum})
		}
		return entries, true
	}

	if len(segments) == 1 {
		album, ok := snap.albumsByLowerDir[strings.ToLower(segments[0])]
		if !ok {
			return nil, false
		}
		entries := make([]DirEntry, 0, len(album.Tracks)+1)
		for _, tr := range album.Tracks {
			entries = append(entries, DirEntry{Name: tr.Name, Kind: KindTrack, SizeHint: tr.SizeHint})
		}
		if album.CoverName != "" {
			entries = append(entries, DirEntry{Name: album.CoverName, Kind: KindCover})
		}
		return entries, true
	}
	return nil, false
}

// Open resolves a track path and delegates to the C9 media engine.
// Only track paths are opened: cover, directory and root paths return
// a NotFound error.
func (r *Router) Open(ctx context.Context, path string) (*engine.TranscodeResult, error) {
	ent := r.Lookup(path)
	if ent.Kind != KindTrack {
		return nil, apperrors.New(apperrors.NotFound, "router.Open", fmt.Errorf("%s is not a track", path))
	}
	snap := r.current.Load()
	track, ok := snap.tracks[ent.TrackID]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "router.Open", fmt.Errorf("track %s vanished from snapshot", path))
	}
	album := snap.albumsByID[ent.AlbumID]
	format := formatFromPath(track.SourcePath)
	return r.media.OpenStream(ctx, track, format, album.CoverHash)
}

// WriteTag applies a tag delta to the track at path (spec §4.10
// "write_tag is valid only on track paths").
func (r *Router) WriteTag(ctx context.Context, path string, delta tags.TagMap) error {
	ent := r.Lookup(path)
	if ent.Kind != KindTrack {
		return apperrors.New(apperrors.NotFound, "router.WriteTag", fmt.Errorf("%s is not a track", path))
	}
	snap := r.current.Load()
	track, ok := snap.tracks[ent.TrackID]
	if !ok {
		return apperrors.New(apperrors.NotFound, "router.WriteTag", fmt.Errorf("track %s vanished from snapshot", path))
	}
	ref := tags.TrackRef{AlbumID: track.AlbumID, Disc: track.Disc, Index: track.Index, SourcePath: track.SourcePath}
	return r.tagEngine.ApplyDelta(ctx, ref, delta)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
