// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package mapper

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/cover"
	"github.com/ambrevar/musfuse/internal/cuesheet"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
	"github.com/ambrevar/musfuse/internal/scanner"
)

var errNoTracks = errors.New("CUE sheet has no tracks")

// fuzzyMatchThreshold is the minimum stringRel score a CUE FILE
// reference must hit against the sole remaining unmatched audio file
// in a directory before the unique-audio-in-directory heuristic
// accepts it (spec §4.5 step 2).
const fuzzyMatchThreshold = 0.4

// Mapper builds a TrackIndex from scanner output (spec C5).
type Mapper struct {
	store    kv.Store
	coverExt *cover.Extractor
}

func New(store kv.Store, coverExt *cover.Extractor) *Mapper {
	return &Mapper{store: store, coverExt: coverExt}
}

// Build groups files by directory, matches CUE sidecars to audio
// files, and emits a TrackIndex plus any non-fatal diagnostics.
func (m *Mapper) Build(ctx context.Context, files []scanner.SourceFile, cues []scanner.CueSidecar) (*TrackIndex, []Diagnostic, error) {
	idx := newTrackIndex()
	var diags []Diagnostic

	byDir := map[string][]scanner.SourceFile{}
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		byDir[dir] = append(byDir[dir], f)
	}
	cuesByDir := map[string][]scanner.CueSidecar{}
	for _, c := range cues {
		cuesByDir[c.Dir] = append(cuesByDir[c.Dir], c)
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	usedAlbumIDs := map[identity.ID]string{}

	for _, dir := range dirs {
		audioFiles := byDir[dir]
		sort.Slice(audioFiles, func(i, j int) bool { return audioFiles[i].Path < audioFiles[j].Path })

		matched := map[string]bool{} // audio path -> claimed by a CUE
		var albumTitle string
		var cueEntries []cueMatch

		for _, cue := range cuesByDir[dir] {
			text, err := os.ReadFile(cue.Path)
			if err != nil {
				diags = append(diags, Diagnostic{Dir: dir, Reason: "cannot read CUE: " + err.Error()})
				continue
			}
			sheets, err := cuesheet.Parse(string(text))
			if err != nil {
				diags = append(diags, Diagnostic{Dir: dir, Reason: "CUE parse failed: " + err.Error()})
				continue
			}
			for _, sheet := range sheets {
				audio, reason := matchSheetToAudio(sheet, dir, audioFiles, matched)
				if audio == nil {
					diags = append(diags, Diagnostic{Dir: dir, Reason: reason})
					continue
				}
				matched[audio.Path] = true
				if albumTitle == "" && sheet.Title != "" {
					albumTitle = sheet.Title
				}
				cueEntries = append(cueEntries, cueMatch{sheet: sheet, audio: *audio})
			}
		}

		if albumTitle == "" {
			albumTitle = filepath.Base(dir)
		}

		albumID := identity.AlbumID(dir, albumTitle)
		for n := 2; ; n++ {
			prevDir, collided := usedAlbumIDs[albumID]
			if !collided || prevDir == dir {
				break
			}
			albumID = identity.AlbumID(dir, identity.Disambiguate(albumTitle, n))
		}
		usedAlbumIDs[albumID] = dir

		var trackIDs []identity.ID

		for _, cm := range cueEntries {
			entries, cueErr := buildCueTracks(albumID, cm.sheet, cm.audio)
			if cueErr != nil {
				diags = append(diags, Diagnostic{Dir: dir, Reason: cueErr.Error()})
				continue
			}
			for _, te := range entries {
				idx.Tracks[te.TrackID] = te
				trackIDs = append(trackIDs, te.TrackID)
			}
			if m.store != nil {
				if err := persistCue(ctx, m.store, albumID, cm.sheet); err != nil {
					return nil, diags, err
				}
			}
		}

		for i, f := range audioFiles {
			if matched[f.Path] {
				continue
			}
			te := TrackEntry{
				TrackID:    identity.TrackID(albumID, 1, i+1, filepath.Base(f.Path)),
				AlbumID:    albumID,
				Disc:       1,
				Index:      i + 1,
				Title:      strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)),
				SourcePath: f.Path,
				SampleRate: f.SampleRate,
			}
			idx.Tracks[te.TrackID] = te
			trackIDs = append(trackIDs, te.TrackID)
		}

		if len(trackIDs) == 0 {
			continue
		}

		coverHash, err := m.resolveAlbumCover(ctx, albumID, idx, trackIDs)
		if err != nil {
			return nil, diags, err
		}

		idx.Albums[albumID] = AlbumEntry{
			AlbumID:     albumID,
			DisplayName: albumTitle,
			SourceDir:   dir,
			TrackIDs:    trackIDs,
			CoverHash:   coverHash,
		}
	}

	return idx, diags, nil
}

type cueMatch struct {
	sheet cuesheet.Sheet
	audio scanner.SourceFile
}

// matchSheetToAudio resolves a CUE sheet's FILE reference to one of
// the directory's audio files: exact name, then basename, then the
// unique-audio-in-directory fuzzy heuristic (spec §4.5 step 2).
func matchSheetToAudio(sheet cuesheet.Sheet, dir string, audioFiles []scanner.SourceFile, matched map[string]bool) (*scanner.SourceFile, string) {
	want := sheet.File
	for i := range audioFiles {
		if audioFiles[i].Path == filepath.Join(dir, want) && !matched[audioFiles[i].Path] {
			return &audioFiles[i], ""
		}
	}
	wantBase := filepath.Base(want)
	for i := range audioFiles {
		if !matched[audioFiles[i].Path] && filepath.Base(audioFiles[i].Path) == wantBase {
			return &audioFiles[i], ""
		}
	}

	var unmatched []*scanner.SourceFile
	for i := range audioFiles {
		if !matched[audioFiles[i].Path] {
			unmatched = append(unmatched, &audioFiles[i])
		}
	}
	if len(unmatched) == 1 {
		if stringRel(wantBase, filepath.Base(unmatched[0].Path)) >= fuzzyMatchThreshold {
			return unmatched[0], ""
		}
		return nil, "CUE references " + want + ", sole candidate " + unmatched[0].Path + " too dissimilar"
	}
	return nil, "CUE references " + want + ": no exact/basename match and " + strconv.Itoa(len(unmatched)) + " ambiguous candidates"
}

// buildCueTracks emits one TrackEntry per CUE track, with length
// derived from the next track's start or, for the last track, left at
// 0 to mean "to end of stream" (spec §4.5 step 3, resolved against the
// live sample rate at stream-open time per the recomputation
// requirement in spec §9 open question (b)).
func buildCueTracks(albumID identity.ID, sheet cuesheet.Sheet, audio scanner.SourceFile) ([]TrackEntry, error) {
	if len(sheet.Tracks) == 0 {
		return nil, apperrors.New(apperrors.Malformed, "mapper.buildCueTracks", errNoTracks)
	}
	entries := make([]TrackEntry, 0, len(sheet.Tracks))
	for i, t := range sheet.Tracks {
		length := 0
		if i+1 < len(sheet.Tracks) {
			length = sheet.Tracks[i+1].StartFrame - t.StartFrame
		}
		entries = append(entries, TrackEntry{
			TrackID:      identity.TrackID(albumID, 1, t.Number, filepath.Base(audio.Path)),
			AlbumID:      albumID,
			Disc:         1,
			Index:        t.Number,
			Title:        t.Title,
			SourcePath:   audio.Path,
			StartFrame:   t.StartFrame,
			LengthFrames: length,
			HasCue:       true,
			SampleRate:   audio.SampleRate,
		})
	}
	return entries, nil
}

func persistCue(ctx context.Context, store kv.Store, albumID identity.ID, sheet cuesheet.Sheet) error {
	encoded, err := json.Marshal(sheet)
	if err != nil {
		return apperrors.New(apperrors.Fatal, "mapper.persistCue", err)
	}
	return store.Put(ctx, identity.AlbumCueKey(albumID), kv.EncodeVersioned(kv.SchemaV1, encoded))
}

// resolveAlbumCover runs the C7 resolution order (spec §4.7) against
// each track in the album, in index order, and persists whichever
// track first yields a blob under both track:*:cover and album:*:cover
// (spec §3). It stops at the first hit: an album's cover is whichever
// of its own files carries one.
func (m *Mapper) resolveAlbumCover(ctx context.Context, albumID identity.ID, idx *TrackIndex, trackIDs []identity.ID) (string, error) {
	if m.coverExt == nil {
		return "", nil
	}

	for _, tid := range trackIDs {
		te := idx.Tracks[tid]
		blob, err := m.coverExt.Resolve(ctx, te.SourcePath)
		if err != nil {
			return "", apperrors.New(apperrors.Io, "mapper.resolveAlbumCover", err)
		}
		if blob == nil {
			continue
		}
		if err := m.coverExt.PersistTrackCover(ctx, albumID, te.Disc, te.Index, blob.Hash); err != nil {
			return "", err
		}
		if err := m.coverExt.PersistAlbumCover(ctx, albumID, blob.Hash); err != nil {
			return "", err
		}
		return blob.Hash, nil
	}
	return "", nil
}
