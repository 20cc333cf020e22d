// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package scanner walks source directories, classifies audio files and
// CUE sidecars by extension, and computes deltas against a persisted
// snapshot so unchanged files are never re-probed (spec C3, §4.3).
//
// The walk/dedup shape is grown from demlo's walker.go: a visited-set
// keyed on the realpath-resolved path discards duplicates reached via
// symlinks, generalized here from a single Pipeline Stage into a
// standalone recursive walk since the scanner has no per-file
// transform stage of its own to chain into.
package scanner

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yookoala/realpath"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
)

// CueSidecar is a .cue file discovered alongside audio files. It is
// never itself a SourceFile (spec §3): the track mapper (C5) consumes
// it separately.
type CueSidecar struct {
	Path string
	Dir  string
}

// Result is a full walk's output: classified audio files plus CUE
// sidecars, before delta comparison against the KV snapshot.
type Result struct {
	Files []SourceFile
	Cues  []CueSidecar
}

// Scanner walks configured source directories.
type Scanner struct {
	store  kv.Store
	prober *Prober
}

func New(store kv.Store, prober *Prober) *Scanner {
	return &Scanner{store: store, prober: prober}
}

// Walk recursively visits roots, skipping hidden files/directories
// (leading dot, spec §4.3) and deduplicating by realpath the way
// walker.go's visited set does.
func (s *Scanner) Walk(roots []string) (Result, error) {
	visited := map[string]bool{}
	var res Result

	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if base != "." && strings.HasPrefix(base, ".") && path != root {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if info.IsDir() {
				return nil
			}

			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			if strings.EqualFold(ext, cueExtension) {
				res.Cues = append(res.Cues, CueSidecar{Path: path, Dir: filepath.Dir(path)})
				return nil
			}
			format, ok := ClassifyExtension(ext)
			if !ok {
				return nil // Unsupported extension: emit nothing (spec §4.3).
			}

			rpath, err := realpath.Realpath(path)
			if err != nil {
				return apperrors.New(apperrors.Io, "scanner.Walk", err)
			}
			if visited[rpath] {
				return nil
			}
			visited[rpath] = true

			res.Files = append(res.Files, SourceFile{
				Path:    rpath,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Format:  format,
			})
			return nil
		})
		if err != nil {
			return Result{}, apperrors.New(apperrors.Io, "scanner.Walk", err)
		}
	}

	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	return res, nil
}

// Delta compares a freshly walked Result against the KV-persisted Stat
// snapshot from the previous run, probing only files whose mtime or
// size changed (spec §4.3), then persists the new snapshot.
func (s *Scanner) Delta(ctx context.Context, res Result, previousPaths []string) (Delta, error) {
	var delta Delta
	seen := map[string]bool{}

	for i := range res.Files {
		sf := &res.Files[i]
		seen[sf.Path] = true

		key := identity.FileStatKey(pathHash(sf.Path))
		raw, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return Delta{}, err
		}

		var prev Stat
		unchanged := false
		if ok {
			_, payload, err := kv.DecodeVersioned(raw)
			if err != nil {
				return Delta{}, err
			}
			if err := json.Unmarshal(payload, &prev); err != nil {
				return Delta{}, apperrors.New(apperrors.Malformed, "scanner.Delta", err)
			}
			unchanged = prev.ModTime.Equal(sf.ModTime) && prev.Size == sf.Size
		}

		if unchanged {
			sf.ContentHash = prev.Hash
			delta.Current = append(delta.Current, *sf)
			continue
		}

		if s.prober != nil {
			sr, ch, bd, err := s.prober.Probe(ctx, sf.Path)
			if err == nil {
				sf.SampleRate, sf.Channels, sf.BitDepth = sr, ch, bd
			}
			// Probe failure is non-fatal: the file is still a valid
			// SourceFile, just without stream metadata (spec §4.3 treats
			// probe failure as degraded, not fatal).
		}

		hash, err := hashFile(sf.Path)
		if err != nil {
			return Delta{}, err
		}
		sf.ContentHash = hash

		next := Stat{ModTime: sf.ModTime, Size: sf.Size, Hash: hash}
		encoded, err := json.Marshal(next)
		if err != nil {
			return Delta{}, apperrors.New(apperrors.Fatal, "scanner.Delta", err)
		}
		if err := s.store.Put(ctx, key, kv.EncodeVersioned(kv.SchemaV1, encoded)); err != nil {
			return Delta{}, err
		}

		delta.Current = append(delta.Current, *sf)
		if ok {
			delta.Changed = append(delta.Changed, *sf)
		} else {
			delta.Added = append(delta.Added, *sf)
		}
	}

	for _, p := range previousPaths {
		if !seen[p] {
			delta.Removed = append(delta.Removed, p)
			_ = s.store.Delete(ctx, identity.FileStatKey(pathHash(p)))
		}
	}

	return delta, nil
}

func pathHash(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperrors.New(apperrors.Io, "scanner.hashFile", err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperrors.New(apperrors.Io, "scanner.hashFile", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
