// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package cover locates embedded and sidecar artwork and content-
// addresses it into the KV store (spec C7). Embedded-picture extraction
// uses the same dhowden/tag reader C6 uses to read tag frames, rather
// than an independent decoder.
package cover

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"crypto/sha1"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
)

var errShortBlob = errors.New("artwork blob truncated")

// sidecarBases lists the cover-file basenames checked in order, case-
// insensitively, per spec §4.7 resolution order step (2).
var sidecarBases = []string{"cover", "folder"}
var sidecarExts = []string{"jpg", "jpeg", "png", "webp"}

// ArtworkBlob is raw artwork bytes plus its declared MIME and content
// hash (spec §3).
type ArtworkBlob struct {
	Bytes []byte
	MIME  string
	Hash  string // hex SHA-1 of Bytes.
}

// Extractor resolves artwork for a track's source file (spec C7).
type Extractor struct {
	store kv.Store
}

func New(store kv.Store) *Extractor {
	return &Extractor{store: store}
}

// Resolve applies the resolution order from spec §4.7: embedded
// picture first, then a case-insensitive sidecar in sourceDir, else
// nil. A resolved blob is cached under artwork:{hash} idempotently.
func (e *Extractor) Resolve(ctx context.Context, sourcePath string) (*ArtworkBlob, error) {
	blob, err := embeddedPicture(sourcePath)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		blob, err = sidecarPicture(filepath.Dir(sourcePath))
		if err != nil {
			return nil, err
		}
	}
	if blob == nil {
		return nil, nil
	}

	if err := e.store.Put(ctx, identity.ArtworkKey(blob.Hash), encodeBlob(blob)); err != nil {
		return nil, err
	}
	return blob, nil
}

func embeddedPicture(path string) (*ArtworkBlob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.New(apperrors.Io, "cover.embeddedPicture", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, nil // No tags at all; not an error (spec §4.6 mirrors this for reads).
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, nil
	}
	return blobFromBytes(pic.Data), nil
}

func sidecarPicture(dir string) (*ArtworkBlob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.New(apperrors.Io, "cover.sidecarPicture", err)
	}
	byLowerName := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		byLowerName[strings.ToLower(entry.Name())] = entry.Name()
	}

	for _, base := range sidecarBases {
		names := make([]string, 0, len(sidecarExts))
		for _, ext := range sidecarExts {
			names = append(names, base+"."+ext)
		}
		sort.Strings(names) // Deterministic when more than one extension is present.
		for _, candidate := range names {
			if actual, ok := byLowerName[candidate]; ok {
				data, err := os.ReadFile(filepath.Join(dir, actual))
				if err != nil {
					return nil, apperrors.New(apperrors.Io, "cover.sidecarPicture", err)
				}
				return blobFromBytes(data), nil
			}
		}
	}
	return nil, nil
}

func blobFromBytes(data []byte) *ArtworkBlob {
	sum := sha1.Sum(data)
	return &ArtworkBlob{
		Bytes: data,
		MIME:  mimetype.Detect(data).String(),
		Hash:  hex.EncodeToString(sum[:]),
	}
}

// encodeBlob is a minimal length-prefixed MIME + raw bytes encoding,
// wrapped in the shared one-byte schema version envelope (spec §6);
// artwork: values are read back only by decodeBlob in this package, so
// there is no need for a general-purpose envelope format beyond that.
func encodeBlob(b *ArtworkBlob) []byte {
	mimeBytes := []byte(b.MIME)
	payload := make([]byte, 2+len(mimeBytes)+len(b.Bytes))
	payload[0] = byte(len(mimeBytes) >> 8)
	payload[1] = byte(len(mimeBytes))
	copy(payload[2:], mimeBytes)
	copy(payload[2+len(mimeBytes):], b.Bytes)
	return kv.EncodeVersioned(kv.SchemaV1, payload)
}

func decodeBlob(raw []byte, hash string) (*ArtworkBlob, error) {
	_, payload, err := kv.DecodeVersioned(raw)
	if err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return nil, apperrors.New(apperrors.Malformed, "cover.decodeBlob", errShortBlob)
	}
	n := int(payload[0])<<8 | int(payload[1])
	if len(payload) < 2+n {
		return nil, apperrors.New(apperrors.Malformed, "cover.decodeBlob", errShortBlob)
	}
	return &ArtworkBlob{
		MIME:  string(payload[2 : 2+n]),
		Bytes: payload[2+n:],
		Hash:  hash,
	}, nil
}

// Lookup fetches a previously cached blob by content hash, used when a
// track/album cover reference already points at a known hash.
func (e *Extractor) Lookup(ctx context.Context, hash string) (*ArtworkBlob, error) {
	raw, ok, err := e.store.Get(ctx, identity.ArtworkKey(hash))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodeBlob(raw, hash)
}

// PersistAlbumCover records albumID's resolved cover hash under
// album:{AlbumId}:cover (spec §3).
func (e *Extractor) PersistAlbumCover(ctx context.Context, albumID identity.ID, hash string) error {
	return e.store.Put(ctx, identity.AlbumCoverKey(albumID), kv.EncodeVersioned(kv.SchemaV1, []byte(hash)))
}

// PersistTrackCover records one track's resolved cover hash under
// track:{AlbumId}:{disc}:{index}:cover (spec §3).
func (e *Extractor) PersistTrackCover(ctx context.Context, albumID identity.ID, disc, index int, hash string) error {
	return e.store.Put(ctx, identity.TrackCoverKey(albumID, disc, index), kv.EncodeVersioned(kv.SchemaV1, []byte(hash)))
}

// LookupTrackCoverHash reads back a track's persisted cover hash, if
// any was ever resolved for it.
func (e *Extractor) LookupTrackCoverHash(ctx context.Context, albumID identity.ID, disc, index int) (string, error) {
	raw, ok, err := e.store.Get(ctx, identity.TrackCoverKey(albumID, disc, index))
	if err != nil || !ok {
		return "", err
	}
	_, payload, err := kv.DecodeVersioned(raw)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
