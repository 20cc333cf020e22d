// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package tags

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
)

// TrackRef is the minimal addressing a TrackEntry needs to resolve its
// overlay key (spec's KV namespace keys overlays by album+disc+index,
// not by TrackId directly); the mapper's TrackEntry satisfies this
// shape without the two packages needing to import each other.
type TrackRef struct {
	AlbumID    identity.ID
	Disc       int
	Index      int
	SourcePath string
}

// Engine is the tag overlay engine (spec C6).
type Engine struct {
	store kv.Store

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(store kv.Store) *Engine {
	return &Engine{store: store, locks: make(map[string]*sync.Mutex)}
}

func (e *Engine) lockFor(key string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// LoadEffective reads source tags, fetches the overlay from KV, and
// returns the merged TagMap (spec §4.6 load_effective).
func (e *Engine) LoadEffective(ctx context.Context, ref TrackRef) (TagMap, error) {
	source, err := ReadSource(ref.SourcePath)
	if err != nil {
		return nil, apperrors.New(apperrors.Io, "tags.LoadEffective", err)
	}

	overlay, err := e.loadOverlay(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Merge(source, overlay), nil
}

// ApplyDelta reads the current overlay, applies delta per spec §3's
// per-key replacement rule (an empty list means tombstone), and writes
// back atomically. Concurrent deltas for the same track serialize on a
// per-TrackId logical lock; the last writer to hold the lock wins.
func (e *Engine) ApplyDelta(ctx context.Context, ref TrackRef, delta TagMap) error {
	key := identity.TrackOverlayKey(ref.AlbumID, ref.Disc, ref.Index)
	lock := e.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	overlay, err := e.loadOverlay(ctx, ref)
	if err != nil {
		return err
	}
	for k, v := range delta {
		if len(v) == 0 {
			overlay[k] = tombstone()
			continue
		}
		cp := make([]string, len(v))
		copy(cp, v)
		overlay[k] = cp
	}

	encoded, err := json.Marshal(overlay)
	if err != nil {
		return apperrors.New(apperrors.Fatal, "tags.ApplyDelta", err)
	}
	if err := e.store.Put(ctx, key, kv.EncodeVersioned(kv.SchemaV1, encoded)); err != nil {
		return err
	}
	return nil
}

// Evict removes a track's overlay entirely (spec §4.6 evict).
func (e *Engine) Evict(ctx context.Context, ref TrackRef) error {
	key := identity.TrackOverlayKey(ref.AlbumID, ref.Disc, ref.Index)
	lock := e.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	return e.store.Delete(ctx, key)
}

func (e *Engine) loadOverlay(ctx context.Context, ref TrackRef) (TagMap, error) {
	key := identity.TrackOverlayKey(ref.AlbumID, ref.Disc, ref.Index)
	raw, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return TagMap{}, nil
	}
	_, payload, err := kv.DecodeVersioned(raw)
	if err != nil {
		return nil, err
	}
	var overlay TagMap
	if err := json.Unmarshal(payload, &overlay); err != nil {
		return nil, apperrors.New(apperrors.Malformed, "tags.loadOverlay", err)
	}
	return overlay, nil
}
