// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package app wires every component package behind one AppContext
// value (spec §9 "the KV handle and TrackIndex snapshot pointer are
// process-wide; initialization is explicit at mount time, teardown on
// unmount... both are passed through an AppContext value").
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ambrevar/musfuse/internal/config"
	"github.com/ambrevar/musfuse/internal/cover"
	"github.com/ambrevar/musfuse/internal/engine"
	"github.com/ambrevar/musfuse/internal/identity"
	"github.com/ambrevar/musfuse/internal/kv"
	"github.com/ambrevar/musfuse/internal/logging"
	"github.com/ambrevar/musfuse/internal/mapper"
	"github.com/ambrevar/musfuse/internal/router"
	"github.com/ambrevar/musfuse/internal/scanner"
	"github.com/ambrevar/musfuse/internal/tags"
	"github.com/ambrevar/musfuse/internal/transcode"
	"github.com/ambrevar/musfuse/internal/workerpool"
)

// AppContext holds every long-lived collaborator a mount.Provider
// drives. It is constructed once at mount time and torn down on
// unmount; nothing here is a package-level singleton.
type AppContext struct {
	Config *config.Config
	Logger *zap.SugaredLogger

	Store      kv.Store
	Scanner    *scanner.Scanner
	Mapper     *mapper.Mapper
	TagEngine  *tags.Engine
	CoverExt   *cover.Extractor
	Transcoder *transcode.Transcoder
	Engine     *engine.Engine
	Router     *router.Router
	Watcher    *scanner.Watcher

	knownPaths []string
}

// New constructs every collaborator from cfg, opening the configured KV
// backend (spec §6 kv_backend) and the workerpool sized by
// transcode_concurrency.
func New(cfg *config.Config, base *zap.Logger) (*AppContext, error) {
	logger := logging.Component(base, "app")

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: open kv store: %w", err)
	}

	prober := scanner.NewProber(cfg.FFmpegPath)
	sc := scanner.New(store, prober)
	tagEngine := tags.New(store)
	coverExt := cover.New(store)
	mp := mapper.New(store, coverExt)
	pool := workerpool.New(cfg.TranscodeConcurrency)
	transcoder := transcode.New(pool, cfg.FFmpegPath, logging.Component(base, "transcode"))
	mediaEngine := engine.New(tagEngine, coverExt, transcoder)
	r := router.New(tagEngine, mediaEngine)

	watcher, err := scanner.NewWatcher(cfg.SourceDirs)
	if err != nil {
		return nil, fmt.Errorf("app: start watcher: %w", err)
	}

	return &AppContext{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Scanner:    sc,
		Mapper:     mp,
		TagEngine:  tagEngine,
		CoverExt:   coverExt,
		Transcoder: transcoder,
		Engine:     mediaEngine,
		Router:     r,
		Watcher:    watcher,
	}, nil
}

func openStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.KVBackend {
	case config.BackendExternal:
		return kv.OpenRedis(cfg.KVAddr), nil
	default:
		if cfg.KVPath == "" {
			return kv.NewMemoryStore(), nil
		}
		return kv.OpenBolt(cfg.KVPath)
	}
}

// Rescan walks SourceDirs, rebuilds the TrackIndex, and atomically
// swaps a fresh router Snapshot in (spec §9 "swapped atomically on
// rescan; readers hold a snapshot; in-flight streams continue against
// their snapshot").
func (a *AppContext) Rescan(ctx context.Context) ([]mapper.Diagnostic, error) {
	result, err := a.Scanner.Walk(a.Config.SourceDirs)
	if err != nil {
		return nil, fmt.Errorf("app: scan: %w", err)
	}

	delta, err := a.Scanner.Delta(ctx, result, a.knownPaths)
	if err != nil {
		return nil, fmt.Errorf("app: delta: %w", err)
	}
	a.knownPaths = pathsOf(result)
	a.Logger.Infow("rescan delta", "added", len(delta.Added), "changed", len(delta.Changed), "removed", len(delta.Removed))

	idx, diags, err := a.Mapper.Build(ctx, result.Files, result.Cues)
	if err != nil {
		return diags, fmt.Errorf("app: map: %w", err)
	}

	snap, err := router.Build(ctx, idx, a.TagEngine, func(albumID identity.ID) string { return albumCoverHash(idx, albumID) })
	if err != nil {
		return diags, fmt.Errorf("app: build router snapshot: %w", err)
	}
	a.Router.Swap(snap)

	return diags, nil
}

func pathsOf(res scanner.Result) []string {
	paths := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

func albumCoverHash(idx *mapper.TrackIndex, albumID identity.ID) string {
	if a, ok := idx.Albums[albumID]; ok {
		return a.CoverHash
	}
	return ""
}

// Close releases every resource AppContext opened.
func (a *AppContext) Close() error {
	if a.Watcher != nil {
		a.Watcher.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
