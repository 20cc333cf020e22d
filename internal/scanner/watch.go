// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package scanner

import (
	"github.com/fsnotify/fsnotify"

	"github.com/ambrevar/musfuse/internal/apperrors"
)

// Watcher triggers a rescan on filesystem change events under the
// configured source directories, the optional live-rescan supplement
// described in SPEC_FULL.md §12.2. It deliberately does nothing smarter
// than "something changed, rescan": the Scanner's own Delta computation
// already does the precise added/changed/removed bookkeeping.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Trigger chan struct{}
}

// NewWatcher creates a Watcher and registers roots non-recursively;
// subdirectories are watched only once they are registered with AddDir.
func NewWatcher(roots []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.New(apperrors.Fatal, "scanner.NewWatcher", err)
	}
	w := &Watcher{fsw: fsw, Trigger: make(chan struct{}, 1)}
	for _, root := range roots {
		if err := fsw.Add(root); err != nil {
			fsw.Close()
			return nil, apperrors.New(apperrors.Io, "scanner.NewWatcher", err)
		}
	}
	return w, nil
}

// AddDir registers an additional directory to watch. The Scanner's walk
// does not call it.
func (w *Watcher) AddDir(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return apperrors.New(apperrors.Io, "scanner.Watcher.AddDir", err)
	}
	return nil
}

// Run forwards a rescan signal to Trigger until Close is called,
// coalescing events while a signal is already pending. Errors from the
// underlying watcher are discarded without logging, since a missed
// event only delays a rescan rather than corrupting state.
func (w *Watcher) Run() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			select {
			case w.Trigger <- struct{}{}:
			default:
				// A rescan is already pending; coalesce.
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the underlying fsnotify watcher, which causes Run to
// return once it drains the closed Events/Errors channels. Trigger is
// left open since Run is its only writer and simply stops writing.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
