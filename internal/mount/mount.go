// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package mount defines the abstract surface a platform shim
// (FUSE/WinFSP request dispatch, out of scope here) drives against the
// router and engine (spec C11). Only the contract and a dry-run
// Provider live here; no platform code.
package mount

import (
	"context"
	"fmt"
	"sync"

	"github.com/ambrevar/musfuse/internal/app"
	"github.com/ambrevar/musfuse/internal/config"
)

// Status is the provider's lifecycle state (spec §4.11).
type Status int

const (
	Pending Status = iota
	Mounted
	Unmounted
	Faulted
)

func (s Status) String() string {
	switch s {
	case Mounted:
		return "mounted"
	case Unmounted:
		return "unmounted"
	case Faulted:
		return "faulted"
	default:
		return "pending"
	}
}

// EventKind classifies a MountEvent (spec §4.11).
type EventKind int

const (
	Mounting EventKind = iota
	EventMounted
	Unmounting
	EventUnmounted
	EventFaulted
)

// MountEvent is broadcast over a Provider's Events channel.
type MountEvent struct {
	Kind   EventKind
	Reason string // set only when Kind == EventFaulted.
}

// Provider is the abstract surface a platform shim invokes (spec
// §4.11). Call order invariant: PrepareEnvironment must precede Mount;
// Unmount is idempotent.
type Provider interface {
	PrepareEnvironment(ctx context.Context) error
	Mount(ctx context.Context, cfg *config.Config, appCtx *app.AppContext) error
	Unmount(ctx context.Context) error
	Status() Status
	Events() <-chan MountEvent
}

// DryRunProvider implements Provider without any platform mount: it
// only validates the call-order invariant and drives the AppContext's
// first rescan, making it suitable for tests and as the scaffold a real
// platform shim replaces (spec §10.4).
type DryRunProvider struct {
	mu       sync.Mutex
	prepared bool
	status   Status
	appCtx   *app.AppContext
	events   chan MountEvent
}

func NewDryRunProvider() *DryRunProvider {
	return &DryRunProvider{
		status: Pending,
		events: make(chan MountEvent, 16),
	}
}

func (p *DryRunProvider) PrepareEnvironment(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepared = true
	return nil
}

// Mount fails the call-order invariant unless PrepareEnvironment ran
// first, then runs one rescan against appCtx and flips to Mounted.
func (p *DryRunProvider) Mount(ctx context.Context, cfg *config.Config, appCtx *app.AppContext) error {
	p.mu.Lock()
	if !p.prepared {
		p.mu.Unlock()
		p.fault("mount called before prepare_environment")
		return fmt.Errorf("mount: PrepareEnvironment must precede Mount")
	}
	p.appCtx = appCtx
	p.mu.Unlock()

	p.emit(MountEvent{Kind: Mounting})

	if _, err := appCtx.Rescan(ctx); err != nil {
		p.fault(err.Error())
		return fmt.Errorf("mount: initial rescan: %w", err)
	}

	p.mu.Lock()
	p.status = Mounted
	p.mu.Unlock()
	p.emit(MountEvent{Kind: EventMounted})
	return nil
}

// Unmount is idempotent: calling it when already Unmounted or Pending
// is a no-op success (spec §4.11).
func (p *DryRunProvider) Unmount(ctx context.Context) error {
	p.mu.Lock()
	if p.status != Mounted {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.emit(MountEvent{Kind: Unmounting})

	var closeErr error
	if p.appCtx != nil {
		closeErr = p.appCtx.Close()
	}

	p.mu.Lock()
	p.status = Unmounted
	p.mu.Unlock()
	p.emit(MountEvent{Kind: EventUnmounted})
	return closeErr
}

func (p *DryRunProvider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *DryRunProvider) Events() <-chan MountEvent {
	return p.events
}

func (p *DryRunProvider) fault(reason string) {
	p.mu.Lock()
	p.status = Faulted
	p.mu.Unlock()
	p.emit(MountEvent{Kind: EventFaulted, Reason: reason})
}

func (p *DryRunProvider) emit(ev MountEvent) {
	select {
	case p.events <- ev:
	default:
		// Slow/absent consumer never blocks the mount lifecycle.
	}
}
