// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package workerpool caps concurrent blocking workers with a global
// semaphore (spec §5 "a global semaphore caps concurrent blocking
// workers, default: number of CPU cores"). It generalizes the
// bounded-concurrency half of demlo's pipeline.go — that Pipeline
// bounds per-stage goroutine counts over a stream of FileRecords; here
// there is one long-lived blocking task per open audio stream instead
// of many short per-file tasks, so a plain acquire/release semaphore
// replaces the stage/channel machinery.
package workerpool

import "context"

// Pool bounds the number of concurrently running blocking workers.
type Pool struct {
	sem chan struct{}
}

// New creates a Pool with the given capacity (spec default: runtime
// NumCPU, chosen by the caller).
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{sem: make(chan struct{}, capacity)}
}

// Acquire blocks until a worker slot is free or ctx is canceled.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a worker slot. Must be called exactly once per
// successful Acquire.
func (p *Pool) Release() {
	<-p.sem
}

// Capacity reports the pool's configured concurrency cap.
func (p *Pool) Capacity() int {
	return cap(p.sem)
}

// InUse reports how many worker slots are currently held.
func (p *Pool) InUse() int {
	return len(p.sem)
}
