// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package apperrors defines the error kinds shared across the virtual music
// layer (spec §7). Every component wraps failures in an *Error so that
// callers can branch on Kind with errors.Is/errors.As instead of string
// matching, the way demlo's pipeline isolates per-file failures without
// losing the underlying cause.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so upper layers can decide propagation policy
// (isolate, retry, surface, crash) without inspecting error text.
type Kind int

const (
	// NotFound means a virtual path does not resolve. Soft; surfaces as a
	// standard filesystem not-found to the platform shim.
	NotFound Kind = iota
	// Unsupported means a format or operation is not handled.
	Unsupported
	// Malformed means a CUE sheet or tag block failed to parse.
	Malformed
	// Io means a source read, KV read, or worker I/O failed.
	Io
	// Concurrency means a write conflict exceeded its retry budget.
	Concurrency
	// Fatal means an invariant was violated (e.g. an attempt to write to a
	// source file). Propagates to the mount event stream as Faulted.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unsupported:
		return "unsupported"
	case Malformed:
		return "malformed"
	case Io:
		return "io"
	case Concurrency:
		return "concurrency"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type produced by every component in this
// module. Op names the component and operation, demlo-style ("scanner:
// walk", "transcode: open_stream"), so log lines stay greppable.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error. Err may be nil when the kind itself is the whole
// story (e.g. NotFound on a clean miss).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind, looking through wraps.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
