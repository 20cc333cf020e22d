// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(Malformed, "cuesheet: parse", errors.New("unexpected token"))
	assert.True(t, Is(err, Malformed))
	assert.False(t, Is(err, Io))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New(Io, "kv: put", cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrorStringWithoutCause(t *testing.T) {
	err := New(NotFound, "router: lookup", nil)
	assert.Equal(t, "router: lookup: not_found", err.Error())
}
