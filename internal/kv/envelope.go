// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package kv

import (
	"errors"

	"github.com/ambrevar/musfuse/internal/apperrors"
)

var errEmptyEnvelope = errors.New("value has no schema version byte")

// SchemaV1 is the only schema version this module writes. Readers treat
// any other leading byte as an incompatible future format (spec §6 "All
// serializations include a one-byte schema version prefix").
const SchemaV1 byte = 1

// EncodeVersioned prefixes payload with a one-byte schema version.
func EncodeVersioned(version byte, payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	out[0] = version
	copy(out[1:], payload)
	return out
}

// DecodeVersioned strips and returns the leading schema version byte
// alongside the remaining payload.
func DecodeVersioned(raw []byte) (byte, []byte, error) {
	if len(raw) < 1 {
		return 0, nil, apperrors.New(apperrors.Malformed, "kv.DecodeVersioned", errEmptyEnvelope)
	}
	return raw[0], raw[1:], nil
}
