// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeNameReplacesDisallowedChars(t *testing.T) {
	assert.Equal(t, "Faithless_Live", SanitizeName("Faithless/Live"))
	assert.Equal(t, "A_B_C", SanitizeName("A:B*C"))
}

func TestSanitizeNamePreservesCJK(t *testing.T) {
	assert.Equal(t, "東京", SanitizeName("東京"))
}

func TestSanitizeNameTrimsLeadingTrailingSpacesAndDots(t *testing.T) {
	assert.Equal(t, "Album", SanitizeName("  Album. "))
}

func TestSanitizeNameEmptyFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", SanitizeName("   "))
	assert.Equal(t, "Unknown", SanitizeName("***"))
}
