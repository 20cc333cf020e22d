// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ambrevar/musfuse/internal/scanner"
)

func TestDecidePassthroughForLossyWithoutCue(t *testing.T) {
	assert.Equal(t, PassthroughLossy, Decide(scanner.FormatMP3, false))
	assert.Equal(t, PassthroughLossy, Decide(scanner.FormatOGG, false))
}

func TestDecideConvertForLosslessOrCue(t *testing.T) {
	assert.Equal(t, ConvertLossless, Decide(scanner.FormatFLAC, false))
	assert.Equal(t, ConvertLossless, Decide(scanner.FormatWAV, false))
	assert.Equal(t, ConvertLossless, Decide(scanner.FormatMP3, true))
}

func TestSupportsInBandTagRewriteOnlyMP3(t *testing.T) {
	assert.True(t, SupportsInBandTagRewrite(scanner.FormatMP3))
	assert.False(t, SupportsInBandTagRewrite(scanner.FormatOGG))
	assert.False(t, SupportsInBandTagRewrite(scanner.FormatAAC))
}
