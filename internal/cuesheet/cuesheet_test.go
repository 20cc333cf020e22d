// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package cuesheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `REM GENRE Electronica
REM DATE 1998
PERFORMER "Faithless"
TITLE "Live in Berlin"
FILE "album.flac" FLAC
  TRACK 01 AUDIO
    TITLE "Reverence"
    PERFORMER "Faithless"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "She's My Baby"
    INDEX 00 06:40:00
    INDEX 01 06:42:00
`

func TestParseBasicSheet(t *testing.T) {
	sheets, err := Parse(sample)
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	s := sheets[0]
	assert.Equal(t, "album.flac", s.File)
	assert.Equal(t, "FLAC", s.FileType)
	assert.Equal(t, "Faithless", s.Performer)
	assert.Equal(t, "Live in Berlin", s.Title)
	assert.Equal(t, "Electronica", s.Genre)
	require.Len(t, s.Tracks, 2)

	assert.Equal(t, "Reverence", s.Tracks[0].Title)
	assert.Equal(t, 0, s.Tracks[0].StartFrame)
	assert.False(t, s.Tracks[0].HasPregap)

	assert.Equal(t, "She's My Baby", s.Tracks[1].Title)
	assert.True(t, s.Tracks[1].HasPregap)
	assert.Equal(t, (6*60+40)*FramesPerSecond, s.Tracks[1].PregapFrame)
	assert.Equal(t, (6*60+42)*FramesPerSecond, s.Tracks[1].StartFrame)
}

func TestParseMultiFileSheet(t *testing.T) {
	const multi = `FILE "cd1.flac" FLAC
  TRACK 01 AUDIO
    INDEX 01 00:00:00
FILE "cd2.flac" FLAC
  TRACK 01 AUDIO
    INDEX 01 00:00:00
`
	sheets, err := Parse(multi)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "cd1.flac", sheets[0].File)
	assert.Equal(t, "cd2.flac", sheets[1].File)
}

func TestParseRejectsNonIncreasingTrackNumbers(t *testing.T) {
	const bad = `FILE "a.flac" FLAC
  TRACK 02 AUDIO
    INDEX 01 00:00:00
  TRACK 01 AUDIO
    INDEX 01 00:01:00
`
	_, err := Parse(bad)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseRejectsMissingIndex01(t *testing.T) {
	const bad = `FILE "a.flac" FLAC
  TRACK 01 AUDIO
    TITLE "no start"
`
	_, err := Parse(bad)
	require.Error(t, err)
}

func TestParseRejectsMissingFile(t *testing.T) {
	_, err := Parse("TRACK 01 AUDIO\nINDEX 01 00:00:00\n")
	require.Error(t, err)
}

func TestParseErrorIncludesLineNumber(t *testing.T) {
	const bad = `FILE "a.flac" FLAC
garbage line here
`
	_, err := Parse(bad)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestFrameToSampleRoundsTowardZero(t *testing.T) {
	// 1 frame at 44100 Hz = 588 samples exactly.
	assert.Equal(t, int64(588), FrameToSample(1, 44100))
	// Non-exact division rounds toward zero.
	assert.Equal(t, int64(0), FrameToSample(1, 74))
}
