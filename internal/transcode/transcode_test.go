// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package transcode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrevar/musfuse/internal/cover"
	"github.com/ambrevar/musfuse/internal/scanner"
	"github.com/ambrevar/musfuse/internal/tags"
	"github.com/ambrevar/musfuse/internal/workerpool"
)

func TestCueSecondsConvertsFramesToTime(t *testing.T) {
	assert.Equal(t, "1.000", cueSeconds(75))
	assert.Equal(t, "0.000", cueSeconds(0))
}

func TestInjectMetadataReplacesExistingTagBlocksAndAddsPicture(t *testing.T) {
	f := &flac.File{
		Meta: []*flac.MetaDataBlock{
			{Type: flac.StreamInfo, Data: make([]byte, 34)},
			{Type: flac.VorbisComment, Data: []byte("stale")},
			{Type: flac.Picture, Data: []byte("stale-pic")},
		},
	}
	tagMap := tags.TagMap{"TITLE": {"New Title"}, "ARTIST": {"New Artist"}}
	art := &cover.ArtworkBlob{Bytes: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png", Hash: "abc"}

	require.NoError(t, injectMetadata(f, tagMap, art))

	var hasVorbis, hasPicture, staleSurvived int
	for _, b := range f.Meta {
		switch b.Type {
		case flac.VorbisComment:
			hasVorbis++
			assert.NotEqual(t, []byte("stale"), b.Data)
		case flac.Picture:
			hasPicture++
			assert.NotEqual(t, []byte("stale-pic"), b.Data)
		}
		if string(b.Data) == "stale" || string(b.Data) == "stale-pic" {
			staleSurvived++
		}
	}
	assert.Equal(t, 1, hasVorbis)
	assert.Equal(t, 1, hasPicture)
	assert.Equal(t, 0, staleSurvived)
}

func TestInjectMetadataWithoutArtworkAddsNoPictureBlock(t *testing.T) {
	f := &flac.File{Meta: []*flac.MetaDataBlock{{Type: flac.StreamInfo, Data: make([]byte, 34)}}}
	require.NoError(t, injectMetadata(f, tags.TagMap{"TITLE": {"T"}}, nil))

	for _, b := range f.Meta {
		assert.NotEqual(t, flac.Picture, b.Type)
	}
}

func TestRewriteID3TagsWritesFramesIntoACopy(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(source, []byte("not a real frame but a valid byte stream"), 0o644))

	out, err := rewriteID3Tags(source, tags.TagMap{"TITLE": {"Retitled"}, "ARTIST": {"Someone"}})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	defer os.Remove(out)
	assert.NotEqual(t, source, out, "rewrite must not mutate the source file")

	tag, err := id3v2.Open(out, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Equal(t, "Retitled", tag.Title())
	assert.Equal(t, "Someone", tag.Artist())

	original, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "not a real frame but a valid byte stream", string(original))
}

func TestRewriteID3TagsNoopOnEmptyTagMap(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(source, []byte("data"), 0o644))

	out, err := rewriteID3Tags(source, tags.TagMap{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunPassthroughMarksExactlyOneChunkFinal(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "track.mp3")
	content := make([]byte, MaxChunkBytes*2+17) // spans three chunks.
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(source, content, 0o644))

	tr := New(workerpool.New(1), "ffmpeg", nil)
	chunks, err := tr.Stream(context.Background(), StreamRef{SourcePath: source, Format: scanner.FormatMP3}, PassthroughLossy, nil, nil)
	require.NoError(t, err)

	var got []byte
	finalCount := 0
	for c := range chunks {
		got = append(got, c.Bytes...)
		if c.IsFinal {
			finalCount++
		}
	}
	assert.Equal(t, 1, finalCount)
	assert.Equal(t, content, got)
}

func TestRunPassthroughEmptyFileEmitsOneEmptyFinalChunk(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(source, nil, 0o644))

	tr := New(workerpool.New(1), "ffmpeg", nil)
	chunks, err := tr.Stream(context.Background(), StreamRef{SourcePath: source, Format: scanner.FormatMP3}, PassthroughLossy, nil, nil)
	require.NoError(t, err)

	var received []AudioChunk
	for c := range chunks {
		received = append(received, c)
	}
	require.Len(t, received, 1)
	assert.True(t, received[0].IsFinal)
	assert.Empty(t, received[0].Bytes)
}
