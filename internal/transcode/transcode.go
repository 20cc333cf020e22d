// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/bogem/id3v2/v2"

	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"go.uber.org/zap"

	"github.com/ambrevar/musfuse/internal/apperrors"
	"github.com/ambrevar/musfuse/internal/cover"
	"github.com/ambrevar/musfuse/internal/cuesheet"
	"github.com/ambrevar/musfuse/internal/pathutil"
	"github.com/ambrevar/musfuse/internal/scanner"
	"github.com/ambrevar/musfuse/internal/tags"
	"github.com/ambrevar/musfuse/internal/workerpool"
)

// StreamRef is the minimal addressing Stream needs to open and, for
// CUE-subdivided tracks, clip a source file.
type StreamRef struct {
	SourcePath   string
	Format       scanner.Format
	HasCue       bool
	StartFrame   int // CD frames (75/sec); 0 when HasCue is false.
	LengthFrames int // CD frames; 0 means "to end of stream".
}

// Transcoder runs the C8 policy/streaming pipeline.
type Transcoder struct {
	pool       *workerpool.Pool
	ffmpegPath string
	logger     *zap.SugaredLogger
}

func New(pool *workerpool.Pool, ffmpegPath string, logger *zap.SugaredLogger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Transcoder{pool: pool, ffmpegPath: ffmpegPath, logger: logger}
}

// Stream opens ref under policy, merging tagMap and artwork into the
// output when policy is ConvertLossless (spec §4.8). The returned
// channel is closed after the final chunk (IsFinal == true) or after a
// mid-stream error is recorded; the caller observes completion by the
// channel closing, not by a separate error return, matching "the
// stream terminates with is_final=true on the last good chunk" (spec
// §4.8 "Errors mid-stream").
func (t *Transcoder) Stream(ctx context.Context, ref StreamRef, policy Policy, tagMap tags.TagMap, artwork *cover.ArtworkBlob) (<-chan AudioChunk, error) {
	if err := t.pool.Acquire(ctx); err != nil {
		return nil, err
	}

	out := make(chan AudioChunk, 4)
	switch policy {
	case ConvertLossless:
		go t.runConvert(ctx, ref, tagMap, artwork, out)
	default:
		go t.runPassthrough(ctx, ref, tagMap, out)
	}
	return out, nil
}

func (t *Transcoder) runPassthrough(ctx context.Context, ref StreamRef, tagMap tags.TagMap, out chan<- AudioChunk) {
	defer t.pool.Release()
	defer close(out)

	sourcePath := ref.SourcePath
	if SupportsInBandTagRewrite(ref.Format) {
		if rewritten, err := rewriteID3Tags(ref.SourcePath, tagMap); err == nil && rewritten != "" {
			sourcePath = rewritten
			defer os.Remove(rewritten)
		}
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		t.logger.Warnw("passthrough: open", "source", sourcePath, "err", err)
		emitEmptyFinal(ctx, out)
		return
	}
	defer f.Close()

	// Read one chunk ahead so IsFinal can be set on the chunk actually
	// emitted, not the read that discovers EOF: os.File.Read reports n>0
	// with a nil error on every data-carrying read and only returns
	// io.EOF on the subsequent, empty read, so there is no way to know a
	// chunk is the last one without already having read past it (spec §8
	// "exactly one chunk has is_final = true").
	pending, readErr := readChunk(f)

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if readErr != nil && len(pending) == 0 {
			if seq == 0 {
				select {
				case out <- AudioChunk{Seq: seq, IsFinal: true}:
				case <-ctx.Done():
				}
			}
			return
		}

		var next []byte
		var nextErr error
		if readErr == nil {
			next, nextErr = readChunk(f)
		} else {
			nextErr = readErr
		}
		isFinal := nextErr != nil && len(next) == 0

		select {
		case out <- AudioChunk{Seq: seq, Bytes: pending, TimestampFrames: 0, IsFinal: isFinal}:
		case <-ctx.Done():
			return
		}
		seq++

		if isFinal {
			return
		}
		pending, readErr = next, nextErr
	}
}

// readChunk reads up to MaxChunkBytes from f into a freshly allocated
// slice sized to what was actually read.
func readChunk(f *os.File) ([]byte, error) {
	buf := make([]byte, MaxChunkBytes)
	n, err := f.Read(buf)
	return buf[:n], err
}

func (t *Transcoder) runConvert(ctx context.Context, ref StreamRef, tagMap tags.TagMap, artwork *cover.ArtworkBlob, out chan<- AudioChunk) {
	defer t.pool.Release()
	defer close(out)

	tmp, err := pathutil.TempFile("", "musfuse-", ".flac")
	if err != nil {
		t.logger.Warnw("convert: temp file", "source", ref.SourcePath, "err", err)
		emitEmptyFinal(ctx, out)
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := t.decodeToFLAC(ctx, ref, tmpPath); err != nil {
		t.logger.Warnw("convert: decode", "source", ref.SourcePath, "err", err)
		emitEmptyFinal(ctx, out)
		return
	}

	f, err := flac.ParseFile(tmpPath)
	if err != nil {
		t.logger.Warnw("convert: parse decoded FLAC", "source", ref.SourcePath, "err", err)
		emitEmptyFinal(ctx, out)
		return
	}
	if err := injectMetadata(f, tagMap, artwork); err != nil {
		t.logger.Warnw("convert: inject metadata", "source", ref.SourcePath, "err", err)
		emitEmptyFinal(ctx, out)
		return
	}

	data := f.Marshal()
	totalSamples := streamSampleCount(f)
	sendMarshaled(ctx, data, totalSamples, out)
}

// emitEmptyFinal sends a single empty, final chunk so a consumer always
// sees is_final=true even when conversion fails before any audio data
// is produced (spec §4.8 "Errors mid-stream").
func emitEmptyFinal(ctx context.Context, out chan<- AudioChunk) {
	select {
	case out <- AudioChunk{IsFinal: true}:
	case <-ctx.Done():
	}
}

// decodeToFLAC invokes ffmpeg to decode (and, for CUE-subdivided
// tracks, clip) the source into a plain FLAC file at outPath, metadata
// stripped: tags and artwork are injected afterward by this package,
// not by ffmpeg, so STREAMINFO and the merged blocks are computed
// exactly once (spec §4.8 "STREAMINFO is computed from the decoder
// output").
func (t *Transcoder) decodeToFLAC(ctx context.Context, ref StreamRef, outPath string) error {
	args := []string{"-y", "-i", ref.SourcePath}
	if ref.HasCue {
		args = append(args, "-ss", cueSeconds(ref.StartFrame))
		if ref.LengthFrames > 0 {
			args = append(args, "-t", cueSeconds(ref.LengthFrames))
		}
	}
	args = append(args, "-map_metadata", "-1", "-f", "flac", outPath)

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	if err := cmd.Run(); err != nil {
		return apperrors.New(apperrors.Io, "transcode.decodeToFLAC", err)
	}
	return nil
}

// cueSeconds formats a CD-frame offset (75ths of a second) as the
// decimal-seconds string ffmpeg's -ss/-t expect, the same conversion
// demlo's ffmpegutil.go performs ahead of building its split-time args.
func cueSeconds(frame int) string {
	return fmt.Sprintf("%.3f", float64(frame)/float64(cuesheet.FramesPerSecond))
}

// rewriteID3Tags copies sourcePath to a temp file and rewrites its
// ID3v2 frames from tagMap, satisfying in-band tag rewrite for formats
// SupportsInBandTagRewrite names (spec §12 decision: MP3 via ID3v2;
// OGG/OPUS/AAC fall back to overlay-only, never rewritten in-band).
// Returns "" with a nil error when tagMap has nothing to write.
func rewriteID3Tags(sourcePath string, tagMap tags.TagMap) (string, error) {
	if len(tagMap) == 0 {
		return "", nil
	}

	tmp, err := pathutil.TempFile("", "musfuse-id3-", ".mp3")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	if err := pathutil.CopyFile(tmpPath, sourcePath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	tag, err := id3v2.Open(tmpPath, id3v2.Options{Parse: true})
	if err != nil {
		os.Remove(tmpPath)
		return "", apperrors.New(apperrors.Io, "transcode.rewriteID3Tags", err)
	}
	defer tag.Close()

	setFrame := func(key string, set func(string)) {
		if v, ok := tagMap[key]; ok && len(v) > 0 {
			set(v[0])
		}
	}
	setFrame("TITLE", tag.SetTitle)
	setFrame("ARTIST", tag.SetArtist)
	setFrame("ALBUM", tag.SetAlbum)
	setFrame("DATE", tag.SetYear)
	setFrame("GENRE", tag.SetGenre)

	if err := tag.Save(); err != nil {
		os.Remove(tmpPath)
		return "", apperrors.New(apperrors.Io, "transcode.rewriteID3Tags", err)
	}
	return tmpPath, nil
}

func injectMetadata(f *flac.File, tagMap tags.TagMap, artwork *cover.ArtworkBlob) error {
	var keep []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment || block.Type == flac.Picture {
			continue
		}
		keep = append(keep, block)
	}
	f.Meta = keep

	comment := flacvorbis.New()
	keys := make([]string, 0, len(tagMap))
	for k := range tagMap {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic block contents across identical inputs.
	for _, k := range keys {
		for _, v := range tagMap[k] {
			if err := comment.Add(strings.ToLower(k), v); err != nil {
				return apperrors.New(apperrors.Malformed, "transcode.injectMetadata", err)
			}
		}
	}
	commentMeta, err := comment.Marshal()
	if err != nil {
		return apperrors.New(apperrors.Fatal, "transcode.injectMetadata", err)
	}
	f.Meta = append(f.Meta, &commentMeta)

	if artwork != nil {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "", artwork.Bytes, artwork.MIME)
		if err != nil {
			return apperrors.New(apperrors.Malformed, "transcode.injectMetadata", err)
		}
		picMeta := pic.Marshal()
		f.Meta = append(f.Meta, &picMeta)
	}
	return nil
}

func streamSampleCount(f *flac.File) int64 {
	info, err := f.GetStreamInfo()
	if err != nil {
		return 0
	}
	return info.SampleCount
}

// sendMarshaled chunkifies a fully-assembled FLAC byte stream and
// delivers it, distributing timestamp_frames proportionally to byte
// offset across totalSamples: a compressed FLAC frame's byte length
// does not correspond 1:1 to its sample count, so exact per-chunk
// timestamps would require re-parsing frame headers; proportional
// distribution still satisfies the non-decreasing ordering invariant
// (spec §4.8) without that cost.
func sendMarshaled(ctx context.Context, data []byte, totalSamples int64, out chan<- AudioChunk) {
	if len(data) == 0 {
		select {
		case out <- AudioChunk{Seq: 0, Bytes: nil, TimestampFrames: 0, IsFinal: true}:
		case <-ctx.Done():
		}
		return
	}

	numChunks := int64((len(data) + MaxChunkBytes - 1) / MaxChunkBytes)
	framesPerChunk := int64(0)
	if numChunks > 0 {
		framesPerChunk = totalSamples / numChunks
	}
	chunks, _ := chunkify(data, 0, 0, framesPerChunk)
	for _, chunk := range chunks {
		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		}
	}
}
