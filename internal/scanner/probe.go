// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// probeResult mirrors the subset of ffprobe's JSON output the scanner
// needs, the same unmarshal-into-a-known-shape approach demlo's
// analyzer.go uses for its inputDesc.Streams/.Format fields, trimmed to
// only sample rate/channels/bits-per-raw-sample.
type probeResult struct {
	Streams []struct {
		CodecType        string `json:"codec_type"`
		SampleRate       string `json:"sample_rate"`
		Channels         int    `json:"channels"`
		BitsPerRawSample string `json:"bits_per_raw_sample"`
		BitsPerSample    int    `json:"bits_per_sample"`
	} `json:"streams"`
}

// Prober probes a source file for sample rate/channel/bit-depth
// information, invoking ffprobe as an external collaborator the way
// demlo shells out to ffprobe/ffmpeg rather than re-implementing
// container demuxing.
type Prober struct {
	FFprobePath string
}

func NewProber(ffmpegPath string) *Prober {
	probePath := "ffprobe"
	if dir := filepath.Dir(ffmpegPath); ffmpegPath != "" && ffmpegPath != "ffmpeg" && dir != "." {
		// Caller configured an ffmpeg binary outside PATH; look for
		// ffprobe next to it rather than relying on PATH to also carry it.
		probePath = filepath.Join(dir, "ffprobe")
	}
	return &Prober{FFprobePath: probePath}
}

// Probe runs ffprobe against path and fills in sample rate, channel
// count, and bit depth (0 when the codec doesn't expose one, e.g. lossy
// formats).
func (p *Prober) Probe(ctx context.Context, path string) (sampleRate, channels, bitDepth int, err error) {
	cmd := exec.CommandContext(ctx, p.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: %s: %w", stderr.String(), err)
	}

	var probed probeResult
	if err := json.Unmarshal(out, &probed); err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: unmarshal: %w", err)
	}

	for _, s := range probed.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if s.SampleRate != "" {
			sampleRate, _ = strconv.Atoi(s.SampleRate)
		}
		channels = s.Channels
		if s.BitsPerRawSample != "" {
			bitDepth, _ = strconv.Atoi(s.BitsPerRawSample)
		} else {
			bitDepth = s.BitsPerSample
		}
		return sampleRate, channels, bitDepth, nil
	}
	return 0, 0, 0, fmt.Errorf("ffprobe: %s: no audio stream", path)
}
