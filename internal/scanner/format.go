// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package scanner

import "strings"

// Format is a classified audio container (spec §3 SourceFile.Format).
type Format int

const (
	FormatUnknown Format = iota
	FormatFLAC
	FormatWAV
	FormatAPE
	FormatWV
	FormatMP3
	FormatAAC
	FormatOGG
	FormatOPUS
)

func (f Format) String() string {
	switch f {
	case FormatFLAC:
		return "FLAC"
	case FormatWAV:
		return "WAV"
	case FormatAPE:
		return "APE"
	case FormatWV:
		return "WV"
	case FormatMP3:
		return "MP3"
	case FormatAAC:
		return "AAC"
	case FormatOGG:
		return "OGG"
	case FormatOPUS:
		return "OPUS"
	default:
		return "Unknown"
	}
}

// Lossless reports whether the container stores uncompressed or
// losslessly-compressed samples (spec §4.8 ConvertLossless candidates).
func (f Format) Lossless() bool {
	switch f {
	case FormatFLAC, FormatWAV, FormatAPE, FormatWV:
		return true
	default:
		return false
	}
}

var extensionFormats = map[string]Format{
	"flac": FormatFLAC,
	"wav":  FormatWAV,
	"ape":  FormatAPE,
	"wv":   FormatWV,
	"mp3":  FormatMP3,
	"aac":  FormatAAC,
	"m4a":  FormatAAC,
	"ogg":  FormatOGG,
	"opus": FormatOPUS,
}

// cueExtension is handled by the scanner separately from audio formats:
// a .cue file is never itself a SourceFile, only a sidecar consumed by
// the track mapper (C5).
const cueExtension = "cue"

// ClassifyExtension maps a lowercased, dot-free file extension to a
// Format. ok is false for unsupported extensions (spec §4.3 "Emits
// nothing for unsupported extensions").
func ClassifyExtension(ext string) (Format, bool) {
	f, ok := extensionFormats[strings.ToLower(ext)]
	return f, ok
}

// SupportedExtensions lists every extension the scanner recognizes,
// audio and CUE sidecars alike.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionFormats)+1)
	for e := range extensionFormats {
		exts = append(exts, e)
	}
	exts = append(exts, cueExtension)
	return exts
}
