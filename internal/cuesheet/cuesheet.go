// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package cuesheet parses CUE sheets into structured data (spec C4). The
// line-scanning grammar is grown from demlo's cuesheet package
// (regexp-per-directive over a bufio.Scanner), regeneralized to: emit
// line-numbered errors instead of a single opaque "cannot parse" string,
// track INDEX 00 pregaps separately from the audible INDEX 01 start, and
// express times directly in CD frames (75ths of a second) rather than
// Min/Sec/Msec, since that is the unit the rest of the system computes
// sample offsets from (spec §4.4).
package cuesheet

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FramesPerSecond is the number of CD frames per second of audio, the
// fixed unit CUE sheets express time in.
const FramesPerSecond = 75

var (
	reFile    = regexp.MustCompile(`(?i)^\s*FILE\s+(.+?)\s+(WAVE|AIFF|MP3|FLAC|BINARY)\s*$`)
	reTrack   = regexp.MustCompile(`(?i)^\s*TRACK\s+(\d+)\s+AUDIO\s*$`)
	reIndex   = regexp.MustCompile(`(?i)^\s*INDEX\s+(\d+)\s+(\d+):(\d+):(\d+)\s*$`)
	reTitle   = regexp.MustCompile(`(?i)^\s*TITLE\s+(.+?)\s*$`)
	rePerform = regexp.MustCompile(`(?i)^\s*PERFORMER\s+(.+?)\s*$`)
	reRem     = regexp.MustCompile(`(?i)^\s*REM\s+(\S+)\s+(.+?)\s*$`)
)

// Track is one TRACK block of a CueSheet.
type Track struct {
	Number     int
	Title      string
	Performer  string
	StartFrame int // INDEX 01, the audible start; absent until set.
	HasStart   bool
	PregapFrame int // INDEX 00, if present; not exposed as audio.
	HasPregap  bool
}

// Sheet is a fully parsed CUE sheet, referencing exactly one audio file
// per spec §3 (Parse splits a CUE with multiple FILE blocks into one
// Sheet per FILE, each carrying the disc-level TITLE/PERFORMER/REM
// fields that precede the first FILE).
type Sheet struct {
	File      string // As written in the CUE; may be relative.
	FileType  string
	Title     string
	Performer string
	Genre     string
	Date      string
	DiscID    string
	Tracks    []Track
}

// ParseError reports a line-numbered CUE grammar failure (spec §4.4).
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cuesheet: line %d: %s", e.Line, e.Reason)
}

// Parse parses CUE text (already decoded to UTF-8 by the caller; spec
// §4.4 allows declared-encoding bytes upstream of this function) into one
// Sheet per FILE block.
func Parse(text string) ([]Sheet, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var sheets []Sheet
	var cur *Sheet
	var header Sheet // disc-level TITLE/PERFORMER/REM seen before the first FILE
	lineNo := 0

	appendCurrent := func() {
		if cur != nil {
			sheets = append(sheets, *cur)
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case reFile.MatchString(line):
			m := reFile.FindStringSubmatch(line)
			appendCurrent()
			next := header
			next.File, next.FileType = unquote(m[1]), strings.ToUpper(m[2])
			cur = &next

		case reTrack.MatchString(line):
			if cur == nil {
				return nil, &ParseError{lineNo, "TRACK before FILE"}
			}
			m := reTrack.FindStringSubmatch(line)
			n, _ := strconv.Atoi(m[1])
			if len(cur.Tracks) > 0 && n <= cur.Tracks[len(cur.Tracks)-1].Number {
				return nil, &ParseError{lineNo, "track numbers must strictly increase"}
			}
			cur.Tracks = append(cur.Tracks, Track{Number: n})

		case reIndex.MatchString(line):
			if cur == nil || len(cur.Tracks) == 0 {
				return nil, &ParseError{lineNo, "INDEX before TRACK"}
			}
			m := reIndex.FindStringSubmatch(line)
			num, _ := strconv.Atoi(m[1])
			frame, err := frameFromMMSSFF(m[2], m[3], m[4])
			if err != nil {
				return nil, &ParseError{lineNo, "malformed INDEX: " + err.Error()}
			}
			t := &cur.Tracks[len(cur.Tracks)-1]
			switch num {
			case 0:
				t.PregapFrame, t.HasPregap = frame, true
			case 1:
				t.StartFrame, t.HasStart = frame, true
			default:
				// INDEX 02+ marks a sub-index within the track; spec §4.4
				// says only INDEX 01 defines the track start, so further
				// indices are accepted but otherwise ignored.
			}

		case reTitle.MatchString(line):
			m := reTitle.FindStringSubmatch(line)
			title := unquote(m[1])
			if cur == nil {
				header.Title = title
			} else if len(cur.Tracks) == 0 {
				cur.Title = title
			} else {
				cur.Tracks[len(cur.Tracks)-1].Title = title
			}

		case rePerform.MatchString(line):
			m := rePerform.FindStringSubmatch(line)
			performer := unquote(m[1])
			if cur == nil {
				header.Performer = performer
			} else if len(cur.Tracks) == 0 {
				cur.Performer = performer
			} else {
				cur.Tracks[len(cur.Tracks)-1].Performer = performer
			}

		case reRem.MatchString(line):
			m := reRem.FindStringSubmatch(line)
			target := cur
			if target == nil {
				target = &header // Disc-level REM, inherited by every FILE.
			}
			switch strings.ToUpper(m[1]) {
			case "GENRE":
				target.Genre = unquote(m[2])
			case "DATE":
				target.Date = unquote(m[2])
			case "DISCID":
				target.DiscID = unquote(m[2])
			}

		default:
			return nil, &ParseError{lineNo, "unexpected token: " + line}
		}
	}
	appendCurrent()

	if len(sheets) == 0 {
		return nil, &ParseError{lineNo, "missing FILE"}
	}
	for i := range sheets {
		if err := validate(&sheets[i]); err != nil {
			return nil, err
		}
	}
	return sheets, nil
}

func validate(s *Sheet) error {
	if len(s.Tracks) == 0 {
		return &ParseError{0, fmt.Sprintf("FILE %q has no TRACK entries", s.File)}
	}
	prev := -1
	for _, t := range s.Tracks {
		if t.Number <= prev {
			return &ParseError{0, "track indices must be strictly increasing"}
		}
		prev = t.Number
		if !t.HasStart {
			return &ParseError{0, fmt.Sprintf("track %d has no INDEX 01 start", t.Number)}
		}
	}
	return nil
}

func frameFromMMSSFF(mm, ss, ff string) (int, error) {
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(ss)
	if err != nil {
		return 0, err
	}
	f, err := strconv.Atoi(ff)
	if err != nil {
		return 0, err
	}
	if s >= 60 {
		return 0, fmt.Errorf("seconds field %d out of range", s)
	}
	if f >= FramesPerSecond {
		return 0, fmt.Errorf("frame field %d out of range", f)
	}
	return (m*60+s)*FramesPerSecond + f, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FrameToSample converts a CUE frame offset to a sample offset at the
// given sample rate, rounding toward zero (spec §8 "CUE frame math").
func FrameToSample(frame int, sampleRate int) int64 {
	return int64(frame) * int64(sampleRate) / FramesPerSecond
}
