// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package pathutil provides the temp-file staging helpers the
// transcoder needs, adapted from demlo's pathutil.go.
package pathutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// CopyFile copies src to dst. dst must already exist (or be creatable)
// and is clobbered; callers wanting atomic replace should copy into a
// temp file next to the destination and rename.
func CopyFile(dst, src string) error {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()

	sstat, err := sf.Stat()
	if err != nil {
		return err
	}
	if !sstat.Mode().IsRegular() {
		return errors.New("pathutil: not a regular file")
	}

	df, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, sstat.Mode())
	if err != nil {
		return err
	}
	defer df.Close()

	_, err = io.Copy(df, sf)
	return err
}

var randState uint32
var randMu sync.Mutex

func reseed() uint32 {
	return uint32(time.Now().UnixNano() + int64(os.Getpid()))
}

func nextSuffix() string {
	randMu.Lock()
	r := randState
	if r == 0 {
		r = reseed()
	}
	r = r*1664525 + 1013904223 // constants from Numerical Recipes.
	randState = r
	randMu.Unlock()
	return strconv.Itoa(int(1e9 + r%1e9))[1:]
}

// TempFile behaves like os.CreateTemp with an added suffix, used to
// stage ffmpeg output before the transcoder parses it and replaces its
// FLAC metadata blocks in the re-marshaled stream (spec §4.8).
func TempFile(dir, prefix, suffix string) (f *os.File, err error) {
	if dir == "" {
		dir = os.TempDir()
	}

	nconflict := 0
	for i := 0; i < 10000; i++ {
		name := filepath.Join(dir, prefix+nextSuffix()+suffix)
		f, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
		if os.IsExist(err) {
			if nconflict++; nconflict > 10 {
				randMu.Lock()
				randState = reseed()
				randMu.Unlock()
			}
			continue
		}
		break
	}
	return
}
