// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package pathutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempFileCreatesUniqueFiles(t *testing.T) {
	dir := t.TempDir()
	f1, err := TempFile(dir, "musfuse-", ".flac")
	require.NoError(t, err)
	defer f1.Close()
	f2, err := TempFile(dir, "musfuse-", ".flac")
	require.NoError(t, err)
	defer f2.Close()
	assert.NotEqual(t, f1.Name(), f2.Name())
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := dir + "/src.txt"
	dst := dir + "/dst.txt"
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))
	require.NoError(t, CopyFile(dst, src))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
