// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package transcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkifyRespectsMaxSize(t *testing.T) {
	data := make([]byte, MaxChunkBytes*2+100)
	chunks, _ := chunkify(data, 0, 0, 10)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Bytes, MaxChunkBytes)
	assert.Len(t, chunks[1].Bytes, MaxChunkBytes)
	assert.Len(t, chunks[2].Bytes, 100)
}

func TestChunkifySeqMonotonicAndTimestampNonDecreasing(t *testing.T) {
	data := make([]byte, MaxChunkBytes*3)
	chunks, _ := chunkify(data, 5, 1000, 20)
	for i, c := range chunks {
		assert.Equal(t, 5+i, c.Seq)
		if i > 0 {
			assert.GreaterOrEqual(t, c.TimestampFrames, chunks[i-1].TimestampFrames)
		}
	}
}

func TestChunkifyEmptyInputYieldsNoChunks(t *testing.T) {
	chunks, ts := chunkify(nil, 0, 42, 1)
	assert.Empty(t, chunks)
	assert.Equal(t, int64(42), ts)
}

func TestSendMarshaledMarksOnlyLastChunkFinal(t *testing.T) {
	data := make([]byte, MaxChunkBytes+1)
	out := make(chan AudioChunk, 8)
	sendMarshaled(context.Background(), data, 1000, out)
	close(out)

	var chunks []AudioChunk
	for c := range out {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 2)
	assert.False(t, chunks[0].IsFinal)
	assert.True(t, chunks[1].IsFinal)
	assert.LessOrEqual(t, chunks[0].TimestampFrames, chunks[1].TimestampFrames)
}
