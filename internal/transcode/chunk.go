// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package transcode

// MaxChunkBytes bounds every AudioChunk except the final one (spec
// §4.8 streaming contract).
const MaxChunkBytes = 256 * 1024

// AudioChunk is one ordered piece of an open stream (spec §4.8).
type AudioChunk struct {
	Seq             int
	Bytes           []byte
	TimestampFrames int64
	IsFinal         bool
}

// chunkify splits data into AudioChunks of at most MaxChunkBytes,
// starting at startSeq/startTimestamp and advancing the timestamp by
// framesPerChunk per chunk; with framesPerChunk 0 every chunk carries
// startTimestamp (spec §4.8 only requires non-decreasing timestamps).
// It also returns the timestamp following the last chunk.
func chunkify(data []byte, startSeq int, startTimestamp int64, framesPerChunk int64) ([]AudioChunk, int64) {
	if len(data) == 0 {
		return nil, startTimestamp
	}
	var chunks []AudioChunk
	seq := startSeq
	ts := startTimestamp
	for offset := 0; offset < len(data); offset += MaxChunkBytes {
		end := offset + MaxChunkBytes
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, AudioChunk{
			Seq:             seq,
			Bytes:           data[offset:end],
			TimestampFrames: ts,
			IsFinal:         end == len(data),
		})
		seq++
		ts += framesPerChunk
	}
	return chunks, ts
}
