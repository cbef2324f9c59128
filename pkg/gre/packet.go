// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Checksum returns (ETX + sum(payload)) mod 256.
func Checksum(payload []byte) byte {
	sum := byte(ETX)
	for _, b := range payload {
		sum += b
	}
	return sum
}

// Frame wraps payload for the wire: STX payload ETX checksum.
func Frame(payload []byte) []byte {
	packet := make([]byte, 0, len(payload)+3)
	packet = append(packet, byte(STX))
	packet = append(packet, payload...)
	packet = append(packet, byte(ETX), Checksum(payload))
	return packet
}

// HeaderPayload builds the first packet's payload: the platform code followed
// by the size as six uppercase ASCII hex digits.
func HeaderPayload(platform byte, size uint32) []byte {
	return append([]byte{platform}, fmt.Sprintf("%06X", size&MaxImageSize)...)
}

// Chunk is one data packet's payload.
type Chunk struct {
	// Hex is the uppercase ASCII hex encoding of the raw bytes
	Hex []byte

	// Raw is the number of raw bytes in the chunk
	Raw int

	// Offset is the number of raw payload bytes consumed including this chunk
	Offset int
}

// ChunkIterator yields a payload's data chunks in order, once.
type ChunkIterator struct {
	payload []byte
	size    int
	offset  int
}

// NewChunkIterator splits payload into chunks of at most size raw bytes.
// A size <= 0 uses ChunkSize.
func NewChunkIterator(payload []byte, size int) *ChunkIterator {
	if size <= 0 {
		size = ChunkSize
	}
	return &ChunkIterator{payload: payload, size: size}
}

// Next returns the next chunk, or false when the payload is exhausted.
func (it *ChunkIterator) Next() (Chunk, bool) {
	if it.offset >= len(it.payload) {
		return Chunk{}, false
	}

	end := it.offset + it.size
	if end > len(it.payload) {
		end = len(it.payload)
	}
	raw := it.payload[it.offset:end]
	it.offset = end

	return Chunk{
		Hex:    []byte(strings.ToUpper(hex.EncodeToString(raw))),
		Raw:    len(raw),
		Offset: end,
	}, true
}

// Remaining returns the number of raw bytes not yet returned by Next.
func (it *ChunkIterator) Remaining() int {
	return len(it.payload) - it.offset
}

// Percent returns min(offset, size) * 100 / size, or 100 when size is zero.
func Percent(offset int, size uint32) int {
	if size == 0 {
		return 100
	}
	done := uint64(offset)
	if offset < 0 {
		done = 0
	}
	if done > uint64(size) {
		done = uint64(size)
	}
	return int(done * 100 / uint64(size))
}
