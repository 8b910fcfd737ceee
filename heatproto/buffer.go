// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// frameBufferSize bounds every in-flight frame. A frame that declares more
// than fits (a VBUS frame count above 41, a KW-Bus or P300 length byte above
// 252, a KM-Bus L above 248) fills the buffer before it completes and is
// reported as a buffer overflow.
const frameBufferSize = 255

// frameBuffer is the single reusable receive buffer (C3). It is allocated
// once with the decoder and never grows; write_idx tracks how much of it
// holds bytes from the frame currently in flight.
type frameBuffer struct {
	data           [frameBufferSize]byte
	writeIdx       int
	lastProgressMs int64
}

// reset rewinds the buffer to the start of a new frame. Bytes beyond the old
// write_idx are left untouched (not zeroed), matching the static-buffer
// reuse a tight embedded decoder relies on.
func (b *frameBuffer) reset() {
	b.writeIdx = 0
}

// append stores a byte at write_idx and advances it. It reports false
// without writing once the buffer is full, which the caller treats as a
// defensive overflow (invariant I1: write_idx <= 255).
func (b *frameBuffer) append(by byte) bool {
	if b.writeIdx >= frameBufferSize {
		return false
	}
	b.data[b.writeIdx] = by
	b.writeIdx++
	return true
}

// bytes returns the portion of the buffer actually written for the frame in
// flight.
func (b *frameBuffer) bytes() []byte {
	return b.data[:b.writeIdx]
}
