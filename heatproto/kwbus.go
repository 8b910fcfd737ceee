// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// Viessmann KW-Bus (VS1) framing: 0x01 sync, a length byte, that many
// payload bytes, and a trailing XOR checksum over everything before it
// (including the sync byte, which is stored at buffer[0]).
//
//	buffer[0]   sync (0x01)
//	buffer[1]   length of the payload that follows
//	buffer[2:2+len] payload
//	buffer[2+len]   XOR checksum
const kwSyncByte = 0x01

type kwFramer struct{}

func newKWFramer() *kwFramer {
	return &kwFramer{}
}

func (f *kwFramer) isSyncByte(b byte) bool {
	return b == kwSyncByte
}

func (f *kwFramer) beginFrame(fb *frameBuffer, syncByte byte) {
	fb.reset()
	fb.append(syncByte)
}

func (f *kwFramer) accumulate(fb *frameBuffer, b byte) frameResult {
	if !fb.append(b) {
		return resultOverflow
	}
	if fb.writeIdx < 2 {
		return resultContinue
	}
	total := int(fb.data[1]) + 3
	if fb.writeIdx < total {
		return resultContinue
	}
	var xor byte
	for i := 0; i < total-1; i++ {
		xor ^= fb.data[i]
	}
	if xor != fb.data[total-1] {
		return resultError
	}
	return resultComplete
}

func (f *kwFramer) decode(d *Decoder, now int64) bool {
	decodeGenericSerialTemps(d.buf.bytes(), 3, &d.snapshot)
	d.snapshot.Protocol = ProtocolKW
	return true
}
