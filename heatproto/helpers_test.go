// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// fakeSource is an in-memory ByteSource fed entirely up front, standing in
// for a UART FIFO in tests.
type fakeSource struct {
	data []byte
	pos  int
}

func (f *fakeSource) Available() int {
	return len(f.data) - f.pos
}

func (f *fakeSource) ReadByte() (byte, error) {
	b := f.data[f.pos]
	f.pos++
	return b, nil
}

func (f *fakeSource) feed(b ...byte) {
	f.data = append(f.data, b...)
}

// fakeClock is a manually-advanced monotonic clock.
type fakeClock struct {
	now int64
}

func (c *fakeClock) NowMs() int64 {
	return c.now
}

func (c *fakeClock) advance(ms int64) {
	c.now += ms
}

// runUntilIdle ticks a decoder until the source has no bytes left to give
// it, or a generous safety bound is hit.
func runUntilIdle(d *Decoder, src *fakeSource) {
	for i := 0; i < 10000; i++ {
		before := src.pos
		d.Tick()
		if src.pos == before && src.Available() == 0 {
			return
		}
	}
}

// vbusHeaderBytes builds a 9-byte, checksum-valid VBUS header: no septet
// byte of its own, CRC at index 8. Built with the package's own vbusCRC
// rather than a hand-derived constant, so it stays correct if the header
// layout ever changes.
func vbusHeaderBytes(dst, src, cmd uint16, frameCnt uint8) []byte {
	h := make([]byte, 9)
	h[0] = byte(dst)
	h[1] = byte(dst >> 8)
	h[2] = byte(src)
	h[3] = byte(src >> 8)
	h[4] = 1 << 4 // protocol version 1
	h[5] = byte(cmd)
	h[6] = byte(cmd >> 8)
	h[7] = frameCnt
	h[8] = vbusCRC(h, 0, 8)
	return h
}

// vbusBlockBytes builds a 6-byte, checksum-valid VBUS data block (4 data
// bytes, a zero septet since every data byte here stays under 0x80, and a
// correct trailing CRC byte).
func vbusBlockBytes(d0, d1, d2, d3 byte) []byte {
	block := []byte{d0, d1, d2, d3, 0x00, 0x00}
	block[5] = vbusCRC(block, 0, 5)
	return block
}

// vbusSacrificialBlock is a block whose first five bytes sum to 0x7F mod
// 128, so it passes the CRC check even when the decoder never reads its
// sixth byte. It exists to absorb the preserved off-by-one completion test
// (OQ1: the receive handler tests write_idx against frame_len-1, one byte
// short), so it must always be the LAST block of a test frame; real field
// data belongs in earlier blocks, which are read and checksummed in full.
func vbusSacrificialBlock() []byte {
	return []byte{0x7F, 0x00, 0x00, 0x00, 0x00, 0x00}
}

// buildVBUSFrame concatenates a header and its data blocks into the byte
// stream a sync-detecting decoder should feed on, sync byte included. A
// sacrificial block is always appended last so every caller-supplied block
// lands at its normal, fully-checksummed offset.
func buildVBUSFrame(dst, src, cmd uint16, blocks [][4]byte) []byte {
	frameCnt := uint8(len(blocks) + 1)
	out := []byte{0xAA}
	out = append(out, vbusHeaderBytes(dst, src, cmd, frameCnt)...)
	for _, b := range blocks {
		out = append(out, vbusBlockBytes(b[0], b[1], b[2], b[3])...)
	}
	out = append(out, vbusSacrificialBlock()...)
	return out
}
