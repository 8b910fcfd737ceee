// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

import "testing"

func buildP300Frame(sync byte, payload []byte) []byte {
	frame := []byte{sync, byte(len(payload))}
	frame = append(frame, payload...)
	var sum byte
	for _, b := range frame {
		sum += b
	}
	return append(frame, sum)
}

func TestP300Decode(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolP300, src, clock)

	// offset 5: temp0 = 3.2C (hi=0x00, lo=0x20).
	frame := buildP300Frame(0x05, []byte{0x00, 0x00, 0x00, 0x00, 0x20})
	src.feed(frame...)
	runUntilIdle(d, src)

	if !d.IsReady() {
		t.Fatalf("decoder should be ready after a valid P300 frame")
	}
	if d.Protocol() != ProtocolP300 {
		t.Fatalf("protocol = %v, want p300", d.Protocol())
	}
	if got := d.Temp(0); got != 3.2 {
		t.Fatalf("Temp(0) = %v, want 3.2", got)
	}
}

func TestP300AcceptsEitherSyncByte(t *testing.T) {
	for _, sync := range []byte{0x05, 0x01} {
		src := &fakeSource{}
		clock := &fakeClock{}
		d := NewDecoder(ProtocolP300, src, clock)
		frame := buildP300Frame(sync, []byte{0x00, 0x00, 0x00, 0x00, 0x20})
		src.feed(frame...)
		runUntilIdle(d, src)
		if !d.IsReady() {
			t.Fatalf("sync byte %#x should be accepted", sync)
		}
	}
}

func TestP300ChecksumFailureRecovers(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolP300, src, clock)

	bad := buildP300Frame(0x05, []byte{0x00, 0x00, 0x00, 0x00, 0x20})
	bad[len(bad)-1] ^= 0xFF
	good := buildP300Frame(0x05, []byte{0x00, 0x00, 0x00, 0x00, 0x50})
	src.feed(bad...)
	src.feed(good...)
	runUntilIdle(d, src)

	if !d.IsReady() {
		t.Fatalf("decoder should recover on the following well-formed frame")
	}
	if got := d.Temp(0); got != 8.0 {
		t.Fatalf("Temp(0) = %v, want 8.0 from the recovered frame", got)
	}
}
