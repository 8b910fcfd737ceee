// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

import "testing"

func buildKWFrame(payload []byte) []byte {
	frame := []byte{kwSyncByte, byte(len(payload))}
	frame = append(frame, payload...)
	var xor byte
	for _, b := range frame {
		xor ^= b
	}
	return append(frame, xor)
}

func TestKWBusDecode(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolKW, src, clock)

	// offset 3: temp0 = 3.2C (hi=0x00, lo=0x20).
	frame := buildKWFrame([]byte{0x00, 0x00, 0x20})
	src.feed(frame...)
	runUntilIdle(d, src)

	if !d.IsReady() {
		t.Fatalf("decoder should be ready after a valid KW-Bus frame")
	}
	if d.Protocol() != ProtocolKW {
		t.Fatalf("protocol = %v, want kw-bus", d.Protocol())
	}
	if got := d.PumpNum(); got != 0 {
		t.Fatalf("PumpNum = %d, want 0 (cleared for the generic extractor)", got)
	}
	if got := d.RelayNum(); got != 0 {
		t.Fatalf("RelayNum = %d, want 0", got)
	}
	if got := d.Temp(0); got != 3.2 {
		t.Fatalf("Temp(0) = %v, want 3.2", got)
	}
}

func TestKWBusChecksumFailureRecovers(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolKW, src, clock)

	bad := buildKWFrame([]byte{0x00, 0x00, 0x20})
	bad[len(bad)-1] ^= 0xFF // corrupt the checksum
	good := buildKWFrame([]byte{0x00, 0x00, 0x50})
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
