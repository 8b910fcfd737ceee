// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

import "testing"

// TestBufferOverflowDefensiveGuard exercises B3/invariant I1: a frame that
// never completes before the buffer fills forces an Error transition
// rather than writing past write_idx = 255.
func TestBufferOverflowDefensiveGuard(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolKW, src, clock)

	// length byte 0xFF promises 255 payload bytes (total 258), which this
	// decoder will never see enough of; feed more bytes than the buffer
	// can ever hold without a matching checksum byte appearing.
	stream := []byte{kwSyncByte, 0xFF}
	for i := 0; i < 260; i++ {
		stream = append(stream, 0x7A)
	}
	src.feed(stream...)
	runUntilIdle(d, src)
	d.Tick() // let doError() run and return the state machine to Sync

	if got := d.LastErrorKind(); got != ErrorBufferOverflow {
		t.Fatalf("LastErrorKind = %v, want buffer overflow", got)
	}
	if got := d.State(); got != StateSync {
		t.Fatalf("state after overflow recovery = %v, want sync", got)
	}
}

func TestNewDecoderDefaultsUnknownProtocolToVBUS(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(Protocol(99), src, clock)
	if d.Protocol() != ProtocolVBUS {
		t.Fatalf("Protocol() = %v, want vbus for an unrecognized protocol value", d.Protocol())
	}
}

func TestProtocolStringers(t *testing.T) {
	cases := map[Protocol]string{
		ProtocolVBUS:  "vbus",
		ProtocolKW:    "kw-bus",
		ProtocolP300:  "p300",
		ProtocolKM:    "km-bus",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Fatalf("Protocol(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestRegistryAccessorsThroughDecoder(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolVBUS, src, clock)

	if d.IsAutoDiscoveryEnabled() {
		t.Fatalf("auto-discovery should default to disabled")
	}
	if !d.AddParticipant(0x7E11, "solar", 6, 2, 2) {
		t.Fatalf("AddParticipant should succeed")
	}
	p, ok := d.ParticipantByAddress(0x7E11)
	if !ok || p.Name != "solar" {
		t.Fatalf("ParticipantByAddress = %+v, ok=%v", p, ok)
	}
	if !d.RemoveParticipant(0x7E11) {
		t.Fatalf("RemoveParticipant should succeed for a known address")
	}
	if d.ParticipantCount() != 0 {
		t.Fatalf("ParticipantCount after remove = %d, want 0", d.ParticipantCount())
	}

	d.AddParticipant(0x1111, "a", 0, 0, 0)
	d.AddParticipant(0x2222, "b", 0, 0, 0)
	d.ClearParticipants()
	if d.ParticipantCount() != 0 {
		t.Fatalf("ParticipantCount after ClearParticipants = %d, want 0", d.ParticipantCount())
	}
}

// TestTickIsNonBlockingOnEmptySource exercises the total-contract guarantee
// that Tick makes progress (or politely does nothing) without blocking when
// no bytes are available.
func TestTickIsNonBlockingOnEmptySource(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{}
	d := NewDecoder(ProtocolVBUS, src, clock)
	for i := 0; i < 100; i++ {
		d.Tick()
	}
	if d.IsReady() {
		t.Fatalf("an idle decoder should never report ready")
	}
}
