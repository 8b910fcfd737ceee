// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

import "testing"

func TestVbusCRCAllZeroBlock(t *testing.T) {
	block := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x7F}
	if got := vbusCRC(block, 0, len(block)); got != 0 {
		t.Fatalf("vbusCRC(all-zero block) = %#x, want 0", got)
	}
}

func TestVbusCRCDetectsCorruption(t *testing.T) {
	block := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x7F}
	block[2] = 0x01
	if got := vbusCRC(block, 0, len(block)); got == 0 {
		t.Fatalf("vbusCRC(corrupted block) = 0, want nonzero")
	}
}

func TestSeptetInject(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	septetInject(buf, 0, 4)
	want := []byte{0x81, 0x02, 0x83, 0x04, 0x05}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf[%d] = %#x, want %#x", i, buf[i], want[i])
		}
	}
}

func TestVbusTemp(t *testing.T) {
	cases := []struct {
		low, high byte
		want      float32
	}{
		{0x20, 0x00, 3.2},
		{0x00, 0x00, 0.0},
		{0xFF, 0xFF, -0.1},
	}
	for _, c := range cases {
		if got := vbusTemp(c.low, c.high); got != c.want {
			t.Fatalf("vbusTemp(%#x,%#x) = %v, want %v", c.low, c.high, got, c.want)
		}
	}
}

func TestReflectByte(t *testing.T) {
	if got := reflectByte(0x80); got != 0x01 {
		t.Fatalf("reflectByte(0x80) = %#x, want 0x01", got)
	}
	if got := reflectByte(0x01); got != 0x80 {
		t.Fatalf("reflectByte(0x01) = %#x, want 0x80", got)
	}
}

func TestKmCRC16Deterministic(t *testing.T) {
	data := []byte{0xBF, 0x00, 0x00, 0x1C, 0x04}
	a := kmCRC16(data)
	b := kmCRC16(data)
	if a != b {
		t.Fatalf("kmCRC16 not deterministic: %#x != %#x", a, b)
	}
}

func TestKmCRC16EmptyIsZero(t *testing.T) {
	if got := kmCRC16(nil); got != 0 {
		t.Fatalf("kmCRC16(nil) = %#x, want 0", got)
	}
}

func TestKmCRC16DiffersOnCorruption(t *testing.T) {
	a := kmCRC16([]byte{0xBF, 0x00, 0x00, 0x1C, 0x04})
	b := kmCRC16([]byte{0xBF, 0x00, 0x00, 0x1C, 0x05})
	if a == b {
		t.Fatalf("kmCRC16 collided on a single-byte change")
	}
}
