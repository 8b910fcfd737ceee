// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// KM-Bus long-frame layout:
//
//	buffer[0]   0x68 (sync/start)
//	buffer[1]   L, the length of control+address+data
//	buffer[2]   L repeated
//	buffer[3]   0x68 (start repeated)
//	buffer[4]   control
//	buffer[5]   address
//	buffer[6:4+L] data
//	buffer[4+L:6+L] CRC-16 over buffer[4:4+L), little-endian
//	buffer[6+L]     0x16 (end); the whole frame is L+7 bytes
//
// Receive-only: no transmit path is in scope (see DESIGN.md OQ5).
const kmSyncByte = 0x68
const kmEndByte = 0x16
const kmStatusControl = 0xBF
const kmMinStatusLen = 15

type kmFramer struct{}

func newKMFramer() *kmFramer {
	return &kmFramer{}
}

func (f *kmFramer) isSyncByte(b byte) bool {
	return b == kmSyncByte
}

func (f *kmFramer) beginFrame(fb *frameBuffer, syncByte byte) {
	fb.reset()
	fb.append(syncByte)
}

func (f *kmFramer) accumulate(fb *frameBuffer, b byte) frameResult {
	if !fb.append(b) {
		return resultOverflow
	}
	if fb.writeIdx == 4 {
		if fb.data[1] != fb.data[2] || fb.data[3] != kmSyncByte {
			return resultError
		}
	}
	if fb.writeIdx < 4 {
		return resultContinue
	}
	l := int(fb.data[1])
	total := l + 7
	if fb.writeIdx < total {
		return resultContinue
	}
	if fb.data[total-1] != kmEndByte {
		return resultError
	}
	crc := kmCRC16(fb.data[4 : 4+l])
	received := uint16(fb.data[total-3]) | uint16(fb.data[total-2])<<8
	if crc != received {
		return resultError
	}
	return resultComplete
}

func (f *kmFramer) decode(d *Decoder, now int64) bool {
	l := int(d.buf.data[1])
	decodeKMStatus(d.buf.data[:], l, &d.snapshot)
	d.snapshot.Protocol = ProtocolKM
	d.noteParticipant(uint16(d.buf.data[5]), now)
	return true
}

// decodeKMStatus decodes a write-record status frame (control 0xBF, record
// selector in 0x1C-0x1F) into the KM view and the mirrored generic
// temperature/pump/relay arrays. The record selector is read as-is; every
// status field after it is XOR-encoded with 0xAA except the gate byte, which
// must equal 0xAA verbatim for the mode byte to be trusted. l is the control+address+data
// length (buffer[1]), not the total wire-frame length: the extractor reads up
// to buf[base+14], which needs l >= kmMinStatusLen to stay inside buf[4:4+l).
func decodeKMStatus(buf []byte, l int, snap *Snapshot) bool {
	if l < kmMinStatusLen {
		return false
	}
	const base = 4
	if buf[base+0] != kmStatusControl {
		return false
	}
	selector := buf[base+3]
	if selector < 0x1C || selector > 0x1F {
		return false
	}

	flags := buf[base+4] ^ 0xAA
	burner := flags&0x04 != 0
	boiler := float32(buf[base+6]^0xAA) * 0.5
	hotWater := float32(buf[base+7]^0xAA) * 0.5
	setpoint := float32(buf[base+8]^0xAA) * 0.5
	outdoor := float32(buf[base+10]^0xAA) * 0.5
	pumpFlags := buf[base+11] ^ 0xAA
	mainPump := pumpFlags&0x80 != 0
	loopPump := pumpFlags&0x40 != 0
	departure := float32(buf[base+12]^0xAA) * 0.5

	var mode uint8
	if buf[base+13] == 0xAA {
		mode = buf[base+14] ^ 0xAA
	}

	snap.KM = KMView{
		Burner:     burner,
		MainPump:   mainPump,
		LoopPump:   loopPump,
		Mode:       mode,
		BoilerC:    boiler,
		HotWaterC:  hotWater,
		OutdoorC:   outdoor,
		SetpointC:  setpoint,
		DepartureC: departure,
	}

	snap.Temps[0] = boiler
	snap.Temps[1] = hotWater
	snap.Temps[2] = outdoor
	snap.Temps[3] = setpoint
	snap.Temps[4] = departure
	snap.TempNum = 5

	snap.Pumps[0] = boolToPercent(mainPump)
	snap.Pumps[1] = boolToPercent(loopPump)
	snap.PumpNum = 2

	snap.Relays[0] = burner
	snap.RelayNum = 1

	return true
}

func boolToPercent(b bool) uint8 {
	if b {
		return 100
	}
	return 0
}
