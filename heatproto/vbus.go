// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// RESOL VBUS header layout, relative to the first byte stored after the
// 0xAA sync byte (which is consumed but never written to the buffer):
//
//	0-1  destination address (LE)
//	2-3  source address (LE)
//	4    protocol version << 4 (low nibble unused at 8-bit width)
//	5-6  command (LE)
//	7    frame count
//	8    header CRC byte
//
// The header carries no septet of its own; block 0's first data byte
// begins immediately at index 9. Each of the frame-count data blocks that
// follows is 6 bytes: 4 data bytes, a septet byte restoring their MSBs,
// and a trailing CRC byte.
const vbusHeaderLen = 9
const vbusBlockLen = 6

// vbusStatusCommand is the only VBUS command this decoder extracts fields
// from; every other command is received, CRC-validated, and silently
// dropped without touching the snapshot (§4.2).
const vbusStatusCommand = 0x0100

type vbusHeader struct {
	dstAddr  uint16
	srcAddr  uint16
	version  uint8
	cmd      uint16
	frameCnt uint8
	frameLen int
}

type vbusFramer struct {
	header        vbusHeader
	headerDecoded bool
}

func newVBUSFramer() *vbusFramer {
	return &vbusFramer{}
}

func (f *vbusFramer) isSyncByte(b byte) bool {
	return b == 0xAA
}

func (f *vbusFramer) beginFrame(fb *frameBuffer, syncByte byte) {
	// The sync byte itself is not stored; the buffer starts the header at
	// index 0.
	f.header = vbusHeader{}
	f.headerDecoded = false
}

func (f *vbusFramer) accumulate(fb *frameBuffer, b byte) frameResult {
	if b&0x80 != 0 {
		return resultError
	}
	if !fb.append(b) {
		return resultOverflow
	}

	if !f.headerDecoded && fb.writeIdx > vbusHeaderLen {
		buf := fb.data[:]
		f.header.dstAddr = uint16(buf[0]) | uint16(buf[1])<<8
		f.header.srcAddr = uint16(buf[2]) | uint16(buf[3])<<8
		f.header.version = buf[4] >> 4
		f.header.cmd = uint16(buf[5]) | uint16(buf[6])<<8
		f.header.frameCnt = buf[7]
		f.header.frameLen = vbusHeaderLen + vbusBlockLen*int(f.header.frameCnt)
		f.headerDecoded = true

		if f.header.version != 1 {
			return resultDiscard
		}
		if vbusCRC(buf, 0, vbusHeaderLen) != 0 {
			return resultError
		}
	}

	// Preserved verbatim from the original decoder: completion is tested
	// one byte short of the block-derived frame length, not at it. See
	// DESIGN.md's Open Question log (OQ1).
	if f.headerDecoded && fb.writeIdx == f.header.frameLen-1 {
		for i := 0; i < int(f.header.frameCnt); i++ {
			if vbusCRC(fb.data[:], vbusHeaderLen+vbusBlockLen*i, vbusBlockLen) != 0 {
				return resultError
			}
		}
		return resultComplete
	}
	return resultContinue
}

func (f *vbusFramer) decode(d *Decoder, now int64) bool {
	if f.header.cmd != vbusStatusCommand {
		return false
	}
	buf := d.buf.data[:]
	switch f.header.srcAddr {
	case 0x1060:
		decodeVitosolic200(buf, &d.snapshot)
	case 0x7E11, 0x7E21:
		decodeDeltaSolBX(buf, &d.snapshot)
	case 0x7E31:
		decodeDeltaSolMX(buf, &d.snapshot)
	default:
		decodeGenericVBUS(buf, &d.snapshot)
	}
	d.snapshot.Protocol = ProtocolVBUS
	d.noteParticipant(f.header.srcAddr, now)
	return true
}

// decodeGenericVBUS handles any VBUS source address outside the known
// device table: two data blocks, four temperatures, no pumps or relays.
func decodeGenericVBUS(buf []byte, snap *Snapshot) {
	septetInject(buf, 9, 4)
	septetInject(buf, 15, 4)
	snap.Temps[0] = vbusTemp(buf[9], buf[10])
	snap.Temps[1] = vbusTemp(buf[11], buf[12])
	snap.Temps[2] = vbusTemp(buf[15], buf[16])
	snap.Temps[3] = vbusTemp(buf[17], buf[18])
	snap.TempNum = 4
	snap.PumpNum = 0
	snap.RelayNum = 0
}

// decodeVitosolic200 extracts Viessmann Vitosolic 200 (address 0x1060)
// fields: 12 temperatures across six blocks, 7 pump percentages across two
// further blocks, an error mask and system time, and a system variant byte.
func decodeVitosolic200(buf []byte, snap *Snapshot) {
	tempBlocks := [6]int{9, 15, 21, 27, 33, 39}
	for i, off := range tempBlocks {
		septetInject(buf, off, 4)
		snap.Temps[i*2] = vbusTemp(buf[off], buf[off+1])
		snap.Temps[i*2+1] = vbusTemp(buf[off+2], buf[off+3])
	}
	snap.TempNum = 12

	septetInject(buf, 75, 4)
	for i := 0; i < 4; i++ {
		snap.Pumps[i] = buf[75+i] & 0x7F
	}
	septetInject(buf, 81, 4)
	for i := 0; i < 3; i++ {
		snap.Pumps[4+i] = buf[81+i] & 0x7F
	}
	snap.PumpNum = 7

	snap.RelayNum = 7
	for i := 0; i < 7; i++ {
		snap.Relays[i] = snap.Pumps[i] == 100
	}

	septetInject(buf, 87, 4)
	snap.ErrorMask = uint16(buf[87]) | uint16(buf[88])<<8
	snap.SystemTimeMinutes = uint16(buf[89]) | uint16(buf[90])<<8

	septetInject(buf, 93, 4)
	snap.SystemVariant = buf[93] & 0x7F
}

// decodeDeltaSolBX extracts RESOL DeltaSol BX / BX Plus (addresses 0x7E11,
// 0x7E21) fields: 6 temperatures, 2 pumps driven as on/off relays, two
// operating-hours counters, and a heat quantity.
func decodeDeltaSolBX(buf []byte, snap *Snapshot) {
	tempBlocks := [3]int{9, 15, 21}
	for i, off := range tempBlocks {
		septetInject(buf, off, 4)
		snap.Temps[i*2] = vbusTemp(buf[off], buf[off+1])
		snap.Temps[i*2+1] = vbusTemp(buf[off+2], buf[off+3])
	}
	snap.TempNum = 6

	septetInject(buf, 33, 4)
	snap.Pumps[0] = buf[33] & 0x7F
	snap.Pumps[1] = buf[34] & 0x7F
	snap.PumpNum = 2
	snap.RelayNum = 2
	snap.Relays[0] = snap.Pumps[0] > 0
	snap.Relays[1] = snap.Pumps[1] > 0

	septetInject(buf, 39, 4)
	snap.OperatingHours[0] = uint32(buf[39]) | uint32(buf[40])<<8
	snap.OperatingHours[1] = uint32(buf[41]) | uint32(buf[42])<<8

	septetInject(buf, 45, 4)
	snap.HeatQuantityWh = uint16(buf[45]) | uint16(buf[46])<<8
}

// decodeDeltaSolMX extracts RESOL DeltaSol MX (address 0x7E31) fields: 4
// temperatures, 4 pumps driven as on/off relays, two operating-hours
// counters, a heat quantity, and an error mask.
func decodeDeltaSolMX(buf []byte, snap *Snapshot) {
	tempBlocks := [2]int{9, 15}
	for i, off := range tempBlocks {
		septetInject(buf, off, 4)
		snap.Temps[i*2] = vbusTemp(buf[off], buf[off+1])
		snap.Temps[i*2+1] = vbusTemp(buf[off+2], buf[off+3])
	}
	snap.TempNum = 4

	septetInject(buf, 21, 4)
	for i := 0; i < 4; i++ {
		snap.Pumps[i] = buf[21+i] & 0x7F
	}
	snap.PumpNum = 4
	snap.RelayNum = 4
	for i := 0; i < 4; i++ {
		snap.Relays[i] = snap.Pumps[i] > 0
	}

	septetInject(buf, 27, 4)
	snap.OperatingHours[0] = uint32(buf[27]) | uint32(buf[28])<<8
	snap.OperatingHours[1] = uint32(buf[29]) | uint32(buf[30])<<8

	septetInject(buf, 33, 4)
	snap.HeatQuantityWh = uint16(buf[33]) | uint16(buf[34])<<8

	septetInject(buf, 39, 4)
	snap.ErrorMask = uint16(buf[39]) | uint16(buf[40])<<8
}
