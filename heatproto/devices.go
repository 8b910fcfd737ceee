// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// channelCounts describes how many temperature, pump and relay channels a
// device reports, used to auto-configure a newly discovered participant. The
// VBUS field extractor is picked separately, by a switch on the same
// addresses in vbus.go.
type channelCounts struct {
	Temps, Pumps, Relays uint8
}

// vbusDeviceTable maps a VBUS source address to its known channel layout.
// Addresses absent from this table fall back to defaultChannelCounts and
// the generic extractor.
var vbusDeviceTable = map[uint16]channelCounts{
	0x1060: {Temps: 12, Pumps: 7, Relays: 7}, // Vitosolic 200
	0x7E11: {Temps: 6, Pumps: 2, Relays: 2},  // DeltaSol BX
	0x7E21: {Temps: 6, Pumps: 2, Relays: 2},  // DeltaSol BX Plus
	0x7E31: {Temps: 4, Pumps: 4, Relays: 4},  // DeltaSol MX
}

// defaultChannelCounts is used for any VBUS source address not present in
// vbusDeviceTable.
var defaultChannelCounts = channelCounts{Temps: 4, Pumps: 2, Relays: 2}

// lookupDeviceChannels resolves a VBUS source address to its channel
// layout, falling back to the generic default for unrecognized devices.
func lookupDeviceChannels(addr uint16) channelCounts {
	if c, ok := vbusDeviceTable[addr]; ok {
		return c
	}
	return defaultChannelCounts
}
