// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors
//
// heatctl - multi-protocol heating-bus telemetry decoder
//
// Decodes RESOL VBUS, Viessmann KW-Bus/VS1, Viessmann P300/VS2 Optolink,
// and KM-Bus telemetry from a serial port or a serial-over-WebSocket
// bridge.

package main

import (
	"fmt"
	"os"

	"github.com/heatlink/heatlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
