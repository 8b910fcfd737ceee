// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heatlink/heatlink/heatproto"
)

var (
	runTickRate time.Duration
	runJSON     bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode the bus headlessly, printing the telemetry snapshot",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().DurationVar(&runTickRate, "tick-rate", 10*time.Millisecond, "Decoder.Tick() polling interval")
	runCmd.Flags().DurationVar(&runInterval, "print-interval", time.Second, "how often to print the snapshot")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the snapshot as JSON instead of plain text")
}

// snapshotJSON is the encoding/json-friendly shape the --json flag emits,
// so any external logger or dashboard can consume heatctl's output without
// the core package needing a JSON dependency.
type snapshotJSON struct {
	Ready    bool      `json:"ready"`
	BusOK    bool      `json:"bus_ok"`
	Protocol string    `json:"protocol"`
	Temps    []float32 `json:"temps"`
	Pumps    []uint8   `json:"pumps"`
	Relays   []bool    `json:"relays"`
}

func runRun(cmd *cobra.Command, args []string) error {
	decoder, source, closeConn, err := openDecoder()
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(runTickRate)
	defer ticker.Stop()
	printTicker := time.NewTicker(runInterval)
	defer printTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			decoder.Tick()
			if err := source.connErr(); err != nil {
				log.Printf("connection lost: %v", err)
				return fmt.Errorf("connection lost: %w", err)
			}
		case <-printTicker.C:
			printSnapshot(decoder)
		}
	}
}

func printSnapshot(decoder *heatproto.Decoder) {
	if runJSON {
		snap := snapshotJSON{
			Ready:    decoder.IsReady(),
			BusOK:    decoder.BusOK(),
			Protocol: decoder.Protocol().String(),
		}
		for i := uint8(0); i < decoder.TempNum(); i++ {
			snap.Temps = append(snap.Temps, decoder.Temp(i))
		}
		for i := uint8(0); i < decoder.PumpNum(); i++ {
			snap.Pumps = append(snap.Pumps, decoder.Pump(i))
		}
		for i := uint8(0); i < decoder.RelayNum(); i++ {
			snap.Relays = append(snap.Relays, decoder.Relay(i))
		}
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(snap); err != nil {
			log.Printf("encode snapshot: %v", err)
		}
		return
	}

	if !decoder.IsReady() {
		fmt.Println("waiting for a valid frame...")
		return
	}
	fmt.Printf("[%s] bus_ok=%v", decoder.Protocol(), decoder.BusOK())
	for i := uint8(0); i < decoder.TempNum(); i++ {
		fmt.Printf(" T%d=%.1fC", i, decoder.Temp(i))
	}
	for i := uint8(0); i < decoder.PumpNum(); i++ {
		fmt.Printf(" P%d=%d%%", i, decoder.Pump(i))
	}
	for i := uint8(0); i < decoder.RelayNum(); i++ {
		fmt.Printf(" R%d=%v", i, decoder.Relay(i))
	}
	fmt.Println()
}
