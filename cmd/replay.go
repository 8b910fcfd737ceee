// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/heatlink/heatlink/heatproto"
)

var (
	replayFile     string
	replayRate     time.Duration
	replayInterval time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a capture file through the decoder",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "capture.bin", "capture file to replay")
	replayCmd.Flags().DurationVar(&replayRate, "tick-rate", 10*time.Millisecond, "Decoder.Tick() polling interval")
	replayCmd.Flags().DurationVar(&replayInterval, "print-interval", time.Second, "how often to print the snapshot")
}

// fileSource feeds a fully in-memory byte slice to the decoder as a
// non-blocking ByteSource, so a capture file exercises exactly the same
// Tick() path as a live bus.
type fileSource struct {
	data []byte
	pos  int
}

func (f *fileSource) Available() int { return len(f.data) - f.pos }

func (f *fileSource) ReadByte() (byte, error) {
	if f.pos >= len(f.data) {
		return 0, fmt.Errorf("no bytes available")
	}
	b := f.data[f.pos]
	f.pos++
	return b, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	protocol, err := parseProtocol(flagProtocol)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(replayFile)
	if err != nil {
		return fmt.Errorf("read capture file: %w", err)
	}

	source := &fileSource{data: data}
	decoder := heatproto.NewDecoder(protocol, source, realClock{})
	decoder.EnableAutoDiscovery(flagAutoDiscovery)

	ticker := time.NewTicker(replayRate)
	defer ticker.Stop()
	printTicker := time.NewTicker(replayInterval)
	defer printTicker.Stop()

	for source.Available() > 0 {
		select {
		case <-ticker.C:
			decoder.Tick()
		case <-printTicker.C:
			printSnapshot(decoder)
		}
	}
	// drain any trailing state (a final frame sitting mid-decode) before
	// printing the last snapshot.
	for i := 0; i < 1000 && source.Available() == 0; i++ {
		decoder.Tick()
	}
	printSnapshot(decoder)
	return nil
}
