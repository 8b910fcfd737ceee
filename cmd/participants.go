// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	participantsAdd     string
	participantsRemove  uint16
	participantsClear   bool
	participantsListen  time.Duration
)

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Inspect and manage the bus participant registry",
	Long: `participants connects to the configured bus, listens for a while with
auto-discovery enabled, applies any --add/--remove/--clear edits, and
prints the resulting registry.`,
	RunE: runParticipants,
}

func init() {
	participantsCmd.Flags().StringVar(&participantsAdd, "add", "", "manually register a participant: addr:name:temps:pumps:relays (addr in hex, e.g. 0x7E11:solar:6:2:2)")
	participantsCmd.Flags().Uint16Var(&participantsRemove, "remove", 0, "remove a participant by hex address")
	participantsCmd.Flags().BoolVar(&participantsClear, "clear", false, "clear the entire registry before listing")
	participantsCmd.Flags().DurationVar(&participantsListen, "listen", 2*time.Second, "how long to listen for auto-discovered participants")
}

func runParticipants(cmd *cobra.Command, args []string) error {
	decoder, source, closeConn, err := openDecoder()
	if err != nil {
		return err
	}
	defer closeConn()
	decoder.EnableAutoDiscovery(true)

	deadline := time.Now().Add(participantsListen)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		<-ticker.C
		decoder.Tick()
		_ = source
	}

	if participantsClear {
		decoder.ClearParticipants()
	}
	if cmd.Flags().Changed("remove") {
		if !decoder.RemoveParticipant(participantsRemove) {
			fmt.Printf("no participant at address 0x%04X\n", participantsRemove)
		}
	}
	if participantsAdd != "" {
		addr, name, temps, pumps, relays, err := parseParticipantSpec(participantsAdd)
		if err != nil {
			return err
		}
		if !decoder.AddParticipant(addr, name, temps, pumps, relays) {
			return fmt.Errorf("registry full or address 0x%04X reserved", addr)
		}
	}

	fmt.Printf("%-8s %-16s %-6s %-6s %-6s %-5s %s\n", "ADDR", "NAME", "TEMPS", "PUMPS", "RELAYS", "AUTO", "LAST SEEN (ms)")
	for i := 0; i < decoder.ParticipantCount(); i++ {
		p, ok := decoder.Participant(i)
		if !ok {
			continue
		}
		fmt.Printf("0x%04X  %-16s %-6d %-6d %-6d %-5v %d\n",
			p.Address, p.Name, p.TempChannels, p.PumpChannels, p.RelayChannels, p.AutoDetected, p.LastSeenMs)
	}
	return nil
}

// parseParticipantSpec parses "addr:name:temps:pumps:relays" with addr as
// a hex literal, the shape --add accepts on the command line.
func parseParticipantSpec(spec string) (addr uint16, name string, temps, pumps, relays uint8, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 5 {
		return 0, "", 0, 0, 0, fmt.Errorf("--add wants addr:name:temps:pumps:relays, got %q", spec)
	}
	addrVal, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 16)
	if err != nil {
		return 0, "", 0, 0, 0, fmt.Errorf("invalid address %q: %w", parts[0], err)
	}
	t, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return 0, "", 0, 0, 0, fmt.Errorf("invalid temp channel count %q: %w", parts[2], err)
	}
	p, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return 0, "", 0, 0, 0, fmt.Errorf("invalid pump channel count %q: %w", parts[3], err)
	}
	r, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return 0, "", 0, 0, 0, fmt.Errorf("invalid relay channel count %q: %w", parts[4], err)
	}
	return uint16(addrVal), parts[1], uint8(t), uint8(p), uint8(r), nil
}
