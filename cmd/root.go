// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

// Package cmd implements the heatctl command-line tool: a connection layer
// (serial or WebSocket) feeding a heatproto.Decoder, exposed through
// headless polling, a live terminal dashboard, raw capture, and replay.
package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heatlink/heatlink/heatproto"
)

var (
	flagPort          string
	flagBaud          int
	flagURL           string
	flagUsername      string
	flagNoSSLVerify   bool
	flagConfig        string
	flagProtocol      string
	flagAutoDiscovery bool

	loadedConfig Config
)

var rootCmd = &cobra.Command{
	Use:   "heatctl",
	Short: "Decode RESOL VBUS, Viessmann KW-Bus/P300, and KM-Bus heating telemetry",
	Long: `heatctl reads a heating-system bus (RESOL VBUS, Viessmann KW-Bus/VS1,
Viessmann P300/VS2 Optolink, or KM-Bus) from a serial port or a
serial-over-WebSocket bridge and decodes it into a live telemetry snapshot.

A WebSocket password is read from the HEATLINK_PASSWORD environment
variable, or prompted for interactively; there is intentionally no
--password flag, to keep it out of shell history.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		conf, err := LoadConfig(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		loadedConfig = conf
		applyConfigDefaults(cmd)
		return nil
	},
}

// applyConfigDefaults fills unset flags from config.toml, the same
// precedence order (flags win, config fills gaps) as the teacher's
// connection setup.
func applyConfigDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("port") && flagPort == "" {
		flagPort = loadedConfig.Connection.Port
	}
	if !cmd.Flags().Changed("baud") && loadedConfig.Connection.Baud != 0 {
		flagBaud = loadedConfig.Connection.Baud
	}
	if !cmd.Flags().Changed("url") && flagURL == "" {
		flagURL = loadedConfig.Connection.URL
	}
	if !cmd.Flags().Changed("username") && flagUsername == "" {
		flagUsername = loadedConfig.Connection.Username
	}
	if !cmd.Flags().Changed("protocol") && loadedConfig.Protocol.Name != "" {
		flagProtocol = loadedConfig.Protocol.Name
	}
	if !cmd.Flags().Changed("auto-discovery") && loadedConfig.Protocol.AutoDiscovery {
		flagAutoDiscovery = true
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "serial port device (e.g. /dev/ttyUSB0)")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", 9600, "serial baud rate")
	rootCmd.PersistentFlags().StringVarP(&flagURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", "", "WebSocket basic auth username")
	rootCmd.PersistentFlags().BoolVar(&flagNoSSLVerify, "no-ssl-verify", false, "skip TLS certificate verification for wss://")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.toml", "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&flagProtocol, "protocol", "vbus", "bus protocol: vbus, kw, p300, km")
	rootCmd.PersistentFlags().BoolVar(&flagAutoDiscovery, "auto-discovery", false, "auto-register participants seen on the bus")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(participantsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// parseProtocol maps a --protocol flag value to a heatproto.Protocol.
func parseProtocol(name string) (heatproto.Protocol, error) {
	switch strings.ToLower(name) {
	case "vbus", "":
		return heatproto.ProtocolVBUS, nil
	case "kw", "kw-bus", "kwbus", "vs1":
		return heatproto.ProtocolKW, nil
	case "p300", "vs2", "optolink":
		return heatproto.ProtocolP300, nil
	case "km", "km-bus", "kmbus":
		return heatproto.ProtocolKM, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", name)
	}
}

// connectionOptionsFromFlags builds a connectionOptions from the current
// persistent flag values.
func connectionOptionsFromFlags() connectionOptions {
	return connectionOptions{
		port:        flagPort,
		baud:        flagBaud,
		wsURL:       flagURL,
		username:    flagUsername,
		noSSLVerify: flagNoSSLVerify,
	}
}

// openDecoder opens the configured connection and wires it to a freshly
// constructed Decoder for the configured protocol. The returned closer
// must be called to release the underlying transport.
func openDecoder() (*heatproto.Decoder, *streamSource, func() error, error) {
	protocol, err := parseProtocol(flagProtocol)
	if err != nil {
		return nil, nil, nil, err
	}
	conn, label, err := openConnection(connectionOptionsFromFlags())
	if err != nil {
		return nil, nil, nil, err
	}
	log.Printf("connected to %s (%s)", label, protocol)
	source := newStreamSource(conn)
	decoder := heatproto.NewDecoder(protocol, source, realClock{})
	decoder.EnableAutoDiscovery(flagAutoDiscovery)
	return decoder, source, conn.Close, nil
}
