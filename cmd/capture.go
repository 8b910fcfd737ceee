// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var captureOut string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record raw bus bytes to a file for later replay",
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "capture.bin", "output file path")
}

func runCapture(cmd *cobra.Command, args []string) error {
	conn, label, err := openConnection(connectionOptionsFromFlags())
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.Create(captureOut)
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	defer f.Close()

	log.Printf("capturing from %s into %s (ctrl-c to stop)", label, captureOut)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(f, conn)
		done <- err
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		<-done
		return nil
	case err := <-done:
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		return nil
	}
}
