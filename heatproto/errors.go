// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

package heatproto

// ErrorKind classifies why the decoder last fell back to the Error state.
// These are not Go error values: Tick never returns an error and never
// panics, per the core's total contract. ErrorKind exists so a host can log
// or count failures without the core needing an observer callback.
type ErrorKind uint8

const (
	// ErrorNone means the decoder has not faulted since construction or
	// since the last successful frame.
	ErrorNone ErrorKind = iota
	// ErrorFrameCorruption covers a VBUS payload byte with its MSB set, a
	// failed CRC/checksum, a bad KM-Bus sentinel or length mismatch.
	ErrorFrameCorruption
	// ErrorSilenceTimeout fires when no successful frame completed within
	// the silence window.
	ErrorSilenceTimeout
	// ErrorBufferOverflow fires when the frame buffer fills without the
	// frame completing; it is a defensive backstop, not expected in
	// normal operation against any of the four wire protocols.
	ErrorBufferOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorFrameCorruption:
		return "frame corruption"
	case ErrorSilenceTimeout:
		return "silence timeout"
	case ErrorBufferOverflow:
		return "buffer overflow"
	default:
		return "unknown"
	}
}
