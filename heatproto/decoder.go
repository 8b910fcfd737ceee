// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 heatlink contributors

// Package heatproto decodes heating-bus telemetry off a raw byte stream.
// It speaks four wire protocols — RESOL VBUS, Viessmann KW-Bus (VS1),
// Viessmann P300 (VS2/Optolink) and KM-Bus — through a single non-blocking
// state machine driven by repeated calls to Tick. The core never blocks,
// never panics, and never returns an error from its hot path; callers read
// results through the Snapshot and participant-registry accessors.
package heatproto

import "sync"

// Protocol identifies which wire protocol a Decoder was constructed for.
type Protocol uint8

const (
	ProtocolVBUS Protocol = iota
	ProtocolKW
	ProtocolP300
	ProtocolKM
)

func (p Protocol) String() string {
	switch p {
	case ProtocolVBUS:
		return "vbus"
	case ProtocolKW:
		return "kw-bus"
	case ProtocolP300:
		return "p300"
	case ProtocolKM:
		return "km-bus"
	default:
		return "unknown"
	}
}

// State is one of the four states of the protocol state machine (§4.1).
type State uint8

const (
	StateSync State = iota
	StateReceive
	StateDecode
	StateError
)

func (s State) String() string {
	switch s {
	case StateSync:
		return "sync"
	case StateReceive:
		return "receive"
	case StateDecode:
		return "decode"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// silenceTimeoutMs is the maximum gap between successful frames before the
// decoder forces itself back through the Error state (§4.4).
const silenceTimeoutMs = 20000

// ByteSource is the non-blocking byte handle the decoder consumes. Both
// methods must return immediately; a host wrapping a blocking transport
// (serial port, socket) is expected to buffer on a background goroutine and
// expose that buffer through this interface.
type ByteSource interface {
	// Available reports how many bytes can currently be read without
	// blocking.
	Available() int
	// ReadByte returns the next buffered byte. It is only called when
	// Available() > 0.
	ReadByte() (byte, error)
}

// Clock is a monotonic millisecond counter.
type Clock interface {
	NowMs() int64
}

// frameResult is the outcome of feeding one byte to the active framer.
type frameResult uint8

const (
	resultContinue frameResult = iota
	resultComplete
	resultError
	resultDiscard
	resultOverflow
)

// framer implements the wire-format-specific parts of one protocol: sync
// detection, byte accumulation/completion, and field extraction. Exactly
// one framer backs a given Decoder for its lifetime.
type framer interface {
	isSyncByte(b byte) bool
	beginFrame(fb *frameBuffer, syncByte byte)
	accumulate(fb *frameBuffer, b byte) frameResult
	// decode dispatches the validated frame in d.buf to the right field
	// extractor. It reports whether the frame should flip ready/bus_ok;
	// a false return (VBUS frames whose command isn't 0x0100) silently
	// drops the frame without touching the snapshot.
	decode(d *Decoder, now int64) bool
}

// Decoder is a single protocol state machine: C3 (frame buffer) through C8
// (participant registry) behind one mutex, per §5's concurrency model.
type Decoder struct {
	mu sync.Mutex

	source ByteSource
	clock  Clock

	protocol Protocol
	framer   framer
	state    State

	buf      frameBuffer
	snapshot Snapshot
	registry *registry

	lastErrorKind  ErrorKind
	lastSrcAddr    uint16
}

// NewDecoder builds a decoder for the given protocol, reading from source
// and timing itself against clock. The frame buffer and registry are
// allocated once here; no further allocation occurs on the hot path.
func NewDecoder(protocol Protocol, source ByteSource, clock Clock) *Decoder {
	d := &Decoder{
		source:   source,
		clock:    clock,
		protocol: protocol,
		registry: newRegistry(),
		state:    StateSync,
	}
	switch protocol {
	case ProtocolKW:
		d.framer = newKWFramer()
	case ProtocolP300:
		d.framer = newP300Framer()
	case ProtocolKM:
		d.framer = newKMFramer()
	default:
		d.framer = newVBUSFramer()
		d.protocol = ProtocolVBUS
	}
	d.snapshot.Protocol = d.protocol
	d.buf.lastProgressMs = clock.NowMs()
	return d
}

// Tick performs at most one substantive state transition, consuming
// whatever bytes are currently available from the source. It never blocks
// and never panics; it is safe to call at any rate, though the protocols
// assume a cadence of at least 100 Hz to keep up with the bus.
func (d *Decoder) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.NowMs()
	if d.state != StateError && now-d.buf.lastProgressMs > silenceTimeoutMs {
		// Re-arm the watchdog so the following Sync ticks read bytes again
		// instead of firing the timeout on every pass.
		d.buf.lastProgressMs = now
		d.enterError(ErrorSilenceTimeout)
		return
	}

	switch d.state {
	case StateSync:
		d.doSync()
	case StateReceive:
		d.doReceive(now)
	case StateDecode:
		d.doDecode(now)
	case StateError:
		d.doError()
	}
}

func (d *Decoder) doSync() {
	if d.source.Available() <= 0 {
		return
	}
	b, err := d.source.ReadByte()
	if err != nil {
		return
	}
	if !d.framer.isSyncByte(b) {
		return
	}
	d.buf.reset()
	d.framer.beginFrame(&d.buf, b)
	d.state = StateReceive
}

func (d *Decoder) doReceive(now int64) {
	for d.source.Available() > 0 {
		b, err := d.source.ReadByte()
		if err != nil {
			return
		}
		res := d.framer.accumulate(&d.buf, b)
		switch res {
		case resultComplete:
			d.buf.lastProgressMs = now
			d.state = StateDecode
			return
		case resultError:
			d.enterError(ErrorFrameCorruption)
			return
		case resultOverflow:
			d.enterError(ErrorBufferOverflow)
			return
		case resultDiscard:
			d.state = StateSync
			return
		}
	}
}

func (d *Decoder) doDecode(now int64) {
	proceed := d.framer.decode(d, now)
	d.state = StateSync
	if proceed {
		d.buf.lastProgressMs = now
		d.snapshot.Ready = true
		d.snapshot.BusOK = true
		d.lastErrorKind = ErrorNone
	}
}

func (d *Decoder) doError() {
	d.snapshot.Ready = false
	d.snapshot.BusOK = false
	d.state = StateSync
}

func (d *Decoder) enterError(kind ErrorKind) {
	d.lastErrorKind = kind
	d.state = StateError
}

// noteParticipant feeds a source address observed on a successfully decoded
// frame into the registry's auto-discovery path, and records it as the
// decoder's current source address (External Interfaces:
// current_source_address).
func (d *Decoder) noteParticipant(addr uint16, now int64) {
	d.lastSrcAddr = addr
	d.registry.noteSeen(addr, now)
}

// ---- Snapshot accessors (§6) ----

func (d *Decoder) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot
}

func (d *Decoder) Temp(i uint8) float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.Temp(i)
}

func (d *Decoder) Pump(i uint8) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.Pump(i)
}

func (d *Decoder) Relay(i uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.Relay(i)
}

func (d *Decoder) TempNum() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.TempNum
}

func (d *Decoder) PumpNum() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.PumpNum
}

func (d *Decoder) RelayNum() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.RelayNum
}

func (d *Decoder) BusOK() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.BusOK
}

func (d *Decoder) IsReady() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.Ready
}

func (d *Decoder) Protocol() Protocol {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.protocol
}

func (d *Decoder) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Decoder) LastErrorKind() ErrorKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErrorKind
}

func (d *Decoder) ErrorMask() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.ErrorMask
}

func (d *Decoder) SystemTime() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.SystemTimeMinutes
}

func (d *Decoder) OperatingHours(i uint8) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.OperatingHour(i)
}

func (d *Decoder) HeatQuantity() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.HeatQuantityWh
}

func (d *Decoder) SystemVariant() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.SystemVariant
}

func (d *Decoder) KM() KMView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.KM
}

// ---- Registry accessors (§6) ----

func (d *Decoder) EnableAutoDiscovery(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.enableAutoDiscovery(enabled)
}

func (d *Decoder) IsAutoDiscoveryEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.isAutoDiscoveryEnabled()
}

func (d *Decoder) ParticipantCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.count()
}

func (d *Decoder) Participant(i int) (Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.at(i)
}

func (d *Decoder) ParticipantByAddress(addr uint16) (Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.byAddress(addr)
}

func (d *Decoder) AddParticipant(addr uint16, name string, temps, pumps, relays uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.add(addr, name, temps, pumps, relays)
}

func (d *Decoder) RemoveParticipant(addr uint16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.remove(addr)
}

func (d *Decoder) ClearParticipants() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.clear()
}

func (d *Decoder) CurrentSourceAddress() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSrcAddr
}
