// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// passwordEnvVar lets a WebSocket password be supplied without ever
// appearing in shell history; GetPassword falls back to an interactive
// prompt when it isn't set.
const passwordEnvVar = "HEATLINK_PASSWORD"

// rawConn is the blocking transport underneath a streamSource. Both
// transports heatctl supports (serial, WebSocket) only ever need to be
// read from and closed; nothing in heatproto writes back to the bus.
type rawConn interface {
	io.Reader
	io.Closer
}

// ErrConnectionClosed is returned by a webSocketConn's Read after Close has
// run; a serialConn returns whatever error the closed port reports.
var ErrConnectionClosed = fmt.Errorf("connection closed")

// serialConn wraps a go.bug.st/serial port.
type serialConn struct {
	port serial.Port
}

func (s *serialConn) Read(p []byte) (int, error) { return s.port.Read(p) }
func (s *serialConn) Close() error               { return s.port.Close() }

// OpenSerialConnection opens a serial port at the given baud rate, 8N1,
// matching the wire format every one of spec.md's four protocols assumes.
func OpenSerialConnection(portName string, baudRate int) (rawConn, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return &serialConn{port: port}, nil
}

// webSocketConn adapts a gorilla/websocket connection carrying binary
// messages into a plain byte stream, buffering whatever is left of the
// current message between Read calls.
type webSocketConn struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *webSocketConn) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrConnectionClosed
	}
	for w.bufOffset >= len(w.buf) {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("websocket read: %w", err)
		}
		w.buf = data
		w.bufOffset = 0
	}
	n := copy(p, w.buf[w.bufOffset:])
	w.bufOffset += n
	return n, nil
}

func (w *webSocketConn) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.conn.Close()
}

// OpenWebSocketConnection dials a remote serial-over-WebSocket bridge,
// the shape spec.md's ambient stack calls for so the decoder can be
// exercised against a bridged bus without local hardware.
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (rawConn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" && skipSSLVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	header := http.Header{}
	if username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		header.Set("Authorization", "Basic "+auth)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial websocket %s: %w", wsURL, err)
	}
	return &webSocketConn{conn: conn}, nil
}

// GetPassword reads a WebSocket Basic Auth password from HEATLINK_PASSWORD,
// falling back to an interactive, non-echoing terminal prompt.
func GetPassword() (string, error) {
	if pw := os.Getenv(passwordEnvVar); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// openConnection dispatches to serial or WebSocket based on which flags
// were set, following cmd/root.go's mutually-exclusive --port/--url shape.
func openConnection(opts connectionOptions) (rawConn, string, error) {
	switch {
	case opts.wsURL != "":
		pw := ""
		if opts.username != "" {
			var err error
			pw, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		conn, err := OpenWebSocketConnection(opts.wsURL, opts.username, pw, opts.noSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, opts.wsURL, nil
	case opts.port != "":
		conn, err := OpenSerialConnection(opts.port, opts.baud)
		if err != nil {
			return nil, "", err
		}
		return conn, opts.port, nil
	default:
		return nil, "", fmt.Errorf("no connection specified: pass --port or --url")
	}
}

// streamSource adapts a blocking rawConn into heatproto.ByteSource. A
// background goroutine keeps calling Read and appends whatever arrives to
// a mutex-guarded byte slice; Tick's hot path only ever drains that slice,
// so it never blocks on bus I/O.
type streamSource struct {
	mu   sync.Mutex
	buf  []byte
	head int
	err  error
}

func newStreamSource(conn rawConn) *streamSource {
	s := &streamSource{}
	go s.pump(conn)
	return s
}

func (s *streamSource) pump(conn rawConn) {
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf = append(s.buf, chunk[:n]...)
			s.compact()
			s.mu.Unlock()
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
	}
}

// compact drops already-consumed bytes once they dominate the buffer, so a
// long-running capture doesn't grow the slice unboundedly.
func (s *streamSource) compact() {
	if s.head > 0 && s.head > len(s.buf)/2 {
		s.buf = append([]byte(nil), s.buf[s.head:]...)
		s.head = 0
	}
}

func (s *streamSource) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf) - s.head
}

func (s *streamSource) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.head >= len(s.buf) {
		return 0, fmt.Errorf("no bytes available")
	}
	b := s.buf[s.head]
	s.head++
	return b, nil
}

func (s *streamSource) connErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// connectionOptions collects the flags openConnection dispatches on.
type connectionOptions struct {
	port        string
	baud        int
	wsURL       string
	username    string
	noSSLVerify bool
}

// realClock satisfies heatproto.Clock with the wall clock.
type realClock struct{}

func (realClock) NowMs() int64 { return time.Now().UnixMilli() }
