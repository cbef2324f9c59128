// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Mock Clock
// ============================================================

// mockClock only advances when the engine sleeps.
type mockClock struct {
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time        { return c.now }
func (c *mockClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// ============================================================
// Mock Device
// ============================================================

type mockWrite struct {
	at   time.Time
	data []byte
}

type timedBytes struct {
	at   time.Duration
	data []byte
}

// mockDevice is a scripted bootloader behind a Channel. Replies are queued as
// soon as the host writes a frame; timed bytes appear at a clock offset.
type mockDevice struct {
	clock *mockClock
	start time.Time

	rx     []byte
	timed  []timedBytes
	writes []mockWrite
	resets int

	versionReply []byte
	headerReply  []byte
	dataReply    func(packet, attempt int) []byte

	headerSeen bool
	accepted   bool
	packet     int
	attempt    int
	received   []byte // decoded payload of accepted data packets
	current    []byte

	readErr  error
	writeErr error
}

func newMockDevice(clock *mockClock) *mockDevice {
	return &mockDevice{
		clock:    clock,
		start:    clock.Now(),
		accepted: true,
	}
}

// newHappyDevice prompts, accepts the header with ENQ, ACKs every packet and
// sends EOT after the last one.
func newHappyDevice(clock *mockClock, totalPackets int) *mockDevice {
	dev := newMockDevice(clock)
	dev.rx = []byte("CCC")
	dev.headerReply = []byte{byte(ENQ)}
	dev.dataReply = func(packet, attempt int) []byte {
		if packet == totalPackets {
			return []byte{byte(ACK), byte(EOT)}
		}
		return []byte{byte(ACK)}
	}
	return dev
}

func (d *mockDevice) at(offset time.Duration, data ...byte) {
	d.timed = append(d.timed, timedBytes{at: offset, data: data})
}

func (d *mockDevice) release() {
	now := d.clock.Now().Sub(d.start)
	kept := d.timed[:0]
	for _, tb := range d.timed {
		if tb.at <= now {
			d.rx = append(d.rx, tb.data...)
		} else {
			kept = append(kept, tb)
		}
	}
	d.timed = kept
}

func (d *mockDevice) Read(p []byte) (int, error) {
	if d.readErr != nil {
		return 0, d.readErr
	}
	d.release()
	n := copy(p, d.rx)
	d.rx = d.rx[n:]
	return n, nil
}

func (d *mockDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	data := append([]byte(nil), p...)
	d.writes = append(d.writes, mockWrite{at: d.clock.Now(), data: data})

	if len(data) < 4 || data[0] != byte(STX) {
		return len(p), nil
	}
	payload := data[1 : len(data)-2]

	switch {
	case len(payload) == 1 && payload[0] == VersionQuery:
		d.rx = append(d.rx, d.versionReply...)
	case !d.headerSeen:
		d.headerSeen = true
		d.rx = append(d.rx, d.headerReply...)
	default:
		d.receiveData(payload)
	}
	return len(p), nil
}

func (d *mockDevice) receiveData(payload []byte) {
	if d.accepted {
		d.packet++
		d.attempt = 1
	} else {
		d.attempt++
	}

	raw, err := hex.DecodeString(string(payload))
	if err != nil {
		panic(fmt.Sprintf("data packet is not hex: %q", payload))
	}
	d.current = raw

	var reply []byte
	if d.dataReply != nil {
		reply = d.dataReply(d.packet, d.attempt)
	}
	d.accepted = len(reply) > 0 && (reply[0] == byte(ACK) || reply[0] == byte(ENQ))
	if d.accepted {
		d.received = append(d.received, raw...)
	}
	d.rx = append(d.rx, reply...)
}

func (d *mockDevice) Flush() error { return nil }

func (d *mockDevice) ResetInputBuffer() error {
	d.resets++
	d.rx = d.rx[:0]
	return nil
}

func (d *mockDevice) ResetOutputBuffer() error { return nil }

// frames returns written frames whose payload matches kind:
// "version", "header", "data" or "ack" (bare ACK bytes).
func (d *mockDevice) frames(kind string) []mockWrite {
	var out []mockWrite
	headerSeen := false
	for _, w := range d.writes {
		if len(w.data) == 1 {
			if kind == "ack" && w.data[0] == byte(ACK) {
				out = append(out, w)
			}
			continue
		}
		payload := w.data[1 : len(w.data)-2]
		var k string
		switch {
		case len(payload) == 1 && payload[0] == VersionQuery:
			k = "version"
		case !headerSeen:
			headerSeen = true
			k = "header"
		default:
			k = "data"
		}
		if k == kind {
			out = append(out, w)
		}
	}
	return out
}

// ============================================================
// Mock Logger
// ============================================================

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

type mockLogger struct {
	entries []logEntry
}

func (l *mockLogger) Debug(msg string, kv ...interface{}) { l.add("debug", msg, kv) }
func (l *mockLogger) Info(msg string, kv ...interface{})  { l.add("info", msg, kv) }
func (l *mockLogger) Warn(msg string, kv ...interface{})  { l.add("warn", msg, kv) }
func (l *mockLogger) Error(msg string, kv ...interface{}) { l.add("error", msg, kv) }

func (l *mockLogger) add(level, msg string, kv []interface{}) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *mockLogger) has(level, substr string) bool {
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			return true
		}
	}
	return false
}

// ============================================================
// Helpers
// ============================================================

// testImage returns a PRO-668 image of n payload bytes with a non-repeating pattern.
func testImage(n int) *Image {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i*7 + i/256 + 1)
	}
	return &Image{
		Platform:         PlatformPRO668,
		OriginalPlatform: PlatformPRO668,
		Size:             uint32(n),
		Payload:          payload,
	}
}

func newTestSession(t *testing.T, dev *mockDevice, opts ...Option) (*Session, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	base := []Option{WithClock(dev.clock), WithLogger(logger)}
	return NewSession(dev, append(base, opts...)...), logger
}
