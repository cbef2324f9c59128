// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRecorderTranscript(t *testing.T) {
	clock := newMockClock()
	img := testImage(60)
	dev := newHappyDevice(clock, img.TotalPackets())

	var buf bytes.Buffer
	rec := NewRecorder(dev, &buf, clock)

	s := NewSession(rec, WithClock(clock))
	if _, err := s.Run(context.Background(), img); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("recorder: %v", err)
	}

	entries, err := ReadTranscript(&buf)
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}

	var tx, rx, resets int
	var lastOffset time.Duration
	for _, e := range entries {
		switch e.Direction {
		case DirectionTx:
			tx++
		case DirectionRx:
			rx++
		case DirectionReset:
			resets++
		}
		if e.Offset < lastOffset {
			t.Errorf("entry offsets not monotonic: %s after %s", e.Offset, lastOffset)
		}
		lastOffset = e.Offset
	}

	// version query, header, 2 data packets
	if tx != 4 {
		t.Errorf("TX entries = %d, expected 4", tx)
	}
	if rx == 0 {
		t.Error("no RX entries recorded")
	}
	if resets != 1 {
		t.Errorf("reset entries = %d, expected 1", resets)
	}

	if !bytes.Equal(entries[0].Data, []byte("CCC")) || entries[0].Direction != DirectionRx {
		t.Errorf("first entry = %+v, expected RX CCC", entries[0])
	}
}

func TestReadTranscriptTruncated(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(newMockDevice(newMockClock()), &buf, nil)
	if _, err := rec.Write(Frame([]byte{VersionQuery})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := rec.Write([]byte{byte(ACK)}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data := buf.Bytes()
	entries, err := ReadTranscript(bytes.NewReader(data[:len(data)-1]))
	if err == nil {
		t.Error("expected error for truncated transcript")
	}
	if len(entries) != 1 {
		t.Errorf("decoded %d entries before the error, expected 1", len(entries))
	}
}

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    Entry
		contains string
	}{
		{"tx header", Entry{Offset: 1500 * time.Millisecond, Direction: DirectionTx, Data: Frame(HeaderPayload(0xE4, 16))}, "TX    HEADER"},
		{"rx byte", Entry{Direction: DirectionRx, Data: []byte{byte(NAK)}}, "0x15 (NAK)"},
		{"rx text", Entry{Direction: DirectionRx, Data: []byte("CCC")}, "|CCC|"},
		{"reset", Entry{Offset: 2 * time.Second, Direction: DirectionReset}, "+    2.000s RESET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatEntry(tt.entry); !strings.Contains(got, tt.contains) {
				t.Errorf("FormatEntry = %q, expected to contain %q", got, tt.contains)
			}
		})
	}
}
