// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a transcript entry.
type Direction uint8

const (
	DirectionTx Direction = iota + 1
	DirectionRx
	DirectionReset
)

func (d Direction) String() string {
	switch d {
	case DirectionTx:
		return "TX"
	case DirectionRx:
		return "RX"
	case DirectionReset:
		return "RESET"
	default:
		return fmt.Sprintf("DIR(%d)", uint8(d))
	}
}

// Entry is one recorded link event, encoded as a CBOR map with integer keys.
type Entry struct {
	Offset    time.Duration `cbor:"0,keyasint"`
	Direction Direction     `cbor:"1,keyasint"`
	Data      []byte        `cbor:"2,keyasint,omitempty"`
}

// Recorder is a Channel that logs every write, non-empty read and input
// reset to w as a stream of CBOR entries.
type Recorder struct {
	ch    Channel
	enc   *cbor.Encoder
	clock Clock
	start time.Time
	err   error
}

// NewRecorder wraps ch. A nil clock uses the wall clock.
func NewRecorder(ch Channel, w io.Writer, clock Clock) *Recorder {
	if clock == nil {
		clock = SystemClock()
	}
	return &Recorder{
		ch:    ch,
		enc:   cbor.NewEncoder(w),
		clock: clock,
		start: clock.Now(),
	}
}

// Err returns the first encoding error. Recording errors never fail the link.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) record(dir Direction, data []byte) {
	if r.err != nil {
		return
	}
	entry := Entry{
		Offset:    r.clock.Now().Sub(r.start),
		Direction: dir,
		Data:      append([]byte(nil), data...),
	}
	if err := r.enc.Encode(entry); err != nil {
		r.err = fmt.Errorf("transcript: %w", err)
	}
}

func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.ch.Read(p)
	if n > 0 {
		r.record(DirectionRx, p[:n])
	}
	return n, err
}

func (r *Recorder) Write(p []byte) (int, error) {
	n, err := r.ch.Write(p)
	if n > 0 {
		r.record(DirectionTx, p[:n])
	}
	return n, err
}

func (r *Recorder) Flush() error {
	return r.ch.Flush()
}

func (r *Recorder) ResetInputBuffer() error {
	r.record(DirectionReset, nil)
	return r.ch.ResetInputBuffer()
}

func (r *Recorder) ResetOutputBuffer() error {
	return r.ch.ResetOutputBuffer()
}

// ReadTranscript decodes every entry in a transcript stream.
func ReadTranscript(rd io.Reader) ([]Entry, error) {
	dec := cbor.NewDecoder(rd)
	var entries []Entry
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
}

// FormatEntry renders an entry as one line, e.g.
// "+   1.520s TX  DATA len=100 sum=0x4B (ok)".
func FormatEntry(e Entry) string {
	prefix := fmt.Sprintf("+%9.3fs %-5s", e.Offset.Seconds(), e.Direction)
	switch e.Direction {
	case DirectionTx:
		return prefix + " " + FormatFrame(e.Data)
	case DirectionRx:
		if len(e.Data) == 1 {
			return prefix + " " + FormatResponse(e.Data[0])
		}
		return fmt.Sprintf("%s %s |%s|", prefix, FormatBytes(e.Data), FormatText(e.Data))
	default:
		return prefix
	}
}
