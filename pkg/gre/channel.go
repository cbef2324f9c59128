// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Channel is the byte link to the bootloader. Read must return (0, nil) when
// its per-call timeout expires without data, as go.bug.st/serial ports do.
type Channel interface {
	io.Reader
	io.Writer

	// Flush blocks until written bytes have been transmitted
	Flush() error

	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Clock provides time to the upload engine so deadlines can be tested
// without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// link polls a Channel. Bytes read while checking for input are queued so
// that Buffered reports the inbound count the device has already sent.
type link struct {
	ch      Channel
	clock   Clock
	poll    time.Duration
	pending []byte
	buf     []byte
}

func newLink(ch Channel, clock Clock, poll time.Duration) *link {
	return &link{
		ch:    ch,
		clock: clock,
		poll:  poll,
		buf:   make([]byte, 256),
	}
}

// Buffered drains whatever the channel has ready and returns the queue length.
func (l *link) Buffered() (int, error) {
	n, err := l.ch.Read(l.buf)
	if n > 0 {
		l.pending = append(l.pending, l.buf[:n]...)
	}
	if err != nil {
		return len(l.pending), fmt.Errorf("read: %w", err)
	}
	return len(l.pending), nil
}

// take removes up to n queued bytes.
func (l *link) take(n int) []byte {
	if n > len(l.pending) {
		n = len(l.pending)
	}
	out := append([]byte(nil), l.pending[:n]...)
	l.pending = l.pending[n:]
	return out
}

// readByte waits up to timeout for a single byte.
func (l *link) readByte(ctx context.Context, timeout time.Duration) (byte, error) {
	deadline := l.clock.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := l.Buffered()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return l.take(1)[0], nil
		}
		if !l.clock.Now().Before(deadline) {
			return 0, ErrResponseTimeout
		}
		l.clock.Sleep(l.poll)
	}
}

// collect gathers every byte that arrives within window.
func (l *link) collect(ctx context.Context, window time.Duration) ([]byte, error) {
	deadline := l.clock.Now().Add(window)
	for l.clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := l.Buffered(); err != nil {
			return nil, err
		}
		l.clock.Sleep(l.poll)
	}
	if _, err := l.Buffered(); err != nil {
		return nil, err
	}
	return l.take(len(l.pending)), nil
}

// send writes b and waits for it to leave the host.
func (l *link) send(b []byte) error {
	if _, err := l.ch.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := l.ch.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// discardInput drops queued and device-buffered input.
func (l *link) discardInput() error {
	l.pending = l.pending[:0]
	return l.ch.ResetInputBuffer()
}
