// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errSessionUsed = errors.New("session already run")

// Session is a single upload attempt. It owns all protocol state and is not
// safe for concurrent use; create a new Session for every attempt.
type Session struct {
	link   *link
	config Config
	clock  Clock
	logger Logger

	state State
	used  bool
	start time.Time

	// Transfer state
	platform     byte
	size         uint32
	chunks       *ChunkIterator
	packetIndex  int
	totalPackets int
	retryCount   int
	offset       int

	stats Statistics
}

// NewSession creates a session that uploads over ch.
//
// Example:
//
//	img, _ := gre.Load("WS1080e_U3.8.bin", false, logger)
//	s := gre.NewSession(port, gre.WithLogger(logger))
//	result, err := s.Run(ctx, img)
func NewSession(ch Channel, opts ...Option) *Session {
	if ch == nil {
		panic("channel cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		link:   newLink(ch, cfg.Clock, cfg.PollInterval),
		config: cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger,
		state:  StateIdle,
	}
}

// State returns the current state machine position.
func (s *Session) State() State {
	return s.state
}

// Stats returns a snapshot of the link counters.
func (s *Session) Stats() Statistics {
	return s.stats
}

// Run performs the complete upload sequence:
//  1. Wait for the bootloader prompt and exchange the version query
//  2. Send the header and wait for the device to start the update
//  3. Stream data packets with acknowledgement and retry
//  4. Wait for the completion signal
//
// A nil error means the upload completed; Result.Outcome tells whether the
// device confirmed it. Run may only be called once per Session.
func (s *Session) Run(ctx context.Context, img *Image) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("image cannot be nil")
	}
	if s.used {
		return nil, errSessionUsed
	}
	s.used = true

	s.start = s.clock.Now()
	s.platform = img.Platform
	s.size = img.Size
	s.chunks = NewChunkIterator(img.Payload, ChunkSize)
	s.totalPackets = img.TotalPackets()

	outcome, err := s.run(ctx)

	s.stats.Elapsed = s.clock.Now().Sub(s.start)
	result := &Result{
		Outcome:      outcome,
		PacketsSent:  s.packetIndex,
		TotalPackets: s.totalPackets,
		Elapsed:      s.stats.Elapsed,
	}

	if err != nil {
		if s.state != StateHandshakeTimeout {
			s.setState(StateFailed)
		}
		result.State = s.state
		result.Outcome = OutcomeFailed
		result.Stats = s.stats
		s.reportPhase(PhaseFailed)
		s.logger.Error("upload failed", "state", s.state.String(), "packet", s.packetIndex, "error", err)
		return result, err
	}

	s.setState(StateDone)
	result.State = s.state
	result.Stats = s.stats
	s.reportPhase(PhaseDone)
	s.logger.Info("upload finished",
		"outcome", outcome.String(),
		"packets", s.packetIndex,
		"elapsed", result.Elapsed.String(),
	)
	return result, nil
}

func (s *Session) run(ctx context.Context) (Outcome, error) {
	if err := s.handshake(ctx); err != nil {
		return OutcomeFailed, err
	}
	if err := s.sendHeader(); err != nil {
		return OutcomeFailed, err
	}
	if err := s.awaitUpdateStart(ctx); err != nil {
		return OutcomeFailed, err
	}

	early, err := s.sendData(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	if early {
		return OutcomeEarlyEOT, nil
	}

	return s.awaitCompletion(ctx)
}

func (s *Session) setState(state State) {
	if s.state != state {
		s.logger.Debug("state", "from", s.state.String(), "to", state.String())
	}
	s.state = state
}

// sleep pauses on the session clock, returning early if ctx is cancelled.
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	deadline := s.clock.Now().Add(d)
	for s.clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := s.config.PollInterval
		if remaining := deadline.Sub(s.clock.Now()); remaining < step {
			step = remaining
		}
		s.clock.Sleep(step)
	}
	return ctx.Err()
}

func (s *Session) reportPhase(phase Phase) {
	s.report(Progress{Phase: phase})
}

// report fills in the session-wide fields and calls the progress callback.
func (s *Session) report(p Progress) {
	if s.config.ProgressCallback == nil {
		return
	}
	if p.TotalPackets == 0 {
		p.TotalPackets = s.totalPackets
	}
	if p.Offset == 0 {
		p.Offset = s.offset
	}
	if p.Phase == PhaseDone {
		p.Packet = s.packetIndex
	}
	p.Percent = Percent(p.Offset, s.size)
	p.Elapsed = s.clock.Now().Sub(s.start)
	s.config.ProgressCallback(p)
}
