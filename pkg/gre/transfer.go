// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"context"
	"errors"
	"fmt"
)

// sendHeader clears stale input and sends the platform/size header packet.
func (s *Session) sendHeader() error {
	s.setState(StateSendHeader)
	s.reportPhase(PhaseHeader)

	if err := s.link.discardInput(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}

	frame := Frame(HeaderPayload(s.platform, s.size))
	s.logger.Info("sending firmware header",
		"platform", fmt.Sprintf("0x%02X", s.platform),
		"size", s.size,
		"size_hex", fmt.Sprintf("0x%06X", s.size),
	)
	if err := s.link.send(frame); err != nil {
		return fmt.Errorf("send header: %w", err)
	}
	s.stats.recordSend(frame, false)
	s.logger.Debug("sent header packet", "packet", FormatBytes(frame))

	return nil
}

// awaitUpdateStart polls for ENQ/ACK after the header within UpdateStartTimeout.
func (s *Session) awaitUpdateStart(ctx context.Context) error {
	s.setState(StateAwaitUpdateStart)
	s.reportPhase(PhaseStarting)
	s.logger.Info("waiting for bootloader to start update")

	start := s.clock.Now()
	for {
		elapsed := s.clock.Now().Sub(start)
		if elapsed >= s.config.UpdateStartTimeout {
			return fmt.Errorf("%w after %s", ErrUpdateStartTimeout, s.config.UpdateStartTimeout)
		}

		wait := s.config.UpdateStartPoll
		if remaining := s.config.UpdateStartTimeout - elapsed; remaining < wait {
			wait = remaining
		}

		b, err := s.link.readByte(ctx, wait)
		if errors.Is(err, ErrResponseTimeout) {
			continue
		}
		if err != nil {
			return err
		}

		s.logger.Debug("response", "byte", FormatResponse(b))

		switch c := ControlByte(b); c {
		case DLE:
			s.logger.Info("DLE - update starting")
		case ENQ:
			s.logger.Info("ENQ - ready for data")
			return nil
		case ACK:
			s.logger.Info("ACK - header acknowledged")
			return nil
		case NAK, CAN:
			return &RejectedError{State: StateAwaitUpdateStart, Response: c}
		default:
			if b == Prompt {
				s.logger.Debug("bootloader still prompting")
				continue
			}
			s.stats.UnexpectedBytes++
			s.logger.Warn("ignoring response", "error", &UnexpectedByteError{State: s.state, Byte: b})
		}
	}
}

// sendData streams every chunk. It returns true if the device ended the
// transfer early with EOT.
func (s *Session) sendData(ctx context.Context) (bool, error) {
	s.setState(StateSendingData)
	s.logger.Info("sending firmware data",
		"size", s.size,
		"payload", s.chunks.Remaining(),
		"packets", s.totalPackets,
	)

	for {
		chunk, ok := s.chunks.Next()
		if !ok {
			return false, nil
		}
		s.packetIndex++

		early, err := s.sendChunk(ctx, chunk)
		if err != nil {
			return false, err
		}
		s.offset = chunk.Offset
		if early {
			return true, nil
		}
	}
}

// sendChunk sends one data packet until it is accepted or MaxAttempts is
// reached. The retry counter is reset by every accepted packet.
func (s *Session) sendChunk(ctx context.Context, chunk Chunk) (bool, error) {
	frame := Frame(chunk.Hex)
	s.retryCount = 0
	var last error

	for s.retryCount < s.config.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		s.report(Progress{
			Phase:   PhaseSending,
			Packet:  s.packetIndex,
			Offset:  chunk.Offset,
			Attempt: s.retryCount + 1,
		})

		if err := s.link.send(frame); err != nil {
			return false, fmt.Errorf("send packet %d: %w", s.packetIndex, err)
		}
		s.stats.recordSend(frame, s.retryCount > 0)

		b, err := s.link.readByte(ctx, s.config.ChunkTimeout)
		if errors.Is(err, ErrResponseTimeout) {
			s.stats.Timeouts++
			last = err
			s.retryCount++
			s.logger.Warn("timeout, retrying", "packet", s.packetIndex, "attempt", s.retryCount, "max", s.config.MaxAttempts)
			continue
		}
		if err != nil {
			return false, err
		}

		switch c := ControlByte(b); c {
		case ACK, ENQ:
			s.stats.PacketsAcked++
			s.retryCount = 0
			return false, nil
		case NAK:
			s.stats.NAKs++
			last = &RejectedError{State: StateSendingData, Response: NAK}
			s.retryCount++
			s.logger.Warn("NAK, retrying", "packet", s.packetIndex, "attempt", s.retryCount, "max", s.config.MaxAttempts)
		case CAN:
			return false, &RejectedError{State: StateSendingData, Response: CAN}
		case EOT:
			s.logger.Info("EOT received - update complete", "packet", s.packetIndex, "packets", s.totalPackets)
			return true, nil
		default:
			s.stats.UnexpectedBytes++
			last = &UnexpectedByteError{State: StateSendingData, Byte: b}
			s.retryCount++
			s.logger.Warn("unknown response, retrying", "packet", s.packetIndex, "response", FormatResponse(b), "attempt", s.retryCount)
		}
	}

	return false, &RetriesExhaustedError{
		Packet:   s.packetIndex,
		Attempts: s.retryCount,
		Last:     last,
	}
}

// awaitCompletion waits for the final signal. Silence and unknown bytes are
// tolerated but reported through the outcome.
func (s *Session) awaitCompletion(ctx context.Context) (Outcome, error) {
	s.setState(StateAwaitCompletion)
	s.reportPhase(PhaseCompleting)
	s.logger.Info("waiting for completion signal")

	b, err := s.link.readByte(ctx, s.config.CompletionTimeout)
	if errors.Is(err, ErrResponseTimeout) {
		s.logger.Warn("upload finished without a completion signal", "waited", s.config.CompletionTimeout.String())
		return OutcomeUnconfirmed, nil
	}
	if err != nil {
		return OutcomeFailed, err
	}

	switch c := ControlByte(b); c {
	case EOT, ACK:
		s.logger.Info("firmware upload complete", "response", c.String())
		return OutcomeConfirmed, nil
	default:
		s.stats.UnexpectedBytes++
		s.logger.Warn("unexpected final response", "response", FormatResponse(b))
		return OutcomeUnexpectedFinal, nil
	}
}
