// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"context"
	"fmt"
)

// handshake waits for the bootloader prompt and performs the version exchange.
func (s *Session) handshake(ctx context.Context) error {
	s.setState(StateAwaitingBootloader)
	s.reportPhase(PhaseWaiting)
	s.logger.Info("waiting for bootloader ready signal")

	if err := s.awaitPrompts(ctx); err != nil {
		return err
	}

	s.setState(StateVersionQueried)
	if err := s.queryVersion(ctx); err != nil {
		return err
	}

	s.setState(StateReady)
	return s.sleep(ctx, s.config.SettleDelay)
}

// awaitPrompts counts 'C' characters across reads until ReadyPrompts have
// been seen or BootloaderTimeout elapses.
func (s *Session) awaitPrompts(ctx context.Context) error {
	start := s.clock.Now()
	prompts := 0

	for s.clock.Now().Sub(start) < s.config.BootloaderTimeout {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.link.Buffered()
		if err != nil {
			return err
		}
		for _, b := range s.link.take(n) {
			if b != Prompt {
				continue
			}
			prompts++
			s.stats.PromptsSeen++
			if prompts >= s.config.ReadyPrompts {
				s.logger.Info("bootloader ready", "prompts", prompts)
				return nil
			}
		}

		s.clock.Sleep(s.config.PollInterval)
	}

	s.setState(StateHandshakeTimeout)
	return fmt.Errorf("%w after %s (%d of %d prompts)",
		ErrHandshakeTimeout, s.config.BootloaderTimeout, prompts, s.config.ReadyPrompts)
}

// queryVersion sends 'V' and acknowledges any reply. Many bootloaders in this
// family never answer, so silence is not an error.
func (s *Session) queryVersion(ctx context.Context) error {
	s.reportPhase(PhaseVersion)
	s.logger.Info("querying bootloader version")

	frame := Frame([]byte{VersionQuery})
	if err := s.link.send(frame); err != nil {
		return fmt.Errorf("version query: %w", err)
	}
	s.stats.recordSend(frame, false)

	response, err := s.link.collect(ctx, s.config.VersionWait)
	if err != nil {
		return fmt.Errorf("version query: %w", err)
	}
	if len(response) == 0 {
		s.logger.Info("no version response")
		return nil
	}

	s.logger.Info("version response",
		"hex", FormatBytes(response),
		"text", FormatText(response),
	)
	if err := s.link.send([]byte{byte(ACK)}); err != nil {
		return fmt.Errorf("version ack: %w", err)
	}
	return s.sleep(ctx, s.config.AckDelay)
}
