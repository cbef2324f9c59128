// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"fmt"
	"time"
)

// Statistics counts link activity during a session.
type Statistics struct {
	// Counters
	FramesSent      uint64 // Every framed packet, including resends
	BytesSent       uint64
	PacketsAcked    uint64
	Retries         uint64
	NAKs            uint64
	Timeouts        uint64
	UnexpectedBytes uint64
	PromptsSeen     uint64

	Elapsed time.Duration

	// Rates (calculated)
	ByteRate float64 // payload bytes/sec
}

func (s *Statistics) recordSend(frame []byte, resend bool) {
	s.FramesSent++
	s.BytesSent += uint64(len(frame))
	if resend {
		s.Retries++
	}
}

// CalculateRates derives throughput from the elapsed time.
func (s *Statistics) CalculateRates() {
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.ByteRate = float64(s.BytesSent) / secs
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var retryPercent float64
	if s.FramesSent > 0 {
		retryPercent = float64(s.Retries) * 100.0 / float64(s.FramesSent)
	}

	result := fmt.Sprintf("=== Upload Statistics (%.0f seconds) ===\n", s.Elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Packets Acked:   %8d\n", s.PacketsAcked)
	result += fmt.Sprintf("Bytes Sent:      %8d\n", s.BytesSent)

	if s.Retries > 0 {
		result += fmt.Sprintf("Retries:         %8d (%.1f%%)\n", s.Retries, retryPercent)
	}
	if s.NAKs > 0 {
		result += fmt.Sprintf("  NAKs:             %5d\n", s.NAKs)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("  Timeouts:         %5d\n", s.Timeouts)
	}
	if s.UnexpectedBytes > 0 {
		result += fmt.Sprintf("Unexpected Bytes:%8d\n", s.UnexpectedBytes)
	}

	result += fmt.Sprintf("Throughput:      %8.1f bytes/sec\n", s.ByteRate)
	result += "======================================\n"

	return result
}
