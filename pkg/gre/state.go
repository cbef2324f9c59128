// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import "time"

// State is a position in the upload state machine.
type State int

// Handshake states
const (
	StateIdle State = iota
	StateAwaitingBootloader
	StateVersionQueried
	StateReady
	StateHandshakeTimeout
)

// Transfer states
const (
	StateSendHeader State = iota + 16
	StateAwaitUpdateStart
	StateSendingData
	StateAwaitCompletion
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingBootloader:
		return "AWAITING_BOOTLOADER"
	case StateVersionQueried:
		return "VERSION_QUERIED"
	case StateReady:
		return "READY"
	case StateHandshakeTimeout:
		return "HANDSHAKE_TIMEOUT"
	case StateSendHeader:
		return "SEND_HEADER"
	case StateAwaitUpdateStart:
		return "AWAIT_UPDATE_START"
	case StateSendingData:
		return "SENDING_DATA"
	case StateAwaitCompletion:
		return "AWAIT_COMPLETION"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateHandshakeTimeout
}

// Outcome describes how a session ended.
type Outcome int

// Outcome values
const (
	// OutcomeFailed means the upload did not complete
	OutcomeFailed Outcome = iota

	// OutcomeConfirmed means EOT or ACK followed the last data packet
	OutcomeConfirmed

	// OutcomeEarlyEOT means the device sent EOT before all packets were sent
	OutcomeEarlyEOT

	// OutcomeUnexpectedFinal means an unrecognized byte followed the last packet
	OutcomeUnexpectedFinal

	// OutcomeUnconfirmed means nothing followed the last packet. The device
	// family often behaves this way, but a lost link looks the same.
	OutcomeUnconfirmed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeEarlyEOT:
		return "confirmed-early"
	case OutcomeUnexpectedFinal:
		return "completed-unexpected-final"
	case OutcomeUnconfirmed:
		return "completed-unconfirmed"
	default:
		return "unknown"
	}
}

// Success reports whether the outcome counts as a completed upload.
func (o Outcome) Success() bool {
	return o != OutcomeFailed
}

// Result summarizes a finished session.
type Result struct {
	State        State
	Outcome      Outcome
	PacketsSent  int
	TotalPackets int
	Elapsed      time.Duration
	Stats        Statistics
}
