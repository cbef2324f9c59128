// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"errors"
	"fmt"
)

var (
	// ErrShortImage is returned when a firmware file has no complete header.
	ErrShortImage = errors.New("firmware file shorter than header")

	// ErrHandshakeTimeout is returned when the bootloader prompt was not seen in time.
	ErrHandshakeTimeout = errors.New("timeout waiting for bootloader")

	// ErrUpdateStartTimeout is returned when the header was never accepted.
	ErrUpdateStartTimeout = errors.New("timeout waiting for update to start")

	// ErrResponseTimeout marks a single wait that ended without a response byte.
	ErrResponseTimeout = errors.New("no response")
)

// LoadError indicates the firmware file could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load firmware %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// PortError indicates the device channel could not be opened or configured.
type PortError struct {
	Port string
	Err  error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("open port %s: %v", e.Port, e.Err)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

// RejectedError indicates the device explicitly refused the upload.
type RejectedError struct {
	State    State
	Response ControlByte
}

func (e *RejectedError) Error() string {
	switch e.Response {
	case CAN:
		return fmt.Sprintf("update cancelled by bootloader during %s", e.State)
	default:
		return fmt.Sprintf("%s rejected during %s", e.Response, e.State)
	}
}

// UnexpectedByteError records a response outside the set recognized in a state.
type UnexpectedByteError struct {
	State State
	Byte  byte
}

func (e *UnexpectedByteError) Error() string {
	return fmt.Sprintf("unexpected response 0x%02X during %s", e.Byte, e.State)
}

// RetriesExhaustedError indicates a data packet failed on every attempt.
type RetriesExhaustedError struct {
	Packet   int
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("packet %d failed after %d attempts: %v", e.Packet, e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// IsRejected returns true if err is or wraps a RejectedError.
func IsRejected(err error) bool {
	var r *RejectedError
	return errors.As(err, &r)
}
