// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import "time"

// Phase names the stage an upload is in when progress is reported.
type Phase string

// Upload phases
const (
	PhaseWaiting    Phase = "waiting"    // Waiting for the bootloader prompt
	PhaseVersion    Phase = "version"    // Querying the bootloader version
	PhaseHeader     Phase = "header"     // Sending the firmware header
	PhaseStarting   Phase = "starting"   // Waiting for the device to accept the header
	PhaseSending    Phase = "sending"    // Streaming data packets
	PhaseCompleting Phase = "completing" // Waiting for the final signal
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Progress is passed to a ProgressCallback as the upload advances.
type Progress struct {
	Phase Phase

	// Packet is the 1-based data packet being sent (0 outside PhaseSending)
	Packet int

	// TotalPackets is the number of data packets in the image
	TotalPackets int

	// Offset is the number of raw payload bytes covered by acknowledged packets
	Offset int

	// Percent is min(Offset, Size) * 100 / Size
	Percent int

	// Attempt is the 1-based send attempt for the current packet
	Attempt int

	Elapsed time.Duration
}

// ProgressCallback receives progress events. It runs on the upload's goroutine
// and should return quickly.
type ProgressCallback func(Progress)

// Logger receives diagnostics from the upload engine.
// Key/value pairs follow the message, e.g. Info("sent header", "size", 1024).
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}
