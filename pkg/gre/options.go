// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import "time"

// Config holds the session timing and collaborators.
type Config struct {
	// ProgressCallback is called as the upload advances (optional)
	ProgressCallback ProgressCallback

	// Logger receives diagnostics (optional)
	Logger Logger

	// Clock drives every wait and deadline
	Clock Clock

	// PollInterval is the sleep between channel polls
	PollInterval time.Duration

	// BootloaderTimeout bounds the wait for ReadyPrompts 'C' characters
	BootloaderTimeout time.Duration
	ReadyPrompts      int

	// VersionWait is how long version query replies are collected
	VersionWait time.Duration

	// AckDelay follows the ACK sent for a version reply
	AckDelay time.Duration

	// SettleDelay separates the version exchange from the header
	SettleDelay time.Duration

	// UpdateStartTimeout bounds the wait for ENQ/ACK after the header,
	// polled UpdateStartPoll at a time
	UpdateStartTimeout time.Duration
	UpdateStartPoll    time.Duration

	// ChunkTimeout bounds the wait for each data packet's response
	ChunkTimeout time.Duration

	// MaxAttempts is the number of sends allowed per data packet
	MaxAttempts int

	// CompletionTimeout bounds the wait for the final EOT/ACK
	CompletionTimeout time.Duration
}

// defaultConfig returns the timing the PRO-668 bootloader expects.
func defaultConfig() Config {
	return Config{
		Logger:             NopLogger(),
		Clock:              SystemClock(),
		PollInterval:       10 * time.Millisecond,
		BootloaderTimeout:  30 * time.Second,
		ReadyPrompts:       3,
		VersionWait:        500 * time.Millisecond,
		AckDelay:           200 * time.Millisecond,
		SettleDelay:        500 * time.Millisecond,
		UpdateStartTimeout: 30 * time.Second,
		UpdateStartPoll:    1 * time.Second,
		ChunkTimeout:       5 * time.Second,
		MaxAttempts:        3,
		CompletionTimeout:  10 * time.Second,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithProgressCallback sets a callback to track upload progress.
//
// Example:
//
//	s := gre.NewSession(port,
//	    gre.WithProgressCallback(func(p gre.Progress) {
//	        fmt.Printf("\rPacket %d/%d (%d%%)", p.Packet, p.TotalPackets, p.Percent)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithPollInterval sets the sleep between channel polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithBootloaderTimeout sets how long to wait for the bootloader prompt.
func WithBootloaderTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.BootloaderTimeout = d
		}
	}
}

// WithUpdateStartTimeout sets how long to wait for the header to be accepted.
func WithUpdateStartTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.UpdateStartTimeout = d
		}
	}
}

// WithChunkTimeout sets the per-packet response timeout.
func WithChunkTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ChunkTimeout = d
		}
	}
}

// WithCompletionTimeout sets how long to wait for the final signal.
func WithCompletionTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CompletionTimeout = d
		}
	}
}

// WithMaxAttempts sets the number of sends allowed per data packet.
//
// Example:
//
//	s := gre.NewSession(port, gre.WithMaxAttempts(5))
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}
