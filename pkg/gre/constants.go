// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gre implements the GRE scanner bootloader upload protocol.
//
// GRE-family scanners (Whistler WS1080, Radio Shack PRO-668, PSR-800, Pro-18)
// share the same hardware and differ only in a platform code and a byte-wise
// XOR encoding of the firmware image. This package transcodes WS1080 images
// for the PRO-668 and drives the bootloader's framed upload protocol over a
// serial Channel.
package gre

import "fmt"

// ControlByte is a single-byte protocol control code.
type ControlByte byte

// Protocol control bytes
const (
	STX ControlByte = 0x02 // Start of packet
	ETX ControlByte = 0x03 // End of packet
	EOT ControlByte = 0x04 // Update complete
	ENQ ControlByte = 0x05 // Ready for next packet
	ACK ControlByte = 0x06 // Acknowledge
	DLE ControlByte = 0x10 // Update starting
	NAK ControlByte = 0x15 // Negative acknowledge
	CAN ControlByte = 0x18 // Update cancelled
)

// Bootloader ASCII codes
const (
	Prompt       byte = 'C' // Idle prompt repeated while waiting for a host
	VersionQuery byte = 'V'
)

// Platform codes
const (
	PlatformPRO668 byte = 0xE4
	PlatformWS1080 byte = 0xE6
)

// Image layout
const (
	HeaderSize   = 4
	MaxImageSize = 0xFFFFFF
)

// Data packets carry at most this many raw bytes, hex encoded on the wire.
const ChunkSize = 50

// Known reports whether c is one of the protocol control bytes.
func (c ControlByte) Known() bool {
	switch c {
	case STX, ETX, EOT, ENQ, ACK, DLE, NAK, CAN:
		return true
	}
	return false
}

func (c ControlByte) String() string {
	switch c {
	case STX:
		return "STX"
	case ETX:
		return "ETX"
	case EOT:
		return "EOT"
	case ENQ:
		return "ENQ"
	case ACK:
		return "ACK"
	case DLE:
		return "DLE"
	case NAK:
		return "NAK"
	case CAN:
		return "CAN"
	}
	return fmt.Sprintf("0x%02X", byte(c))
}

// PlatformName returns the scanner model for a platform code.
func PlatformName(code byte) string {
	switch code {
	case PlatformPRO668:
		return "PRO-668"
	case PlatformWS1080:
		return "WS1080"
	default:
		return "UNKNOWN"
	}
}
