// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"fmt"
	"strings"
)

// FormatResponse describes a response byte, e.g. "0x06 (ACK)" or "0x43 ('C')".
func FormatResponse(b byte) string {
	if c := ControlByte(b); c.Known() {
		return fmt.Sprintf("0x%02X (%s)", b, c)
	}
	if b >= 32 && b < 127 {
		return fmt.Sprintf("0x%02X ('%c')", b, b)
	}
	return fmt.Sprintf("0x%02X (?)", b)
}

// FormatBytes renders data as spaced hex, wrapping every 16 bytes.
func FormatBytes(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			if i%16 == 0 {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatText renders data as ASCII with non-printable bytes shown as '.'.
func FormatText(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b < 127 {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// FormatFrame describes an outgoing frame: header, data or a bare control byte.
func FormatFrame(frame []byte) string {
	if len(frame) == 1 {
		return ControlByte(frame[0]).String()
	}
	if len(frame) < 3 || frame[0] != byte(STX) || frame[len(frame)-2] != byte(ETX) {
		return fmt.Sprintf("raw[%d] %s", len(frame), FormatBytes(frame))
	}

	payload := frame[1 : len(frame)-2]
	sum := frame[len(frame)-1]
	status := "ok"
	if Checksum(payload) != sum {
		status = "BAD"
	}

	switch {
	case len(payload) == 1 && payload[0] == VersionQuery:
		return fmt.Sprintf("VERSION_QUERY sum=0x%02X (%s)", sum, status)
	case len(payload) == 7:
		return fmt.Sprintf("HEADER platform=0x%02X size=%s sum=0x%02X (%s)",
			payload[0], FormatText(payload[1:]), sum, status)
	default:
		return fmt.Sprintf("DATA len=%d sum=0x%02X (%s)", len(payload), sum, status)
	}
}
