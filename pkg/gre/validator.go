// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import "fmt"

// AnomalyType represents different kinds of image anomalies
type AnomalyType int

const (
	AnomalySizeMismatch AnomalyType = iota
	AnomalyUnknownPlatform
	AnomalyEmptyPayload
	AnomalyUntranscoded
)

// ValidationError describes something unusual about a firmware image.
// None of these stop an upload; the device is the final judge.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateImage reports image anomalies (empty if nothing looks odd)
func ValidateImage(img *Image) []ValidationError {
	errors := []ValidationError{}

	if len(img.Payload) == 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyEmptyPayload,
			Message: "Firmware payload is empty",
		})
	}

	if int(img.Size) != len(img.Payload) {
		errors = append(errors, ValidationError{
			Type:    AnomalySizeMismatch,
			Message: fmt.Sprintf("Declared size %d does not match payload length %d", img.Size, len(img.Payload)),
			Details: map[string]interface{}{"declared": img.Size, "payload": len(img.Payload)},
		})
	}

	switch img.OriginalPlatform {
	case PlatformPRO668, PlatformWS1080:
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownPlatform,
			Message: fmt.Sprintf("Unknown platform code 0x%02X", img.OriginalPlatform),
			Details: map[string]interface{}{"platform": img.OriginalPlatform},
		})
	}

	if img.Platform == PlatformWS1080 {
		errors = append(errors, ValidationError{
			Type:    AnomalyUntranscoded,
			Message: "WS1080 image will be sent without transcoding",
		})
	}

	return errors
}
