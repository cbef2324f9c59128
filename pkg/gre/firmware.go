// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"fmt"
	"os"
)

// Image is a firmware image ready for upload.
type Image struct {
	// Platform is the platform code sent in the header packet
	Platform byte

	// OriginalPlatform is the platform code found in the file
	OriginalPlatform byte

	// Size is the 24-bit size declared in the file header. It is sent to the
	// device as-is and is not checked against len(Payload).
	Size uint32

	Payload []byte

	// Transcoded is true when Payload was rewritten with the XOR table
	Transcoded bool
}

// Load reads and prepares a firmware file. When noTranscode is false, WS1080
// images are transcoded for the PRO-668.
func Load(path string, noTranscode bool, logger Logger) (*Image, error) {
	if logger == nil {
		logger = NopLogger()
	}
	logger.Info("loading firmware", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	img, err := ParseImage(data, noTranscode, logger)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return img, nil
}

// ParseImage splits a raw firmware file into header fields and payload and
// applies platform transcoding.
func ParseImage(data []byte, noTranscode bool, logger Logger) (*Image, error) {
	if logger == nil {
		logger = NopLogger()
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortImage, len(data))
	}

	img := &Image{
		Platform:         data[0],
		OriginalPlatform: data[0],
		Size:             uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]),
		Payload:          append([]byte(nil), data[HeaderSize:]...),
	}

	logger.Info("firmware header",
		"platform", fmt.Sprintf("0x%02X", img.OriginalPlatform),
		"model", PlatformName(img.OriginalPlatform),
		"size", img.Size,
	)

	if noTranscode {
		logger.Info("transcoding disabled, sending firmware as-is")
		return img, nil
	}

	switch img.OriginalPlatform {
	case PlatformWS1080:
		logger.Info("transcoding WS1080 -> PRO-668")
		img.Payload = Transcode(img.Payload, WS1080ToPRO668[:])
		img.Platform = PlatformPRO668
		img.Transcoded = true
	case PlatformPRO668:
		logger.Info("firmware is already PRO-668 format")
	default:
		logger.Warn("unknown platform, using as-is",
			"platform", fmt.Sprintf("0x%02X", img.OriginalPlatform))
	}

	return img, nil
}

// TotalPackets returns the number of data packets needed for the payload.
func (img *Image) TotalPackets() int {
	return (len(img.Payload) + ChunkSize - 1) / ChunkSize
}
