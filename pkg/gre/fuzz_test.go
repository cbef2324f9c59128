// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gre

import (
	"bytes"
	"context"
	"encoding/hex"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	data := make([]byte, n)
	rng.Read(data)
	return data
}

// ============================================================
// Codec Fuzz Tests
// ============================================================

func TestFuzzTranscodeRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		payload := randomBytes(rng, rng.Intn(1024))
		got := Transcode(Transcode(payload, WS1080ToPRO668[:]), WS1080ToPRO668[:])
		if !bytes.Equal(got, payload) {
			t.Fatalf("round %d: round trip failed for %d bytes", i, len(payload))
		}
	}
}

func TestFuzzFrame(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		payload := randomBytes(rng, rng.Intn(200))
		frame := Frame(payload)

		if len(frame) != len(payload)+3 {
			t.Fatalf("round %d: frame length %d for %d byte payload", i, len(frame), len(payload))
		}
		var sum int
		for _, b := range payload {
			sum += int(b)
		}
		if frame[len(frame)-1] != byte((0x03+sum)%256) {
			t.Fatalf("round %d: checksum 0x%02X, expected 0x%02X", i, frame[len(frame)-1], byte((0x03+sum)%256))
		}
	}
}

func TestFuzzChunkIterator(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		payload := randomBytes(rng, rng.Intn(2000))
		it := NewChunkIterator(payload, ChunkSize)

		var joined []byte
		lastOffset := 0
		for {
			chunk, ok := it.Next()
			if !ok {
				break
			}
			if chunk.Raw < 1 || chunk.Raw > ChunkSize {
				t.Fatalf("round %d: chunk of %d raw bytes", i, chunk.Raw)
			}
			if chunk.Offset != lastOffset+chunk.Raw {
				t.Fatalf("round %d: offset %d after %d (+%d)", i, chunk.Offset, lastOffset, chunk.Raw)
			}
			lastOffset = chunk.Offset

			raw, err := hex.DecodeString(string(chunk.Hex))
			if err != nil {
				t.Fatalf("round %d: invalid hex: %v", i, err)
			}
			joined = append(joined, raw...)
		}

		if !bytes.Equal(joined, payload) {
			t.Fatalf("round %d: chunks do not reassemble the payload", i)
		}
	}
}

// ============================================================
// Session Fuzz Tests
// ============================================================

// TestFuzzSessionWithNoise runs full uploads against a device that answers
// with random NAKs, timeouts and garbage, never failing a packet three times.
func TestFuzzSessionWithNoise(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds() / 20
	if rounds < 1 {
		rounds = 1
	}

	for i := 0; i < rounds; i++ {
		clock := newMockClock()
		img := testImage(rng.Intn(600) + 1)
		total := img.TotalPackets()

		dev := newMockDevice(clock)
		dev.rx = []byte("CCC")
		dev.headerReply = []byte{byte(ENQ)}
		dev.dataReply = func(packet, attempt int) []byte {
			if attempt < 3 && rng.Intn(4) == 0 {
				switch rng.Intn(3) {
				case 0:
					return []byte{byte(NAK)}
				case 1:
					return nil
				default:
					return []byte{byte(0x40 + rng.Intn(32))}
				}
			}
			if packet == total {
				return []byte{byte(ACK), byte(EOT)}
			}
			if rng.Intn(2) == 0 {
				return []byte{byte(ENQ)}
			}
			return []byte{byte(ACK)}
		}

		s := NewSession(dev, WithClock(clock), WithChunkTimeout(50*time.Millisecond))
		result, err := s.Run(context.Background(), img)
		if err != nil {
			t.Fatalf("round %d (%d bytes): %v", i, len(img.Payload), err)
		}
		if result.Outcome != OutcomeConfirmed {
			t.Fatalf("round %d: outcome %s", i, result.Outcome)
		}
		if !bytes.Equal(dev.received, img.Payload) {
			t.Fatalf("round %d: device received a different payload", i)
		}
	}
}
