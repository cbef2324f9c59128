// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/gorilla/websocket"
)

// newBridgeServer starts a WebSocket server that sends script after the
// first binary message it receives, and records what it received
func newBridgeServer(t *testing.T, script [][]byte) (string, chan []byte) {
	t.Helper()

	received := make(chan []byte, 16)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data

		for _, msg := range script {
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		}
		// Ignored by the client
		conn.WriteMessage(websocket.TextMessage, []byte("status"))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), received
}

func readUntil(t *testing.T, conn Connection, n int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 2)
	deadline := time.Now().Add(2 * time.Second)
	for len(out) < n && time.Now().Before(deadline) {
		k, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		out = append(out, buf[:k]...)
	}
	return out
}

func TestWebSocketConnectionReadWrite(t *testing.T) {
	url, received := newBridgeServer(t, [][]byte{[]byte("CCC"), {byte(gre.ACK)}})

	conn, err := OpenWebSocketConnection(url, "", "", false)
	if err != nil {
		t.Fatalf("OpenWebSocketConnection: %v", err)
	}
	defer conn.Close()

	// Nothing sent yet: Read must time out without an error
	n, err := conn.Read(make([]byte, 8))
	if n != 0 || err != nil {
		t.Fatalf("idle Read = (%d, %v), expected (0, nil)", n, err)
	}

	frame := gre.Frame([]byte{gre.VersionQuery})
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := conn.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(frame) {
			t.Errorf("bridge received % X, expected % X", got, frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bridge received nothing")
	}

	// Small reads split messages without losing bytes
	got := readUntil(t, conn, 4)
	if string(got) != "CCC\x06" {
		t.Errorf("read % X, expected 43 43 43 06", got)
	}
}

func TestWebSocketConnectionResetInput(t *testing.T) {
	url, _ := newBridgeServer(t, [][]byte{[]byte("stale"), []byte("data")})

	conn, err := OpenWebSocketConnection(url, "", "", false)
	if err != nil {
		t.Fatalf("OpenWebSocketConnection: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0x00}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	readUntil(t, conn, 1)
	time.Sleep(100 * time.Millisecond)

	if err := conn.ResetInputBuffer(); err != nil {
		t.Fatalf("ResetInputBuffer: %v", err)
	}
	n, err := conn.Read(make([]byte, 16))
	if n != 0 || err != nil {
		t.Errorf("Read after reset = (%d, %v), expected (0, nil)", n, err)
	}
}

func TestWebSocketConnectionClosedByPeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	conn, err := OpenWebSocketConnection("ws"+strings.TrimPrefix(srv.URL, "http"), "", "", false)
	if err != nil {
		t.Fatalf("OpenWebSocketConnection: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err = conn.Read(make([]byte, 4))
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestOpenWebSocketConnectionErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad scheme", "http://localhost/bridge"},
		{"bad url", "ws://[::1"},
		{"refused", "ws://127.0.0.1:1/bridge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenWebSocketConnection(tt.url, "", "", false)
			var portErr *gre.PortError
			if !errors.As(err, &portErr) {
				t.Fatalf("expected PortError, got %v", err)
			}
			if portErr.Port != tt.url {
				t.Errorf("PortError.Port = %q, expected %q", portErr.Port, tt.url)
			}
		})
	}
}

func TestOpenSerialConnectionMissingPort(t *testing.T) {
	_, err := OpenSerialConnection("/dev/grefw-does-not-exist", 115200)
	var portErr *gre.PortError
	if !errors.As(err, &portErr) {
		t.Fatalf("expected PortError, got %v", err)
	}
}
