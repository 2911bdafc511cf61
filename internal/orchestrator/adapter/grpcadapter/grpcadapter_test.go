package grpcadapter

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ConnectTimeout != 10*time.Second {
		t.Fatalf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
	if cfg.KeepaliveInterval != 30*time.Second {
		t.Fatalf("KeepaliveInterval = %v, want 30s", cfg.KeepaliveInterval)
	}
	if cfg.KeepaliveTimeout != 10*time.Second {
		t.Fatalf("KeepaliveTimeout = %v, want 10s", cfg.KeepaliveTimeout)
	}
}

func TestNewDialsWithoutBlocking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "localhost:0"
	a, err := New("host-1", cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if a.host != "host-1" {
		t.Fatalf("host = %q, want host-1", a.host)
	}
	if !a.Ready() {
		// No live backend is listening, so Health will fail; Ready()
		// reflects that rather than the dial itself.
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestNewRejectsMalformedTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "\x7f://bad target\x00"
	if _, err := New("host-1", cfg); err == nil {
		t.Fatal("expected error dialing a malformed target")
	}
}
