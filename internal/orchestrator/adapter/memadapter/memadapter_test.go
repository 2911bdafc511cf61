package memadapter

import (
	"context"
	"testing"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
)

func TestCreateMediaElementReturnsHost(t *testing.T) {
	a := New("host-1")
	id, host, err := a.CreateMediaElement(context.Background(), "room-1", adapter.ElementWebRTC, adapter.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateMediaElement error: %v", err)
	}
	if host != "host-1" {
		t.Fatalf("host = %q, want host-1", host)
	}
	if id == "" {
		t.Fatal("expected non-empty element id")
	}
}

func TestNegotiateWithNilDescriptorGeneratesOffer(t *testing.T) {
	a := New("host-1")
	units, err := a.Negotiate(context.Background(), "room-1", "user-1", "sess-1", nil, adapter.ElementWebRTC, adapter.CreateOptions{})
	if err != nil {
		t.Fatalf("Negotiate error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	if units[0].LocalDescriptor == nil {
		t.Fatal("expected a generated local descriptor")
	}
}

func TestConnectDisconnectRoundtrip(t *testing.T) {
	a := New("host-1")
	src, _, _ := a.CreateMediaElement(context.Background(), "room-1", adapter.ElementWebRTC, adapter.CreateOptions{})
	sink, _, _ := a.CreateMediaElement(context.Background(), "room-1", adapter.ElementWebRTC, adapter.CreateOptions{})

	if err := a.Connect(context.Background(), src, sink, adapter.ConnectAll); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := a.Disconnect(context.Background(), src, sink, adapter.ConnectAll); err != nil {
		t.Fatalf("Disconnect error: %v", err)
	}
}

func TestConnectUnknownElementFails(t *testing.T) {
	a := New("host-1")
	if err := a.Connect(context.Background(), "missing", "also-missing", adapter.ConnectAll); err == nil {
		t.Fatal("expected error connecting unknown element")
	}
}

func TestStopRemovesElement(t *testing.T) {
	a := New("host-1")
	id, _, _ := a.CreateMediaElement(context.Background(), "room-1", adapter.ElementWebRTC, adapter.CreateOptions{})
	if err := a.Stop(context.Background(), "room-1", adapter.ElementWebRTC, id); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := a.Connect(context.Background(), id, "whatever", adapter.ConnectAll); err == nil {
		t.Fatal("expected element to be gone after Stop")
	}
}
