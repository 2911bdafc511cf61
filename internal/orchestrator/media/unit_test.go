package media

import (
	"context"
	"testing"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/memadapter"
)

func sampleDescriptor() *sdp.SessionDescription {
	return &sdp.SessionDescription{
		MediaDescriptions: []*sdp.MediaDescription{
			{MediaName: sdp.MediaName{Media: "audio", Port: sdp.RangedPort{Value: 10000}, Formats: []string{"0"}}},
			{MediaName: sdp.MediaName{Media: "video", Port: sdp.RangedPort{Value: 10002}, Formats: []string{"102"}}, Attributes: []sdp.Attribute{{Key: "sendonly"}}},
		},
	}
}

func TestNewPopulatesMediaTypesFromLocalDescriptor(t *testing.T) {
	u := New("unit-1", "sess-1", "room-1", "user-1", adapter.ElementWebRTC, adapter.MediaUnitHandle{
		ElementID:       "elem-1",
		Host:            "host-1",
		LocalDescriptor: sampleDescriptor(),
	})

	if u.MediaType(KindAudio) != DirectionSendRecv {
		t.Fatalf("audio direction = %v, want sendrecv", u.MediaType(KindAudio))
	}
	if u.MediaType(KindVideo) != DirectionSendOnly {
		t.Fatalf("video direction = %v, want sendonly", u.MediaType(KindVideo))
	}
	if !u.HasVideo() {
		t.Fatal("expected HasVideo true for a sendonly video unit")
	}
}

func TestConnectSameHostDelegatesDirectly(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New("host-1")
	srcID, _, _ := a.CreateMediaElement(ctx, "room-1", adapter.ElementWebRTC, adapter.CreateOptions{})
	sinkID, _, _ := a.CreateMediaElement(ctx, "room-1", adapter.ElementWebRTC, adapter.CreateOptions{})

	src := New("u1", "s1", "room-1", "user-1", adapter.ElementWebRTC, adapter.MediaUnitHandle{ElementID: srcID, Host: "host-1"})
	sink := New("u2", "s1", "room-1", "user-1", adapter.ElementWebRTC, adapter.MediaUnitHandle{ElementID: sinkID, Host: "host-1"})

	if err := src.Connect(ctx, a, sink, adapter.ConnectAll); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
}

func TestConnectCrossHostWithoutCrossHostSupportFails(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New("host-1")
	src := New("u1", "s1", "room-1", "user-1", adapter.ElementWebRTC, adapter.MediaUnitHandle{ElementID: "e1", Host: "host-1"})
	sink := New("u2", "s1", "room-1", "user-1", adapter.ElementWebRTC, adapter.MediaUnitHandle{ElementID: "e2", Host: "host-2"})

	if err := src.Connect(ctx, a, sink, adapter.ConnectAll); err == nil {
		t.Fatal("expected error: memadapter does not implement cross-host connect")
	}
}
