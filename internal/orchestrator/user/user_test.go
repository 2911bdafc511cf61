package user

import (
	"context"
	"testing"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/memadapter"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
)

func sampleOffer() *sdp.SessionDescription {
	return &sdp.SessionDescription{
		SessionName: "test",
		MediaDescriptions: []*sdp.MediaDescription{
			{MediaName: sdp.MediaName{Media: "audio", Port: sdp.RangedPort{Value: 10000}, Formats: []string{"0"}}},
			{MediaName: sdp.MediaName{Media: "video", Port: sdp.RangedPort{Value: 10002}, Formats: []string{"102"}}},
		},
	}
}

func newTestUser(t *testing.T, a adapter.Adapter) *User {
	t.Helper()
	counter := 0
	return New(Config{
		ID:      "user-1",
		RoomID:  "room-1",
		Type:    TypeSFU,
		Adapter: a,
		NewFunc: mediasession.New,
		NewUnitID: func() string {
			counter++
			return "unit-" + string(rune('0'+counter))
		},
	})
}

func TestPublishRegistersSession(t *testing.T) {
	u := newTestUser(t, memadapter.New("host-1"))
	s, answer, err := u.Publish(context.Background(), adapter.ElementWebRTC, mediasession.ProfileMain, sampleOffer(), nil)
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a non-nil answer")
	}
	if _, ok := u.Session(s.ID); !ok {
		t.Fatal("expected the new session to be registered on the user")
	}
}

func TestSubscribeConnectsSourceIntoSink(t *testing.T) {
	a := memadapter.New("host-1")
	publisher := newTestUser(t, a)
	source, _, err := publisher.Publish(context.Background(), adapter.ElementWebRTC, mediasession.ProfileMain, sampleOffer(), nil)
	if err != nil {
		t.Fatalf("publisher Publish error: %v", err)
	}

	subscriber := newTestUser(t, a)
	subscriber.ID = "user-2"
	_, answer, err := subscriber.Subscribe(context.Background(), source, adapter.ElementWebRTC, mediasession.ProfileMain, nil, nil)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a generated offer for a subscribe with no remote descriptor")
	}
}

func TestLeaveStopsEveryOwnedSessionAndReturnsMediaIDs(t *testing.T) {
	u := newTestUser(t, memadapter.New("host-1"))
	if _, _, err := u.Publish(context.Background(), adapter.ElementWebRTC, mediasession.ProfileMain, sampleOffer(), nil); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	removed := u.Leave(context.Background())
	if len(removed) == 0 {
		t.Fatal("expected at least one removed media unit id")
	}
	if len(u.Sessions()) != 0 {
		t.Fatalf("expected no sessions after Leave, got %d", len(u.Sessions()))
	}
}

func TestUnpublishUnknownSessionReturnsMediaNotFound(t *testing.T) {
	u := newTestUser(t, memadapter.New("host-1"))
	if _, err := u.Unpublish(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown session id")
	}
}
