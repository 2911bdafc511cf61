package mediasession

import (
	"context"
	"testing"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/memadapter"
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

func newTestSession(t *testing.T, a adapter.Adapter) *Session {
	t.Helper()
	counter := 0
	return New(Config{
		ID:     "sess-1",
		RoomID: "room-1",
		UserID: "user-1",
		Type:   adapter.ElementWebRTC,
		Adapter: a,
		NewUnitID: func() string {
			counter++
			return "unit-" + string(rune('0'+counter))
		},
	})
}

func TestRoleAssignmentAnswererOnFirstRemote(t *testing.T) {
	s := newTestSession(t, memadapter.New("host-1"))
	if _, err := s.Process(context.Background(), sampleOffer()); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if s.Role() != RoleAnswerer {
		t.Fatalf("role = %v, want ANSWERER", s.Role())
	}
}

func TestRoleAssignmentOffererOnNilDescriptor(t *testing.T) {
	s := newTestSession(t, memadapter.New("host-1"))
	if _, err := s.Process(context.Background(), nil); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if s.Role() != RoleOfferer {
		t.Fatalf("role = %v, want OFFERER", s.Role())
	}
}

func TestProcessIdempotentUnderSameDescriptor(t *testing.T) {
	s := newTestSession(t, memadapter.New("host-1"))
	offer := sampleOffer()

	first, err := s.Process(context.Background(), offer)
	if err != nil {
		t.Fatalf("first Process error: %v", err)
	}
	second, err := s.Process(context.Background(), offer)
	if err != nil {
		t.Fatalf("second Process error: %v", err)
	}
	if first != second {
		t.Fatal("expected the same cached answer on a repeated identical descriptor")
	}
	if len(s.Medias()) != 1 {
		t.Fatalf("got %d media units, want exactly 1 (no duplicate negotiate)", len(s.Medias()))
	}
}

func TestStopReleasesAllUnits(t *testing.T) {
	s := newTestSession(t, memadapter.New("host-1"))
	if _, err := s.Process(context.Background(), sampleOffer()); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	released := s.Stop(context.Background())
	if len(released) == 0 {
		t.Fatal("expected at least one released media unit id")
	}
	if len(s.Medias()) != 0 {
		t.Fatalf("expected no media units after Stop, got %d", len(s.Medias()))
	}
}
