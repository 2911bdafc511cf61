package controller

import (
	"context"
	"testing"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/memadapter"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
	"github.com/sebas/orchestrator/internal/orchestrator/user"
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

func newTestController(t *testing.T) *Controller {
	t.Helper()
	return New(Config{Adapter: memadapter.New("host-1"), NodeID: "node-1"})
}

func TestJoinPublishSubscribeScenario(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	userA, err := c.Join("room-1", user.TypeSFU, "alice", "txn-1")
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}

	_, answer, err := c.Publish(ctx, userA, adapter.ElementWebRTC, mediasession.ProfileMain, sampleOffer(), nil, "txn-2")
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a non-nil publish answer")
	}

	sourceSession, err := c.GetUserMedias(userA)
	if err != nil || len(sourceSession) != 1 {
		t.Fatalf("GetUserMedias = %v, %v", sourceSession, err)
	}

	userB, err := c.Join("room-1", user.TypeSFU, "bob", "txn-3")
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}

	_, answer2, err := c.Subscribe(ctx, userB, sourceSession[0].ID, adapter.ElementWebRTC, mediasession.ProfileMain, nil, nil, "txn-4")
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if answer2 == nil {
		t.Fatal("expected a non-nil subscribe answer")
	}
}

func TestLeaveIsIdempotentForUnknownUser(t *testing.T) {
	c := newTestController(t)
	if err := c.Leave("does-not-exist", "room-1", "txn-1"); err != nil {
		t.Fatalf("expected idempotent success, got %v", err)
	}
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	c := newTestController(t)
	userA, err := c.Join("room-1", user.TypeSFU, "alice", "txn-1")
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}

	if err := c.Leave(userA, "room-1", "txn-2"); err != nil {
		t.Fatalf("Leave error: %v", err)
	}

	if len(c.GetRooms()) != 0 {
		t.Fatalf("expected room to be destroyed after last user left, got %d rooms", len(c.GetRooms()))
	}
}

func TestMCULifecycleStopsSessionWhenLastMCUUserLeaves(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	sfuUser, err := c.Join("room-1", user.TypeSFU, "alice", "txn-1")
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	if _, _, err := c.Publish(ctx, sfuUser, adapter.ElementWebRTC, mediasession.ProfileMain, sampleOffer(), nil, "txn-2"); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	mcuUser, err := c.Join("room-1", user.TypeMCU, "mixer", "txn-3")
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}

	if _, _, err := c.PublishAndSubscribe(ctx, mcuUser, adapter.ElementMCU, mediasession.ProfileAll, nil, nil, "txn-4"); err != nil {
		t.Fatalf("PublishAndSubscribe error: %v", err)
	}

	if _, ok := c.mcuSessions.Get("room-1"); !ok {
		t.Fatal("expected an MCU session to be created on first MCU publish")
	}

	if err := c.Leave(mcuUser, "room-1", "txn-5"); err != nil {
		t.Fatalf("Leave error: %v", err)
	}

	if _, ok := c.mcuSessions.Get("room-1"); ok {
		t.Fatal("expected the MCU session to be removed once the last MCU user left")
	}
	if len(c.GetRooms()) != 1 {
		t.Fatal("expected the room to survive since the SFU user remains")
	}
}

func TestSetConferenceFloorFallsBackToVideoCarryingUnit(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	userA, err := c.Join("room-1", user.TypeSFU, "alice", "txn-1")
	if err != nil {
		t.Fatalf("Join error: %v", err)
	}
	audioOnly := &sdp.SessionDescription{
		SessionName: "audio-only",
		MediaDescriptions: []*sdp.MediaDescription{
			{MediaName: sdp.MediaName{Media: "audio", Port: sdp.RangedPort{Value: 10000}, Formats: []string{"0"}}},
		},
	}
	audioSession, _, err := c.Publish(ctx, userA, adapter.ElementWebRTC, mediasession.ProfileMain, audioOnly, nil, "txn-2")
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	videoSession, _, err := c.Publish(ctx, userA, adapter.ElementWebRTC, mediasession.ProfileMain, sampleOffer(), nil, "txn-3")
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	audioUnit := audioSession.Medias()[0]
	if audioUnit.HasVideo() {
		t.Fatal("expected the audio-only unit to carry no video")
	}
	videoUnit := videoSession.Medias()[0]

	if err := c.SetConferenceFloor("room-1", audioUnit.ID, "txn-4"); err != nil {
		t.Fatalf("SetConferenceFloor error: %v", err)
	}
	floor, err := c.GetConferenceFloor("room-1")
	if err != nil {
		t.Fatalf("GetConferenceFloor error: %v", err)
	}
	if floor == nil || floor.ID != videoUnit.ID {
		t.Fatal("expected the conference floor to fall back to the user's video-carrying unit")
	}
}
