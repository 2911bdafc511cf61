package recording

import (
	"context"
	"testing"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/memadapter"
	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
)

func newSourceSession(t *testing.T, a adapter.Adapter) *mediasession.Session {
	t.Helper()
	counter := 0
	s := mediasession.New(mediasession.Config{
		ID:      "sess-src",
		RoomID:  "room-1",
		UserID:  "user-1",
		Type:    adapter.ElementWebRTC,
		Adapter: a,
		NewUnitID: func() string {
			counter++
			return "srcunit-" + string(rune('0'+counter))
		},
	})
	if _, err := s.Process(context.Background(), nil); err != nil {
		t.Fatalf("source Process error: %v", err)
	}
	return s
}

func TestStartAssignsOpaqueIDAndRegistersSession(t *testing.T) {
	a := memadapter.New("host-1")
	source := newSourceSession(t, a)
	reg := NewRegistry()

	counter := 0
	rec, err := reg.Start(context.Background(), a, source, mediasession.New, func() string {
		counter++
		return "recunit-" + string(rune('0'+counter))
	}, "/tmp/rec.mp4", nil)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected a non-empty recording id")
	}
	if _, ok := reg.Get(rec.ID); !ok {
		t.Fatal("expected the recording to be resolvable by id")
	}
}

func TestStopResolvesAndRemovesRecording(t *testing.T) {
	a := memadapter.New("host-1")
	source := newSourceSession(t, a)
	reg := NewRegistry()

	counter := 0
	rec, err := reg.Start(context.Background(), a, source, mediasession.New, func() string {
		counter++
		return "recunit-" + string(rune('0'+counter))
	}, "/tmp/rec.mp4", nil)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if err := reg.Stop(context.Background(), a, rec.ID); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if _, ok := reg.Get(rec.ID); ok {
		t.Fatal("expected the recording to be deregistered after Stop")
	}
}

func TestStopUnknownIDReturnsError(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Stop(context.Background(), memadapter.New("host-1"), "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown recording id")
	}
}

func TestRequestKeyframePublishesEvent(t *testing.T) {
	bus := eventbus.NewBus()
	builder := eventbus.NewBuilder("node-1")

	received := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.KeyframeNeeded, "media-1", func(ev eventbus.Event) { received <- ev })

	RequestKeyframe(bus, builder, "media-1")

	select {
	case ev := <-received:
		if ev.Identifier != "media-1" {
			t.Fatalf("event identifier = %q, want media-1", ev.Identifier)
		}
	default:
		t.Fatal("expected KEYFRAME_NEEDED to be published synchronously")
	}
}
