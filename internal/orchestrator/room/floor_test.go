package room

import (
	"testing"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/media"
)

func newTestRoom() *Room {
	return New(Config{ID: "room-1", Bus: eventbus.NewBus(), Builder: eventbus.NewBuilder("node-1")})
}

func unitWithVideo(id string, has bool) *media.Unit {
	descriptor := &sdp.SessionDescription{
		MediaDescriptions: []*sdp.MediaDescription{
			{MediaName: sdp.MediaName{Media: "audio", Port: sdp.RangedPort{Value: 10000}, Formats: []string{"0"}}},
		},
	}
	if has {
		descriptor.MediaDescriptions = append(descriptor.MediaDescriptions, &sdp.MediaDescription{
			MediaName:  sdp.MediaName{Media: "video", Port: sdp.RangedPort{Value: 10002}, Formats: []string{"102"}},
			Attributes: []sdp.Attribute{{Key: "sendonly"}},
		})
	}
	return media.New(id, "sess-1", "room-1", "user-1", adapter.ElementWebRTC, adapter.MediaUnitHandle{
		ElementID:       id + "-elem",
		Host:            "host-1",
		LocalDescriptor: descriptor,
	})
}

func TestSetContentFloorThenReleaseRestoresMRU(t *testing.T) {
	r := newTestRoom()
	a := unitWithVideo("media-a", false)
	b := unitWithVideo("media-b", false)

	r.SetContentFloor(a)
	r.SetContentFloor(b)
	r.ReleaseContentFloor()

	got := r.ContentFloor()
	if got == nil || got.ID != "media-a" {
		t.Fatalf("expected content floor restored to media-a, got %v", got)
	}
}

func TestReleaseConferenceFloorNeverRestoresPreviousHolder(t *testing.T) {
	r := newTestRoom()
	a := unitWithVideo("media-a", true)
	b := unitWithVideo("media-b", true)

	r.SetConferenceFloor(a, nil)
	r.SetConferenceFloor(b, nil)
	r.ReleaseConferenceFloor()

	// Preserves the source's field-name-mismatch bug: the conference
	// floor is always cleared outright on release, never restored from
	// history, unlike the content floor above.
	if got := r.ConferenceFloor(); got != nil {
		t.Fatalf("expected conference floor cleared (not restored) after release, got %v", got)
	}
}

func TestMediaDisconnectedOnlyEverReleasesContentFloor(t *testing.T) {
	r := newTestRoom()
	conf := unitWithVideo("media-conf", true)
	r.SetConferenceFloor(conf, nil)

	// Preserves the source's copy-paste bug: disconnecting the current
	// conference-floor media does not clear the conference floor, because
	// the handler consults the content floor for both kinds.
	r.Disconnect(nil, conf)

	if got := r.ConferenceFloor(); got == nil || got.ID != conf.ID {
		t.Fatalf("expected conference floor to remain set (bug preserved), got %v", got)
	}
}

func TestMediaDisconnectedReleasesMatchingContentFloor(t *testing.T) {
	r := newTestRoom()
	content := unitWithVideo("media-content", false)
	r.SetContentFloor(content)

	r.Disconnect(nil, content)

	if got := r.ContentFloor(); got != nil {
		t.Fatalf("expected content floor cleared after its media disconnected, got %v", got)
	}
}
