package eventbus

import "testing"

func TestSubjectNaming(t *testing.T) {
	builder := NewBuilder("node-1")
	event := builder.RoomCreated("room-123").Build()

	want := "ROOM_CREATED:room-123"
	if got := event.Subject(); got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}

func TestUserJoinedFields(t *testing.T) {
	builder := NewBuilder("node-1")
	event := builder.UserJoined("room-123", "user-abc").Build()

	if event.Data["userId"] != "user-abc" {
		t.Errorf("Data[userId] = %v, want user-abc", event.Data["userId"])
	}
	if event.Identifier != "room-123" {
		t.Errorf("Identifier = %q, want room-123", event.Identifier)
	}
}

func TestSubjectPatterns(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		id   string
		want string
	}{
		{"room created", RoomCreated, "room-1", "ROOM_CREATED:room-1"},
		{"media connected", MediaConnected, "media-1", "MEDIA_CONNECTED:media-1"},
		{"global dtmf", DTMF, GlobalIdentifier, "DTMF:all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.kind, tt.id); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBusExactAndGlobalDelivery(t *testing.T) {
	bus := NewBus()
	builder := NewBuilder("node-1")

	var exactCount, globalCount int
	bus.Subscribe(UserJoined, "room-1", func(e Event) { exactCount++ })
	bus.Subscribe(UserJoined, GlobalIdentifier, func(e Event) { globalCount++ })

	bus.Publish(builder.UserJoined("room-1", "user-a").Build())
	bus.Publish(builder.UserJoined("room-2", "user-b").Build())

	if exactCount != 1 {
		t.Errorf("exactCount = %d, want 1", exactCount)
	}
	if globalCount != 2 {
		t.Errorf("globalCount = %d, want 2", globalCount)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	builder := NewBuilder("node-1")

	var count int
	unsub := bus.Subscribe(RoomDestroyed, "room-1", func(e Event) { count++ })
	bus.Publish(builder.RoomDestroyed("room-1").Build())
	unsub()
	bus.Publish(builder.RoomDestroyed("room-1").Build())

	if count != 1 {
		t.Errorf("count = %d, want 1 (handler should not fire after unsubscribe)", count)
	}
}
