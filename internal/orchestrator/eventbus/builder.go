package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single fan-out notification. Data carries kind-specific
// fields; it is a map rather than per-kind structs because the event set
// is wide and subscribers are expected to type-assert the fields they
// care about, the way the teacher's event payloads carried optional
// fields directly on one struct.
type Event struct {
	ID         string
	Kind       Kind
	Identifier string
	NodeID     string
	Time       time.Time
	Data       map[string]any
}

// Subject returns the "kind:identifier" subscription key for this event.
func (e Event) Subject() string { return Subject(e.Kind, e.Identifier) }

// Builder constructs Events with consistent defaults (ID, timestamp,
// origin node) the way the teacher's events.Builder did for call events.
type Builder struct {
	nodeID string
}

func NewBuilder(nodeID string) *Builder {
	return &Builder{nodeID: nodeID}
}

func (b *Builder) newBase(kind Kind, identifier string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Identifier: identifier,
		NodeID:     b.nodeID,
		Time:       time.Now().UTC(),
		Data:       make(map[string]any),
	}
}

// EventBuilder is the fluent per-event builder returned by the Builder's
// per-kind constructors below.
type EventBuilder struct {
	event Event
}

// With sets a single data field and returns the builder for chaining.
func (eb *EventBuilder) With(key string, value any) *EventBuilder {
	eb.event.Data[key] = value
	return eb
}

func (eb *EventBuilder) Build() Event { return eb.event }

func (b *Builder) RoomCreated(roomID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(RoomCreated, roomID)}
}

func (b *Builder) RoomDestroyed(roomID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(RoomDestroyed, roomID)}
}

func (b *Builder) UserJoined(roomID, userID string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(UserJoined, roomID)}).With("userId", userID)
}

func (b *Builder) UserLeft(roomID, userID string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(UserLeft, roomID)}).With("userId", userID)
}

func (b *Builder) MediaConnected(mediaID, sourceID string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(MediaConnected, mediaID)}).With("sourceId", sourceID)
}

func (b *Builder) MediaDisconnected(mediaID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(MediaDisconnected, mediaID)}
}

func (b *Builder) MediaStateEvent(mediaID string, state string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(MediaState, mediaID)}).With("state", state)
}

func (b *Builder) IceCandidateEvent(mediaID string, candidate string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(IceCandidate, mediaID)}).With("candidate", candidate)
}

func (b *Builder) ContentFloorChangedEvent(roomID, holderID string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(ContentFloorChanged, roomID)}).With("holderId", holderID)
}

func (b *Builder) ConferenceFloorChangedEvent(roomID, holderID string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(ConferenceFloorChanged, roomID)}).With("holderId", holderID)
}

func (b *Builder) MediaVolumeChangedEvent(mediaID string, volume float64) *EventBuilder {
	return (&EventBuilder{event: b.newBase(MediaVolumeChanged, mediaID)}).With("volume", volume)
}

func (b *Builder) MediaMutedEvent(mediaID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(MediaMuted, mediaID)}
}

func (b *Builder) MediaUnmutedEvent(mediaID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(MediaUnmuted, mediaID)}
}

func (b *Builder) MediaStartTalkingEvent(mediaID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(MediaStartTalking, mediaID)}
}

func (b *Builder) MediaStopTalkingEvent(mediaID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(MediaStopTalking, mediaID)}
}

func (b *Builder) StrategyChangedEvent(identifier, name string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(StrategyChanged, identifier)}).With("strategy", name)
}

func (b *Builder) SubscribedToEvent(identifier, eventName string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(SubscribedTo, identifier)}).With("eventName", eventName)
}

func (b *Builder) KeyframeNeededEvent(mediaID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(KeyframeNeeded, mediaID)}
}

func (b *Builder) DTMFEvent(mediaID string, tone string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(DTMF, mediaID)}).With("tone", tone)
}

func (b *Builder) ElementTransposedEvent(elementID, sinkHost string) *EventBuilder {
	return (&EventBuilder{event: b.newBase(ElementTransposed, elementID)}).With("sinkHost", sinkHost)
}

func (b *Builder) MediaServerOfflineEvent(hostID string) *EventBuilder {
	return &EventBuilder{event: b.newBase(MediaServerOffline, hostID)}
}
