// Package eventbus is the in-process publish/subscribe fan-out for
// lifecycle and media-state events. Subscription is keyed by
// "eventName:identifier" (see Subject), with "all" as the wildcard
// identifier for global subscriptions -- this mirrors the call-subject
// hierarchy the teacher used for its NATS subjects, generalized from a
// dotted string hierarchy to a flat kind:identifier pair since this module
// has no external broker to address.
package eventbus

import "fmt"

// Kind enumerates every event this module emits, both the client-facing
// lifecycle events and the lower-level adapter events that media units
// forward upward.
type Kind string

const (
	RoomCreated           Kind = "ROOM_CREATED"
	RoomDestroyed         Kind = "ROOM_DESTROYED"
	UserJoined            Kind = "USER_JOINED"
	UserLeft              Kind = "USER_LEFT"
	MediaConnected        Kind = "MEDIA_CONNECTED"
	MediaDisconnected     Kind = "MEDIA_DISCONNECTED"
	MediaState            Kind = "MEDIA_STATE"
	IceCandidate          Kind = "ICE_CANDIDATE"
	ContentFloorChanged   Kind = "CONTENT_FLOOR_CHANGED"
	ConferenceFloorChanged Kind = "CONFERENCE_FLOOR_CHANGED"
	MediaVolumeChanged    Kind = "MEDIA_VOLUME_CHANGED"
	MediaMuted            Kind = "MEDIA_MUTED"
	MediaUnmuted          Kind = "MEDIA_UNMUTED"
	MediaStartTalking     Kind = "MEDIA_START_TALKING"
	MediaStopTalking      Kind = "MEDIA_STOP_TALKING"
	StrategyChanged       Kind = "STRATEGY_CHANGED"
	SubscribedTo          Kind = "SUBSCRIBED_TO"
	KeyframeNeeded        Kind = "KEYFRAME_NEEDED"
	DTMF                  Kind = "DTMF"

	// Adapter-level events, forwarded by the media unit rather than
	// published straight to client subscribers (§4.1 of the event set).
	MediaStateChanged Kind = "MEDIA_STATE.CHANGED"
	MediaFlowIn       Kind = "MEDIA_STATE.FLOW_IN"
	MediaFlowOut      Kind = "MEDIA_STATE.FLOW_OUT"
	MediaStateICE     Kind = "MEDIA_STATE.ICE"
	MediaEndOfStream  Kind = "MEDIA_STATE.ENDOFSTREAM"
	ElementTransposed Kind = "ELEMENT_TRANSPOSED"

	// MediaServerOffline fires when a host fails its health probe (§4.2);
	// consumers must purge state for that host.
	MediaServerOffline Kind = "MEDIA_SERVER_OFFLINE"
)

// GlobalIdentifier is the wildcard identifier used to subscribe to every
// occurrence of a Kind regardless of which entity it concerns.
const GlobalIdentifier = "all"

// Subject builds the "kind:identifier" subscription key for an event.
func Subject(kind Kind, identifier string) string {
	return fmt.Sprintf("%s:%s", kind, identifier)
}
