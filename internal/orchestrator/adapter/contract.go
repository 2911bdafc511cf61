// Package adapter defines the backend-neutral adapter contract (§4.1):
// create/release pipelines and elements, negotiate SDP, connect/
// disconnect elements, exchange ICE candidates, start/stop recording, and
// raise element events. Composed adapters (internal/orchestrator/adapter
// Composed), the in-process reference implementation (memadapter) and the
// gRPC-backed implementation (grpcadapter) all satisfy this interface.
package adapter

import (
	"context"

	"github.com/pion/sdp/v3"
)

// ConnectKind selects which media kinds a connect/disconnect call applies
// to.
type ConnectKind int

const (
	ConnectAll ConnectKind = iota
	ConnectAudio
	ConnectVideo
	ConnectContent
)

// ElementType names the kind of backend element to create.
type ElementType string

const (
	ElementWebRTC    ElementType = "WEBRTC"
	ElementRTP       ElementType = "RTP"
	ElementRecording ElementType = "RECORDING"
	ElementURI       ElementType = "URI"
	ElementMCU       ElementType = "MCU"
	ElementFilter    ElementType = "FILTER"
)

// CreateOptions carries the options passed through createMediaElement /
// negotiate; it is intentionally permissive since backends accept
// backend-specific tuning knobs beyond the set this module interprets.
type CreateOptions struct {
	MediaProfile string
	Params       map[string]any
}

// MediaUnitHandle is what the adapter returns for each negotiated m-line:
// enough to let the media session attach it to a MediaUnit (the id
// package mints the MediaUnit's own identity; the adapter only reports
// the backend-side element it created).
type MediaUnitHandle struct {
	ElementID       string
	Host            string
	LocalDescriptor *sdp.SessionDescription
	Kind            ConnectKind
}

// ElementEvent is what the adapter raises asynchronously for a given
// element (MEDIA_STATE.*, MEDIA_DTMF, ELEMENT_TRANSPOSED per §4.1).
type ElementEvent struct {
	ElementID string
	Name      string
	Data      map[string]any
}

// Adapter is the backend-neutral contract every backend driver and the
// Composed/Pipeline wrappers implement.
type Adapter interface {
	CreateMediaElement(ctx context.Context, roomID string, t ElementType, opts CreateOptions) (elementID, host string, err error)

	Negotiate(ctx context.Context, roomID, userID, sessionID string, descriptor *sdp.SessionDescription, t ElementType, opts CreateOptions) ([]MediaUnitHandle, error)

	ProcessOffer(ctx context.Context, elementID string, offer *sdp.SessionDescription) (*sdp.SessionDescription, error)
	ProcessAnswer(ctx context.Context, elementID string, answer *sdp.SessionDescription) error
	GenerateOffer(ctx context.Context, elementID string, filters CreateOptions) (*sdp.SessionDescription, error)

	GatherCandidates(ctx context.Context, elementID string) ([]string, error)
	AddIceCandidate(ctx context.Context, elementID string, candidate string) error

	Connect(ctx context.Context, srcID, sinkID string, kind ConnectKind) error
	Disconnect(ctx context.Context, srcID, sinkID string, kind ConnectKind) error

	StartRecording(ctx context.Context, elementID, path string, opts CreateOptions) error
	StopRecording(ctx context.Context, elementID string) error

	SetVideoFloor(ctx context.Context, elementID, floorElementID string) error
	SetLayoutType(ctx context.Context, elementID string, layoutID string) error

	Stop(ctx context.Context, roomID string, t ElementType, elementID string) error

	// Events returns the channel of asynchronous element events this
	// adapter raises; callers fan these out through the media unit.
	Events() <-chan ElementEvent

	Ready() bool
	Close() error
}
