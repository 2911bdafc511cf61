// Package memadapter is an in-process reference implementation of
// adapter.Adapter, used for local deployments and in tests where a real
// media-server backend isn't available. It is grounded on the same
// in-process/remote transport split the teacher documented on its
// Transport interface ("Implementations: LocalTransport (in-process),
// GRPCTransport (remote)"), generalized to the full adapter contract
// instead of the SIP-session-scoped Transport.
package memadapter

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/orcherr"
)

type element struct {
	id       string
	roomID   string
	t        adapter.ElementType
	host     string
	local    *sdp.SessionDescription
	remote   *sdp.SessionDescription
	peers    map[string]adapter.ConnectKind
	recording bool
}

// Adapter is a single-host, in-memory backend: every element "lives" on
// the same host and negotiate always succeeds, echoing back a minimal
// descriptor from whatever was offered. It exists to exercise the
// controller/session/room state machines end to end without a network
// dependency.
type Adapter struct {
	host string

	mu       sync.Mutex
	elements map[string]*element

	events chan adapter.ElementEvent
}

func New(host string) *Adapter {
	return &Adapter{
		host:     host,
		elements: make(map[string]*element),
		events:   make(chan adapter.ElementEvent, 64),
	}
}

func (a *Adapter) CreateMediaElement(ctx context.Context, roomID string, t adapter.ElementType, opts adapter.CreateOptions) (string, string, error) {
	id := "elem-" + uuid.NewString()
	a.mu.Lock()
	a.elements[id] = &element{id: id, roomID: roomID, t: t, host: a.host, peers: make(map[string]adapter.ConnectKind)}
	a.mu.Unlock()
	return id, a.host, nil
}

func (a *Adapter) Negotiate(ctx context.Context, roomID, userID, sessionID string, descriptor *sdp.SessionDescription, t adapter.ElementType, opts adapter.CreateOptions) ([]adapter.MediaUnitHandle, error) {
	id, host, err := a.CreateMediaElement(ctx, roomID, t, opts)
	if err != nil {
		return nil, err
	}

	local := descriptor
	if local == nil {
		local = &sdp.SessionDescription{SessionName: "memadapter-offer"}
	}

	a.mu.Lock()
	a.elements[id].local = local
	a.elements[id].remote = descriptor
	a.mu.Unlock()

	kind := adapter.ConnectAll
	if opts.MediaProfile == "AUDIO" {
		kind = adapter.ConnectAudio
	} else if opts.MediaProfile == "CONTENT" {
		kind = adapter.ConnectContent
	}

	return []adapter.MediaUnitHandle{{
		ElementID:       id,
		Host:            host,
		LocalDescriptor: local,
		Kind:            kind,
	}}, nil
}

func (a *Adapter) ProcessOffer(ctx context.Context, elementID string, offer *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.elements[elementID]
	if !ok {
		return nil, orcherr.NotFound("element", elementID)
	}
	el.remote = offer
	answer := *offer
	el.local = &answer
	return &answer, nil
}

func (a *Adapter) ProcessAnswer(ctx context.Context, elementID string, answer *sdp.SessionDescription) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.elements[elementID]
	if !ok {
		return orcherr.NotFound("element", elementID)
	}
	el.remote = answer
	return nil
}

func (a *Adapter) GenerateOffer(ctx context.Context, elementID string, filters adapter.CreateOptions) (*sdp.SessionDescription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.elements[elementID]
	if !ok {
		return nil, orcherr.NotFound("element", elementID)
	}
	if el.local == nil {
		el.local = &sdp.SessionDescription{SessionName: "memadapter-generated-offer"}
	}
	return el.local, nil
}

func (a *Adapter) GatherCandidates(ctx context.Context, elementID string) ([]string, error) {
	return []string{"candidate:1 1 UDP 2130706431 " + a.host + " 10000 typ host"}, nil
}

func (a *Adapter) AddIceCandidate(ctx context.Context, elementID string, candidate string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.elements[elementID]; !ok {
		return orcherr.NotFound("element", elementID)
	}
	a.events <- adapter.ElementEvent{ElementID: elementID, Name: "MEDIA_STATE.ICE", Data: map[string]any{"candidate": candidate}}
	return nil
}

func (a *Adapter) Connect(ctx context.Context, srcID, sinkID string, kind adapter.ConnectKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	src, ok := a.elements[srcID]
	if !ok {
		return orcherr.NotFound("element", srcID)
	}
	src.peers[sinkID] = kind
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context, srcID, sinkID string, kind adapter.ConnectKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	src, ok := a.elements[srcID]
	if !ok {
		return orcherr.NotFound("element", srcID)
	}
	delete(src.peers, sinkID)
	return nil
}

func (a *Adapter) StartRecording(ctx context.Context, elementID, path string, opts adapter.CreateOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.elements[elementID]
	if !ok {
		return orcherr.NotFound("element", elementID)
	}
	el.recording = true
	return nil
}

func (a *Adapter) StopRecording(ctx context.Context, elementID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.elements[elementID]
	if !ok {
		return orcherr.NotFound("element", elementID)
	}
	el.recording = false
	return nil
}

func (a *Adapter) SetVideoFloor(ctx context.Context, elementID, floorElementID string) error {
	return nil
}

func (a *Adapter) SetLayoutType(ctx context.Context, elementID string, layoutID string) error {
	return nil
}

func (a *Adapter) Stop(ctx context.Context, roomID string, t adapter.ElementType, elementID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.elements, elementID)
	return nil
}

func (a *Adapter) Events() <-chan adapter.ElementEvent { return a.events }

func (a *Adapter) Ready() bool { return true }

func (a *Adapter) Close() error {
	close(a.events)
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
