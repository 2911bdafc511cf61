package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/sdputil"
)

// crossHostConnector is implemented by adapters that know how to bridge a
// connect() whose source and sink live on different hosts (currently only
// adapter.Composed). Plain single-host adapters don't need it.
type crossHostConnector interface {
	ConnectCrossHost(ctx context.Context, srcHost, srcID, sinkHost, sinkID string, kind adapter.ConnectKind) error
}

// Unit is one backend element: a single negotiated m-line (or, for
// non-composed backends, a carrier of several kinds at once), owned
// exclusively by its MediaSession (§3 "MediaUnit").
type Unit struct {
	ID               string
	SessionID        string
	RoomID           string
	UserID           string
	Type             adapter.ElementType
	Host             string
	BackendElementID string

	MixerID        string
	Subtitle       string
	EnableSubtitle bool

	mu               sync.RWMutex
	mediaTypes       map[Kind]Direction
	localDescriptor  *sdp.SessionDescription
	remoteDescriptor *sdp.SessionDescription
	transposers      map[string]*adapter.Transposer // keyed by sink host
}

func New(id, sessionID, roomID, userID string, t adapter.ElementType, host adapter.MediaUnitHandle) *Unit {
	u := &Unit{
		ID:               id,
		SessionID:        sessionID,
		RoomID:           roomID,
		UserID:           userID,
		Type:             t,
		Host:             host.Host,
		BackendElementID: host.ElementID,
		mediaTypes:       make(map[Kind]Direction),
		transposers:      make(map[string]*adapter.Transposer),
	}
	if host.LocalDescriptor != nil {
		u.SetLocalDescriptor(host.LocalDescriptor)
	}
	return u
}

func (u *Unit) LocalDescriptor() *sdp.SessionDescription {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.localDescriptor
}

func (u *Unit) RemoteDescriptor() *sdp.SessionDescription {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.remoteDescriptor
}

func (u *Unit) SetLocalDescriptor(sd *sdp.SessionDescription) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.localDescriptor = sd
	u.updateMediaTypesLocked(sd)
}

func (u *Unit) SetRemoteDescriptor(sd *sdp.SessionDescription) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.remoteDescriptor = sd
	u.updateMediaTypesLocked(sd)
}

// updateMediaTypesLocked fills mediaTypes from whichever of audio/video/
// content sections sd carries, per §3's mediaTypes map. Caller holds u.mu.
func (u *Unit) updateMediaTypesLocked(sd *sdp.SessionDescription) {
	if sd == nil {
		return
	}
	if audio, ok := sdputil.GetAudioSDP(sd); ok {
		u.mediaTypes[KindAudio] = directionOf(audio.MediaDescriptions[0])
	}
	if video, ok := sdputil.GetVideoSDP(sd); ok {
		u.mediaTypes[KindVideo] = directionOf(video.MediaDescriptions[0])
	}
	if content, ok := sdputil.GetContentSDP(sd); ok {
		u.mediaTypes[KindContent] = directionOf(content.MediaDescriptions[0])
	}
}

func directionOf(md *sdp.MediaDescription) Direction {
	if md.MediaName.Port.Value == 0 {
		return DirectionNone
	}
	for _, a := range md.Attributes {
		switch a.Key {
		case "sendrecv":
			return DirectionSendRecv
		case "sendonly":
			return DirectionSendOnly
		case "recvonly":
			return DirectionRecvOnly
		case "inactive":
			return DirectionInactive
		}
	}
	return DirectionSendRecv
}

// MediaType returns the negotiated direction for kind, or DirectionNone if
// this unit never carried it.
func (u *Unit) MediaType(kind Kind) Direction {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if d, ok := u.mediaTypes[kind]; ok {
		return d
	}
	return DirectionNone
}

// HasVideo reports whether this unit carries a sendrecv or sendonly video
// kind, the predicate the room's conference-floor fallback search uses
// (§4.5).
func (u *Unit) HasVideo() bool {
	d := u.MediaType(KindVideo)
	return d == DirectionSendRecv || d == DirectionSendOnly
}

// Connect wires this unit as the source into peer as the sink. If the two
// units live on different hosts, it requires the adapter to implement
// cross-host transposition (§4.1 point 3); composed adapters do.
func (u *Unit) Connect(ctx context.Context, a adapter.Adapter, peer *Unit, kind adapter.ConnectKind) error {
	if u.Host == peer.Host {
		return a.Connect(ctx, u.BackendElementID, peer.BackendElementID, kind)
	}
	cc, ok := a.(crossHostConnector)
	if !ok {
		return fmt.Errorf("media: adapter does not support cross-host connect from %s to %s", u.Host, peer.Host)
	}
	return cc.ConnectCrossHost(ctx, u.Host, u.BackendElementID, peer.Host, peer.BackendElementID, kind)
}

func (u *Unit) Disconnect(ctx context.Context, a adapter.Adapter, peer *Unit, kind adapter.ConnectKind) error {
	return a.Disconnect(ctx, u.BackendElementID, peer.BackendElementID, kind)
}

// Stop releases the backend element. Called when the owning session is
// stopped; a host going offline only purges that host's pipeline records
// and does not call it.
func (u *Unit) Stop(ctx context.Context, a adapter.Adapter) error {
	return a.Stop(ctx, u.RoomID, u.Type, u.BackendElementID)
}
