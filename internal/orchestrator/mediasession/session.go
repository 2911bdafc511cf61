// Package mediasession implements the negotiation envelope exposed to
// clients: one or more media units produced from a single offer/answer
// exchange (§4.4 "Media session"). It owns the role/renegotiation state
// machine, DTMF command aggregation, and answer reassembly.
package mediasession

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/media"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession/dtmf"
	"github.com/sebas/orchestrator/internal/orchestrator/orcherr"
	"github.com/sebas/orchestrator/internal/orchestrator/sdputil"
)

// Profile is the media profile a session negotiates (§3).
type Profile string

const (
	ProfileMain    Profile = "MAIN"
	ProfileContent Profile = "CONTENT"
	ProfileAudio   Profile = "AUDIO"
	ProfileAll     Profile = "ALL"
)

// Session is one negotiation envelope: it owns an ordered list of media
// units created from a single offer/answer exchange (§3 "MediaSession").
type Session struct {
	ID           string
	Name         string
	RoomID       string
	UserID       string
	Type         adapter.ElementType
	MediaProfile Profile
	Options      map[string]any
	Strategy     string

	mu          sync.Mutex
	negotiation *NegotiationState
	state       State
	medias      []*media.Unit

	remoteDescriptor *sdp.SessionDescription
	localDescriptor  *sdp.SessionDescription

	dtmfAgg *dtmf.Aggregator

	client    adapter.Adapter
	bus       *eventbus.Bus
	builder   *eventbus.Builder
	newUnitID func() string
	logger    *slog.Logger
}

type Config struct {
	ID           string
	Name         string
	RoomID       string
	UserID       string
	Type         adapter.ElementType
	MediaProfile Profile
	Options      map[string]any
	Strategy     string

	Adapter   adapter.Adapter
	Bus       *eventbus.Bus
	Builder   *eventbus.Builder
	NewUnitID func() string
	Logger    *slog.Logger
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:           cfg.ID,
		Name:         cfg.Name,
		RoomID:       cfg.RoomID,
		UserID:       cfg.UserID,
		Type:         cfg.Type,
		MediaProfile: cfg.MediaProfile,
		Options:      cfg.Options,
		Strategy:     cfg.Strategy,
		negotiation:  &NegotiationState{},
		state:        StateCreated,
		client:       cfg.Adapter,
		bus:          cfg.Bus,
		builder:      cfg.Builder,
		newUnitID:    cfg.NewUnitID,
		logger:       logger,
	}
}

func (s *Session) Medias() []*media.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*media.Unit(nil), s.medias...)
}

func (s *Session) Role() Role { return s.negotiation.Role() }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LocalDescriptor() *sdp.SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localDescriptor
}

// Process implements the process() contract (§4.4): it returns the local
// SDP answer, or a locally generated offer when no remote descriptor is
// supplied.
func (s *Session) Process(ctx context.Context, descriptor *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Law (f): process() is idempotent under the same remote descriptor
	// when neither renegotiation flag is set -- identified here by
	// pointer identity, since the caller always hands back the same
	// *sdp.SessionDescription it last gave us for an unchanged remote.
	if descriptor != nil && descriptor == s.remoteDescriptor && s.state == StateNegotiated &&
		!s.negotiation.ShouldRenegotiate() && !s.negotiation.ShouldProcessRemoteDescriptorAsAnswerer() {
		return s.localDescriptor, nil
	}

	if descriptor != nil {
		s.remoteDescriptor = descriptor
		s.negotiation.SetRemoteDescriptor()
	}

	if s.negotiation.ShouldRenegotiate() || s.negotiation.ShouldProcessRemoteDescriptorAsAnswerer() {
		return s.renegotiateLocked(ctx, descriptor)
	}

	if descriptor == nil {
		s.negotiation.SetLocalDescriptor()
	}

	s.setStateLocked(StateNegotiating)

	opts := adapter.CreateOptions{MediaProfile: string(s.MediaProfile), Params: s.Options}
	handles, err := s.client.Negotiate(ctx, s.RoomID, s.UserID, s.ID, descriptor, s.Type, opts)
	if err != nil {
		return nil, orcherr.ServerGenericError(err)
	}
	if descriptor != nil && len(handles) == 0 {
		return nil, orcherr.NoAvailableCodec(fmt.Sprintf("session %s: no media unit negotiated", s.ID))
	}

	units := s.buildUnitsLocked(handles)
	s.medias = append(s.medias, units...)
	s.attachDTMFLocked(units)

	if descriptor != nil {
		if err := checkCodecParity(descriptor, units); err != nil {
			return nil, err
		}
	}

	answer, err := reassemble(units)
	if err != nil {
		return nil, err
	}
	s.localDescriptor = answer
	s.negotiation.SetLocalDescriptor()
	s.setStateLocked(StateNegotiated)

	if s.negotiation.Role() == RoleAnswerer {
		s.emitNegotiatedLocked()
	}
	return answer, nil
}

// renegotiateLocked implements §4.4 "Renegotiation": for each kind with a
// remote partial, it processes that partial as an answer against the
// existing unit, or, for a newly offered content section with no existing
// local content unit, negotiates a fresh content unit. Caller holds s.mu.
func (s *Session) renegotiateLocked(ctx context.Context, descriptor *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	s.setStateLocked(StateRenegotiating)

	wasProcessingAnswer := s.negotiation.ShouldProcessRemoteDescriptorAsAnswerer()

	if descriptor != nil {
		if audio, ok := sdputil.GetAudioSDP(descriptor); ok {
			if err := s.renegotiateKindLocked(ctx, media.KindAudio, audio); err != nil {
				return nil, err
			}
		}
		if video, ok := sdputil.GetVideoSDP(descriptor); ok {
			if err := s.renegotiateKindLocked(ctx, media.KindVideo, video); err != nil {
				return nil, err
			}
		}
		if content, ok := sdputil.GetContentSDP(descriptor); ok {
			if !s.hasUnitForKindLocked(media.KindContent) {
				opts := adapter.CreateOptions{MediaProfile: string(ProfileContent), Params: s.Options}
				handles, err := s.client.Negotiate(ctx, s.RoomID, s.UserID, s.ID, content, s.Type, opts)
				if err != nil {
					return nil, orcherr.ServerGenericError(err)
				}
				units := s.buildUnitsLocked(handles)
				s.medias = append(s.medias, units...)
			} else if err := s.renegotiateKindLocked(ctx, media.KindContent, content); err != nil {
				return nil, err
			}
		}
	}

	answer, err := reassemble(s.medias)
	if err != nil {
		return nil, err
	}
	s.localDescriptor = answer
	s.setStateLocked(StateNegotiated)

	s.negotiation.ClearShouldRenegotiate()
	s.negotiation.ClearShouldProcessRemoteDescriptorAsAnswerer()

	if s.negotiation.Role() == RoleOfferer && wasProcessingAnswer {
		s.emitNegotiatedLocked()
	}
	return answer, nil
}

func (s *Session) renegotiateKindLocked(ctx context.Context, kind media.Kind, partial *sdp.SessionDescription) error {
	unit := s.unitForKindLocked(kind)
	if unit == nil {
		return nil
	}
	if err := s.client.ProcessAnswer(ctx, unit.BackendElementID, partial); err != nil {
		return orcherr.ServerGenericError(err)
	}
	unit.SetRemoteDescriptor(partial)
	return nil
}

func (s *Session) unitForKindLocked(kind media.Kind) *media.Unit {
	for _, u := range s.medias {
		if u.MediaType(kind) != media.DirectionNone {
			return u
		}
	}
	return nil
}

func (s *Session) hasUnitForKindLocked(kind media.Kind) bool {
	return s.unitForKindLocked(kind) != nil
}

func (s *Session) buildUnitsLocked(handles []adapter.MediaUnitHandle) []*media.Unit {
	units := make([]*media.Unit, 0, len(handles))
	for _, h := range handles {
		u := media.New(s.newUnitID(), s.ID, s.RoomID, s.UserID, s.Type, h)
		units = append(units, u)
	}
	return units
}

// attachDTMFLocked creates the session's DTMF aggregator the first time an
// audio-carrying unit is negotiated (§4.4 "audio units attach a DTMF event
// handler").
func (s *Session) attachDTMFLocked(units []*media.Unit) {
	if s.dtmfAgg != nil {
		return
	}
	for _, u := range units {
		if u.MediaType(media.KindAudio) != media.DirectionNone {
			s.dtmfAgg = dtmf.New(&sessionDispatcher{s})
			return
		}
	}
}

// Digit feeds one DTMF character into the session's aggregator, if one has
// been attached yet.
func (s *Session) Digit(ctx context.Context, r rune) {
	s.mu.Lock()
	agg := s.dtmfAgg
	s.mu.Unlock()
	if agg != nil {
		agg.Digit(ctx, r)
	}
}

func (s *Session) setStateLocked(next State) {
	s.state = next
}

func (s *Session) emitNegotiatedLocked() {
	if s.bus == nil || s.builder == nil {
		return
	}
	s.bus.Publish(s.builder.MediaStateEvent(s.ID, "NEGOTIATED").With("userId", s.UserID).Build())
}

// Stop releases every media unit owned by this session and cancels the
// DTMF timer, if any (§3 Ownership: "released when the session is
// released").
func (s *Session) Stop(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dtmfAgg != nil {
		s.dtmfAgg.Stop()
	}

	released := make([]string, 0, len(s.medias))
	for _, u := range s.medias {
		if err := u.Stop(ctx, s.client); err != nil {
			s.logger.Warn("mediasession: stop unit failed", "unit", u.ID, "error", err)
		}
		released = append(released, u.ID)
	}
	s.medias = nil
	s.setStateLocked(StateStopped)
	return released
}

// checkCodecParity asserts that when both a remote offer and negotiated
// units exist, codec availability agrees by kind (§4.4 last bullet).
func checkCodecParity(remote *sdp.SessionDescription, units []*media.Unit) error {
	wantVideo := sdputil.HasAvailableVideoCodec(remote)
	wantAudio := sdputil.HasAvailableAudioCodec(remote)

	gotVideo, gotAudio := false, false
	for _, u := range units {
		if u.MediaType(media.KindVideo) != media.DirectionNone {
			gotVideo = true
		}
		if u.MediaType(media.KindAudio) != media.DirectionNone {
			gotAudio = true
		}
	}

	if wantVideo != gotVideo || wantAudio != gotAudio {
		return orcherr.NoAvailableCodec("negotiated codec availability does not match the offer")
	}
	return nil
}

// reassemble builds the session's local descriptor from its units' local
// descriptors, audio first, sharing a header taken from the first
// non-audio unit or, failing that, the first unit (§4.4 "Answer
// reassembly").
func reassemble(units []*media.Unit) (*sdp.SessionDescription, error) {
	var header *sdp.SessionDescription
	var medias []*sdp.MediaDescription

	for _, u := range units {
		local := u.LocalDescriptor()
		if local == nil {
			continue
		}
		if header == nil && u.MediaType(media.KindAudio) == media.DirectionNone {
			header = sdputil.SessionHeader(local)
		}
		medias = append(medias, local.MediaDescriptions...)
	}

	if header == nil && len(units) > 0 {
		if local := units[0].LocalDescriptor(); local != nil {
			header = sdputil.SessionHeader(local)
		}
	}
	if header == nil {
		header = &sdp.SessionDescription{}
	}

	return sdputil.ReassembleAnswer(header, medias)
}

// sessionDispatcher adapts Session to dtmf.Dispatcher.
type sessionDispatcher struct{ s *Session }

func (d *sessionDispatcher) SetVideoFloor(ctx context.Context, arg string) error {
	d.s.mu.Lock()
	unit := d.s.unitForKindLocked(media.KindVideo)
	d.s.mu.Unlock()
	if unit == nil {
		return orcherr.MediaNotFound("video")
	}
	return d.s.client.SetVideoFloor(ctx, unit.BackendElementID, arg)
}

func (d *sessionDispatcher) SetLayoutType(ctx context.Context, layoutID string) error {
	d.s.mu.Lock()
	unit := d.s.unitForKindLocked(media.KindVideo)
	d.s.mu.Unlock()
	if unit == nil {
		return orcherr.MediaNotFound("video")
	}
	return d.s.client.SetLayoutType(ctx, unit.BackendElementID, layoutID)
}

func (d *sessionDispatcher) ToggleSubtitle(ctx context.Context, global bool) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, u := range d.s.medias {
		if global {
			u.EnableSubtitle = !u.EnableSubtitle
			continue
		}
		if u.MediaType(media.KindAudio) != media.DirectionNone {
			u.EnableSubtitle = !u.EnableSubtitle
		}
	}
	return nil
}
