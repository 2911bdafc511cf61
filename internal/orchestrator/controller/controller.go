// Package controller implements the top-level façade (§4.5 "Controller"):
// request routing, cross-entity invariants, event subscription fan-out,
// and strategy dispatch. It indexes rooms, users, sessions and media
// units flat (in addition to the tree each of those packages already
// owns) so lookups by any ID are O(1) (§9 "Cyclic references": "each
// entity lives in the controller's flat maps keyed by ID; back-references
// are IDs, not owned pointers").
package controller

import (
	"context"
	"log/slog"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/id"
	"github.com/sebas/orchestrator/internal/orchestrator/media"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
	"github.com/sebas/orchestrator/internal/orchestrator/orcherr"
	"github.com/sebas/orchestrator/internal/orchestrator/recording"
	"github.com/sebas/orchestrator/internal/orchestrator/room"
	"github.com/sebas/orchestrator/internal/orchestrator/store"
	"github.com/sebas/orchestrator/internal/orchestrator/strategy"
	"github.com/sebas/orchestrator/internal/orchestrator/user"
)

// Controller is the client-facing façade. Its request methods accept an
// opaque transactionID parameter; this module neither interprets it nor
// returns it in any result.
type Controller struct {
	rooms    *store.Registry[string, *room.Room]
	users    *store.Registry[string, *user.User]
	sessions *store.Registry[string, *mediasession.Session]
	medias   *store.Registry[string, *media.Unit]

	mcuSessions *store.Registry[string, *mediasession.Session] // keyed by roomID
	mcuUsers    *store.Registry[string, int]                   // roomID -> count of MCU users

	recordings *recording.Registry
	strategies *strategy.Registry

	adapter adapter.Adapter
	bus     *eventbus.Bus
	builder *eventbus.Builder
	logger  *slog.Logger
}

type Config struct {
	Adapter adapter.Adapter
	Bus     *eventbus.Bus
	NodeID  string
	Logger  *slog.Logger
}

func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = eventbus.NewBus()
	}
	return &Controller{
		rooms:       store.New[string, *room.Room](),
		users:       store.New[string, *user.User](),
		sessions:    store.New[string, *mediasession.Session](),
		medias:      store.New[string, *media.Unit](),
		mcuSessions: store.New[string, *mediasession.Session](),
		mcuUsers:    store.New[string, int](),
		recordings:  recording.NewRegistry(),
		strategies:  strategy.NewRegistry(),
		adapter:     cfg.Adapter,
		bus:         bus,
		builder:     eventbus.NewBuilder(cfg.NodeID),
		logger:      logger,
	}
}

func (c *Controller) indexSession(s *mediasession.Session) {
	c.sessions.Set(s.ID, s)
	for _, u := range s.Medias() {
		c.medias.Set(u.ID, u)
	}
}

func (c *Controller) roomOf(roomID string) (*room.Room, error) {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return nil, orcherr.RoomNotFound(roomID)
	}
	return r, nil
}

func (c *Controller) userOf(userID string) (*user.User, error) {
	u, ok := c.users.Get(userID)
	if !ok {
		return nil, orcherr.UserNotFound(userID)
	}
	return u, nil
}

func (c *Controller) sessionOf(mediaOrSessionID string) (*mediasession.Session, error) {
	if s, ok := c.sessions.Get(mediaOrSessionID); ok {
		return s, nil
	}
	if m, ok := c.medias.Get(mediaOrSessionID); ok {
		if s, ok := c.sessions.Get(m.SessionID); ok {
			return s, nil
		}
	}
	return nil, orcherr.MediaNotFound(mediaOrSessionID)
}

// Join creates the room on first use, creates the user, registers it, and
// emits USER_JOINED via the room (§6 "join(roomId, type, params) ->
// userId").
func (c *Controller) Join(roomID string, t user.Type, name string, transactionID string) (string, error) {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		r = room.New(room.Config{ID: roomID, Bus: c.bus, Builder: c.builder, Logger: c.logger})
		c.rooms.Set(roomID, r)
	}

	u := user.New(user.Config{
		ID:        id.User(),
		RoomID:    roomID,
		Type:      t,
		Name:      name,
		Adapter:   c.adapter,
		NewFunc:   mediasession.New,
		NewUnitID: func() string { return id.MediaUnit() },
		Logger:    c.logger,
	})

	c.users.Set(u.ID, u)
	r.AddUser(u)

	if t == user.TypeMCU {
		if !c.mcuUsers.Update(roomID, func(n int) int { return n + 1 }) {
			c.mcuUsers.Set(roomID, 1)
		}
	}

	return u.ID, nil
}

// Leave stops every session the user owns, deindexes them, removes the
// user from its room, and destroys the room if it is now empty (§4.5
// "Controller", §8 invariant c). Leaving an unknown user is idempotent
// (§7 "Local recovery").
func (c *Controller) Leave(userID, roomID string, transactionID string) error {
	u, ok := c.users.Get(userID)
	if !ok {
		return nil
	}
	c.users.Delete(userID)

	ownedSessionIDs := make([]string, 0, len(u.Sessions()))
	for _, s := range u.Sessions() {
		ownedSessionIDs = append(ownedSessionIDs, s.ID)
	}

	if r, ok := c.rooms.Get(roomID); ok {
		for _, sessionID := range ownedSessionIDs {
			r.RemoveSession(sessionID)
		}
	}

	removedMedia := u.Leave(context.Background())
	for _, sessionID := range ownedSessionIDs {
		c.sessions.Delete(sessionID)
	}
	for _, mediaID := range removedMedia {
		c.medias.Delete(mediaID)
	}

	r, ok := c.rooms.Get(roomID)
	if !ok {
		return nil
	}
	r.RemoveUser(userID)

	if u.Type == user.TypeMCU {
		remaining := 0
		c.mcuUsers.Update(roomID, func(n int) int {
			if n > 0 {
				n--
			}
			remaining = n
			return n
		})
		if remaining == 0 {
			if mcu, ok := c.mcuSessions.Get(roomID); ok {
				mcu.Stop(context.Background())
				c.mcuSessions.Delete(roomID)
			}
		}
	}

	if r.UserCount() == 0 {
		c.rooms.Delete(roomID)
		c.bus.Publish(c.builder.RoomDestroyed(roomID).Build())
		c.bus.UnsubscribeIdentifier(roomID)
	}

	return nil
}

// Publish delegates to the owning user's Publish and indexes the result
// (§6 "publish(...) -> {mediaId, descriptor}").
func (c *Controller) Publish(ctx context.Context, userID string, t adapter.ElementType, profile mediasession.Profile, descriptor *sdp.SessionDescription, opts map[string]any, transactionID string) (*mediasession.Session, *sdp.SessionDescription, error) {
	u, err := c.userOf(userID)
	if err != nil {
		return nil, nil, err
	}

	s, answer, err := u.Publish(ctx, t, profile, descriptor, opts)
	if err != nil {
		return nil, nil, err
	}

	if r, ok := c.rooms.Get(u.RoomID); ok {
		r.AddSession(s)
	}
	c.indexSession(s)
	c.bus.Publish(c.builder.MediaConnected(s.ID, userID).Build())

	return s, answer, nil
}

// Subscribe delegates to the owning user's Subscribe (§6 "subscribe(user,
// source, type, params) -> {mediaId, descriptor}").
func (c *Controller) Subscribe(ctx context.Context, userID, sourceID string, t adapter.ElementType, profile mediasession.Profile, descriptor *sdp.SessionDescription, opts map[string]any, transactionID string) (*mediasession.Session, *sdp.SessionDescription, error) {
	u, err := c.userOf(userID)
	if err != nil {
		return nil, nil, err
	}
	source, err := c.sessionOf(sourceID)
	if err != nil {
		return nil, nil, err
	}

	sink, answer, err := u.Subscribe(ctx, source, t, profile, descriptor, opts)
	if err != nil {
		return nil, nil, err
	}

	if r, ok := c.rooms.Get(u.RoomID); ok {
		r.AddSession(sink)
	}
	c.indexSession(sink)
	c.bus.Publish(c.builder.SubscribedToEvent(sourceID, sink.ID).Build())

	return sink, answer, nil
}

// PublishAndSubscribe fuses publish and subscribe (§6): it publishes, and
// -- on first use per room -- creates the MCU mixer session, connecting
// existing SFU sessions into it, and connects the room's content floor
// into the new session if it carries content media (§4.5 "Controller").
func (c *Controller) PublishAndSubscribe(ctx context.Context, userID string, t adapter.ElementType, profile mediasession.Profile, descriptor *sdp.SessionDescription, opts map[string]any, transactionID string) (*mediasession.Session, *sdp.SessionDescription, error) {
	s, answer, err := c.Publish(ctx, userID, t, profile, descriptor, opts, transactionID)
	if err != nil {
		return nil, nil, err
	}

	u, err := c.userOf(userID)
	if err != nil {
		return s, answer, nil
	}

	if u.Type == user.TypeMCU {
		if err := c.ensureMCUSession(ctx, u, s); err != nil {
			c.logger.Warn("controller: publishAndSubscribe: mcu wiring failed", "user", userID, "error", err)
		}
	}

	if profile == mediasession.ProfileContent || profile == mediasession.ProfileAll {
		if r, ok := c.rooms.Get(u.RoomID); ok {
			if floor := r.ContentFloor(); floor != nil {
				for _, unit := range s.Medias() {
					if unit.MediaType(media.KindContent) != media.DirectionNone {
						_ = floor.Connect(ctx, c.adapter, unit, adapter.ConnectContent)
					}
				}
			}
		}
	}

	return s, answer, nil
}

// ensureMCUSession creates the room's MCU mixer session on first use and
// connects every existing SFU session's media into it (§8 scenario 5).
func (c *Controller) ensureMCUSession(ctx context.Context, mcuUser *user.User, newSession *mediasession.Session) error {
	mcu, ok := c.mcuSessions.Get(mcuUser.RoomID)
	if !ok {
		var err error
		mcu, _, err = mcuUser.Publish(ctx, adapter.ElementMCU, mediasession.ProfileAll, nil, nil)
		if err != nil {
			return err
		}
		c.mcuSessions.Set(mcuUser.RoomID, mcu)

		if r, ok := c.rooms.Get(mcuUser.RoomID); ok {
			for _, s := range r.Sessions() {
				if s.ID == mcu.ID || s.Type == adapter.ElementMCU {
					continue
				}
				connectSessions(ctx, c.adapter, s, mcu)
			}
		}
	}

	if newSession.ID != mcu.ID {
		connectSessions(ctx, c.adapter, newSession, mcu)
	}
	return nil
}

func connectSessions(ctx context.Context, a adapter.Adapter, src, sink *mediasession.Session) {
	sinkUnits := sink.Medias()
	if len(sinkUnits) == 0 {
		return
	}
	for _, su := range src.Medias() {
		_ = su.Connect(ctx, a, sinkUnits[0], adapter.ConnectAll)
	}
}

// Connect wires sourceID into every sinkID (§6 "connect(sourceId,
// sinkIds[], kind)").
func (c *Controller) Connect(ctx context.Context, sourceID string, sinkIDs []string, kind adapter.ConnectKind, transactionID string) error {
	src, ok := c.medias.Get(sourceID)
	if !ok {
		return orcherr.MediaNotFound(sourceID)
	}
	for _, sinkID := range sinkIDs {
		sink, ok := c.medias.Get(sinkID)
		if !ok {
			return orcherr.MediaNotFound(sinkID)
		}
		if err := src.Connect(ctx, c.adapter, sink, kind); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) Disconnect(ctx context.Context, sourceID string, sinkIDs []string, kind adapter.ConnectKind, transactionID string) error {
	src, ok := c.medias.Get(sourceID)
	if !ok {
		return orcherr.MediaNotFound(sourceID)
	}
	for _, sinkID := range sinkIDs {
		sink, ok := c.medias.Get(sinkID)
		if !ok {
			continue
		}
		if err := src.Disconnect(ctx, c.adapter, sink, kind); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) AddIceCandidate(ctx context.Context, mediaID, candidate string, transactionID string) error {
	u, ok := c.medias.Get(mediaID)
	if !ok {
		return orcherr.MediaNotFound(mediaID)
	}
	if err := c.adapter.AddIceCandidate(ctx, u.BackendElementID, candidate); err != nil {
		return orcherr.ServerGenericError(err)
	}
	return nil
}

// StartRecording resolves mediaID's session and starts a recording
// session against it (§6 "startRecording(userId, mediaId, path, params)
// -> recordingId").
func (c *Controller) StartRecording(ctx context.Context, userID, mediaID, path string, opts map[string]any, transactionID string) (string, error) {
	if _, err := c.userOf(userID); err != nil {
		return "", err
	}
	source, err := c.sessionOf(mediaID)
	if err != nil {
		return "", err
	}
	rec, err := c.recordings.Start(ctx, c.adapter, source, mediasession.New, func() string { return id.MediaUnit() }, path, opts)
	if err != nil {
		return "", err
	}

	c.trackMediaState(mediaID, "RECORDING")
	// NOTE: carried over verbatim -- the state-tracking call above is
	// duplicated here, a stray double-call in the source this is grounded
	// on, so the RECORDING MEDIA_STATE event is published twice. Left
	// unfixed.
	c.trackMediaState(mediaID, "RECORDING")

	return rec.ID, nil
}

func (c *Controller) trackMediaState(mediaID, state string) {
	c.bus.Publish(c.builder.MediaStateEvent(mediaID, state).Build())
}

func (c *Controller) StopRecording(ctx context.Context, userID, recordingID string, transactionID string) error {
	if _, err := c.userOf(userID); err != nil {
		return err
	}
	return c.recordings.Stop(ctx, c.adapter, recordingID)
}

// RequestKeyframe is a direct passthrough raising KEYFRAME_NEEDED (§4.6).
func (c *Controller) RequestKeyframe(mediaID string, transactionID string) {
	recording.RequestKeyframe(c.bus, c.builder, mediaID)
}

func (c *Controller) SetConferenceFloor(roomID, mediaID string, transactionID string) error {
	r, err := c.roomOf(roomID)
	if err != nil {
		return err
	}
	m, ok := c.medias.Get(mediaID)
	if !ok {
		return orcherr.MediaNotFound(mediaID)
	}
	var ownerSessions []*mediasession.Session
	if s, ok := c.sessions.Get(m.SessionID); ok {
		if u, ok := c.users.Get(s.UserID); ok {
			ownerSessions = u.Sessions()
		}
	}
	r.SetConferenceFloor(m, ownerSessions)
	return nil
}

func (c *Controller) ReleaseConferenceFloor(roomID string, transactionID string) error {
	r, err := c.roomOf(roomID)
	if err != nil {
		return err
	}
	r.ReleaseConferenceFloor()
	return nil
}

func (c *Controller) SetContentFloor(roomID, mediaID string, transactionID string) error {
	r, err := c.roomOf(roomID)
	if err != nil {
		return err
	}
	m, ok := c.medias.Get(mediaID)
	if !ok {
		return orcherr.MediaNotFound(mediaID)
	}
	r.SetContentFloor(m)
	return nil
}

func (c *Controller) ReleaseContentFloor(roomID string, transactionID string) error {
	r, err := c.roomOf(roomID)
	if err != nil {
		return err
	}
	r.ReleaseContentFloor()
	return nil
}

func (c *Controller) GetConferenceFloor(roomID string) (*media.Unit, error) {
	r, err := c.roomOf(roomID)
	if err != nil {
		return nil, err
	}
	return r.ConferenceFloor(), nil
}

func (c *Controller) GetContentFloor(roomID string) (*media.Unit, error) {
	r, err := c.roomOf(roomID)
	if err != nil {
		return nil, err
	}
	return r.ContentFloor(), nil
}

func (c *Controller) GetRooms() []*room.Room {
	all := c.rooms.All()
	out := make([]*room.Room, 0, len(all))
	for _, r := range all {
		out = append(out, r)
	}
	return out
}

func (c *Controller) GetUsers(roomID string) ([]*user.User, error) {
	r, err := c.roomOf(roomID)
	if err != nil {
		return nil, err
	}
	return r.Users(), nil
}

func (c *Controller) GetUserMedias(userID string) ([]*mediasession.Session, error) {
	u, err := c.userOf(userID)
	if err != nil {
		return nil, err
	}
	return u.Sessions(), nil
}

// Digit feeds one DTMF character to mediaID's session (§6 "dtmf(mediaId,
// tone)").
func (c *Controller) Digit(ctx context.Context, mediaID string, tone rune, transactionID string) error {
	s, err := c.sessionOf(mediaID)
	if err != nil {
		return err
	}
	s.Digit(ctx, tone)
	return nil
}

func (c *Controller) SetStrategy(identifier, name string, s strategy.Strategy, transactionID string) {
	c.strategies.Set(name, s)
	c.bus.Publish(c.builder.StrategyChangedEvent(identifier, name).Build())
}

func (c *Controller) GetStrategy(name string) strategy.Strategy {
	return c.strategies.Get(name)
}

// OnEvent subscribes handler to eventName for identifier (use
// eventbus.GlobalIdentifier for "all") (§6 "onEvent(eventName,
// identifier)").
func (c *Controller) OnEvent(eventName eventbus.Kind, identifier string, handler eventbus.Handler) eventbus.Unsubscribe {
	return c.bus.Subscribe(eventName, identifier, handler)
}
