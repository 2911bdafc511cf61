// Package user implements the room participant (§3 "User", §4.5 "User"):
// owns its media sessions and drives publish/subscribe/unpublish/leave.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/id"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
	"github.com/sebas/orchestrator/internal/orchestrator/orcherr"
)

// Type distinguishes how the user's media sessions participate in a room's
// topology (§3): an SFU user is forwarded point-to-point, an MCU user
// publishes into (or receives from) the room's mixer.
type Type string

const (
	TypeSFU   Type = "SFU"
	TypeMCU   Type = "MCU"
	TypeOther Type = "other"
)

// SessionFactory creates the concrete mediasession.Session for a publish/
// subscribe call; the controller supplies this so that User stays
// decoupled from the adapter/bus wiring (it only calls the factory).
type SessionFactory func(cfg mediasession.Config) *mediasession.Session

// User is one room participant (§3).
type User struct {
	ID     string
	RoomID string
	Type   Type
	Name   string

	Strategy string

	mu       sync.Mutex
	sessions map[string]*mediasession.Session

	adapter   adapter.Adapter
	newFunc   SessionFactory
	newUnitID func() string
	logger    *slog.Logger
}

type Config struct {
	ID     string
	RoomID string
	Type   Type
	Name   string

	Adapter   adapter.Adapter
	NewFunc   SessionFactory
	NewUnitID func() string
	Logger    *slog.Logger
}

func New(cfg Config) *User {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	uid := cfg.ID
	if uid == "" {
		uid = id.User()
	}
	return &User{
		ID:        uid,
		RoomID:    cfg.RoomID,
		Type:      cfg.Type,
		Name:      cfg.Name,
		sessions:  make(map[string]*mediasession.Session),
		adapter:   cfg.Adapter,
		newFunc:   cfg.NewFunc,
		newUnitID: cfg.NewUnitID,
		logger:    logger,
	}
}

// Sessions returns a snapshot of every media session this user owns.
func (u *User) Sessions() []*mediasession.Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]*mediasession.Session, 0, len(u.sessions))
	for _, s := range u.sessions {
		out = append(out, s)
	}
	return out
}

func (u *User) Session(id string) (*mediasession.Session, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[id]
	return s, ok
}

// Publish creates a media session via the factory and delegates process()
// to it, returning the new session and its local answer/offer (§4.5
// "publish(sdp, type, params) -> creates a media session via the
// factory, delegates process, returns (session, answer)").
func (u *User) Publish(ctx context.Context, t adapter.ElementType, profile mediasession.Profile, descriptor *sdp.SessionDescription, opts map[string]any) (*mediasession.Session, *sdp.SessionDescription, error) {
	s := u.newFunc(mediasession.Config{
		ID:           id.MediaSession(),
		RoomID:       u.RoomID,
		UserID:       u.ID,
		Type:         t,
		MediaProfile: profile,
		Options:      opts,
		Strategy:     u.Strategy,
		Adapter:      u.adapter,
		NewUnitID:    u.newUnitID,
		Logger:       u.logger,
	})

	answer, err := s.Process(ctx, descriptor)
	if err != nil {
		return nil, nil, err
	}

	u.mu.Lock()
	u.sessions[s.ID] = s
	u.mu.Unlock()

	return s, answer, nil
}

// PublishURI creates a URI-type media session (a backend element that
// streams to/from an arbitrary URI rather than negotiating with a peer).
//
// NOTE: carried over from the source this is grounded on -- the options
// map's "path" entry is never read here; recordingPath is always its
// unset zero value, so URI sessions negotiate without a destination and
// may be unreachable from the backend's side. Left unfixed.
func (u *User) PublishURI(ctx context.Context, profile mediasession.Profile, opts map[string]any) (*mediasession.Session, *sdp.SessionDescription, error) {
	var recordingPath string
	_ = recordingPath
	return u.Publish(ctx, adapter.ElementURI, profile, nil, opts)
}

// Subscribe publishes a new session the same way Publish does, and on
// success connects the source session's units into it (§4.5 "subscribe
// additionally connects source -> new session on success").
func (u *User) Subscribe(ctx context.Context, source *mediasession.Session, t adapter.ElementType, profile mediasession.Profile, descriptor *sdp.SessionDescription, opts map[string]any) (*mediasession.Session, *sdp.SessionDescription, error) {
	sink, answer, err := u.Publish(ctx, t, profile, descriptor, opts)
	if err != nil {
		return nil, nil, err
	}

	if err := connectAll(ctx, u.adapter, source, sink); err != nil {
		return sink, answer, err
	}
	return sink, answer, nil
}

// connectAll wires media units of src into sink with ConnectAll: when sink
// carries a single mixed unit (e.g. an MCU backend) every src unit feeds
// it; otherwise units are paired by index, without comparing their kinds,
// and src units beyond sink's count stay unconnected.
func connectAll(ctx context.Context, a adapter.Adapter, src, sink *mediasession.Session) error {
	srcUnits := src.Medias()
	sinkUnits := sink.Medias()
	if len(srcUnits) == 0 || len(sinkUnits) == 0 {
		return nil
	}

	if len(sinkUnits) == 1 {
		for _, su := range srcUnits {
			if err := su.Connect(ctx, a, sinkUnits[0], adapter.ConnectAll); err != nil {
				return orcherr.ConnectionError(err)
			}
		}
		return nil
	}

	for i, su := range srcUnits {
		if i >= len(sinkUnits) {
			break
		}
		if err := su.Connect(ctx, a, sinkUnits[i], adapter.ConnectAll); err != nil {
			return orcherr.ConnectionError(err)
		}
	}
	return nil
}

// Unpublish stops and deindexes a single owned session.
func (u *User) Unpublish(ctx context.Context, sessionID string) ([]string, error) {
	u.mu.Lock()
	s, ok := u.sessions[sessionID]
	if ok {
		delete(u.sessions, sessionID)
	}
	u.mu.Unlock()

	if !ok {
		return nil, orcherr.MediaNotFound(sessionID)
	}
	return s.Stop(ctx), nil
}

// Leave stops every owned session and returns the list of removed media
// unit IDs so the controller can deindex them (§4.5 "leave stops every
// owned session ... returns the list of removed media IDs").
func (u *User) Leave(ctx context.Context) []string {
	u.mu.Lock()
	sessions := make([]*mediasession.Session, 0, len(u.sessions))
	for _, s := range u.sessions {
		sessions = append(sessions, s)
	}
	u.sessions = make(map[string]*mediasession.Session)
	u.mu.Unlock()

	var removed []string
	for _, s := range sessions {
		removed = append(removed, s.Stop(ctx)...)
	}
	return removed
}

// String aids log lines ("user %s in room %s").
func (u *User) String() string {
	return fmt.Sprintf("user %s (room %s)", u.ID, u.RoomID)
}
