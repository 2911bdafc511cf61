// Package room implements the conference container (§3 "Room", §4.5 "Room
// floors"): the set of users and media sessions sharing a room, and the
// conference-video and content (screen-share) floor pointers with their
// MRU history.
package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/media"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
	"github.com/sebas/orchestrator/internal/orchestrator/user"
)

// maxFloorHistory is the MRU history cap for both floors (§3: "cap 10").
const maxFloorHistory = 10

// Room is the container of users and media sessions sharing a conference
// (§3). It owns the conference-video and content floor pointers.
type Room struct {
	ID       string
	Strategy string

	mu sync.Mutex

	users    map[string]*user.User
	sessions map[string]*mediasession.Session

	conferenceFloor          *media.Unit
	previousConferenceFloors []*media.Unit

	contentFloor          *media.Unit
	previousContentFloors []*media.Unit

	bus     *eventbus.Bus
	builder *eventbus.Builder
	logger  *slog.Logger
}

type Config struct {
	ID       string
	Strategy string
	Bus      *eventbus.Bus
	Builder  *eventbus.Builder
	Logger   *slog.Logger
}

func New(cfg Config) *Room {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Room{
		ID:       cfg.ID,
		Strategy: cfg.Strategy,
		users:    make(map[string]*user.User),
		sessions: make(map[string]*mediasession.Session),
		bus:      cfg.Bus,
		builder:  cfg.Builder,
		logger:   logger,
	}
	if r.bus != nil && r.builder != nil {
		r.bus.Publish(r.builder.RoomCreated(r.ID).Build())
	}
	return r
}

// AddUser registers a joined user and emits USER_JOINED.
func (r *Room) AddUser(u *user.User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()

	if r.bus != nil && r.builder != nil {
		r.bus.Publish(r.builder.UserJoined(r.ID, u.ID).Build())
	}
}

// RemoveUser deregisters u, emits USER_LEFT, and reports whether the room
// is now empty of users.
func (r *Room) RemoveUser(userID string) (empty bool) {
	r.mu.Lock()
	delete(r.users, userID)
	empty = len(r.users) == 0
	r.mu.Unlock()

	if r.bus != nil && r.builder != nil {
		r.bus.Publish(r.builder.UserLeft(r.ID, userID).Build())
	}
	return empty
}

func (r *Room) Users() []*user.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// AddSession registers a media session as belonging to this room (reached
// via some user's publish/subscribe).
func (r *Room) AddSession(s *mediasession.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// RemoveSession deregisters a session and clears any floor pointer whose
// referent lived on it.
func (r *Room) RemoveSession(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	for _, u := range s.Medias() {
		r.onMediaDisconnected(u)
	}
}

func (r *Room) Sessions() []*mediasession.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*mediasession.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// ConferenceFloor returns the current conference-video floor unit, if any.
func (r *Room) ConferenceFloor() *media.Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conferenceFloor
}

func (r *Room) ContentFloor() *media.Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contentFloor
}

// SetContentFloor replaces the current content floor with m, pushing the
// previous holder onto the MRU history, and emits CONTENT_FLOOR_CHANGED
// (§4.5: "setContentFloor(media) replaces the current content floor with
// media.getContentMedia()").
func (r *Room) SetContentFloor(m *media.Unit) {
	r.mu.Lock()
	if r.contentFloor != nil {
		r.previousContentFloors = pushMRU(r.previousContentFloors, r.contentFloor, maxFloorHistory)
	}
	r.contentFloor = m
	r.mu.Unlock()

	r.emitContentFloorChanged(m)
}

// ReleaseContentFloor clears the content floor, restoring the most
// recently used previous holder if one exists (law e, §8).
func (r *Room) ReleaseContentFloor() {
	r.mu.Lock()
	var restored *media.Unit
	if len(r.previousContentFloors) > 0 {
		restored = r.previousContentFloors[len(r.previousContentFloors)-1]
		r.previousContentFloors = r.previousContentFloors[:len(r.previousContentFloors)-1]
	}
	r.contentFloor = restored
	r.mu.Unlock()

	r.emitContentFloorChanged(restored)
}

func (r *Room) emitContentFloorChanged(holder *media.Unit) {
	if r.bus == nil || r.builder == nil {
		return
	}
	holderID := ""
	if holder != nil {
		holderID = holder.ID
	}
	r.bus.Publish(r.builder.ContentFloorChangedEvent(r.ID, holderID).Build())
}

// SetConferenceFloor replaces the conference-video floor with m, or -- if m
// carries no video -- searches (a) m's sibling units within its own
// session, then (b) every session of m's owning user, for a unit whose
// video direction is sendrecv or sendonly (§4.5). If none is found, the
// call is a no-op with a warning.
func (r *Room) SetConferenceFloor(m *media.Unit, ownerSessions []*mediasession.Session) {
	candidate := m
	if candidate != nil && !candidate.HasVideo() {
		candidate = r.findVideoCandidate(m, ownerSessions)
		if candidate == nil {
			r.logger.Warn("room: setConferenceFloor: no video-carrying unit found", "room", r.ID, "media", m.ID)
			return
		}
	}

	r.mu.Lock()
	if r.conferenceFloor != nil {
		r.previousConferenceFloors = pushMRU(r.previousConferenceFloors, r.conferenceFloor, maxFloorHistory)
	}
	r.conferenceFloor = candidate
	r.mu.Unlock()

	r.emitConferenceFloorChanged(candidate)
}

func (r *Room) findVideoCandidate(m *media.Unit, ownerSessions []*mediasession.Session) *media.Unit {
	for _, s := range ownerSessions {
		for _, sibling := range s.Medias() {
			if sibling.SessionID == m.SessionID && sibling.HasVideo() {
				return sibling
			}
		}
	}
	for _, s := range ownerSessions {
		for _, u := range s.Medias() {
			if u.HasVideo() {
				return u
			}
		}
	}
	return nil
}

// ReleaseConferenceFloor clears the conference floor; the previous holders
// kept in previousConferenceFloors are not restored.
//
// NOTE: per the source this is grounded on, the MRU-restore branch reads
// the singular previous-floor field while the history is tracked under
// the plural field name -- that branch is unreachable and the floor is
// always cleared outright here instead of restored. Left unfixed
// deliberately.
func (r *Room) ReleaseConferenceFloor() {
	r.mu.Lock()
	var previousConferenceFloor *media.Unit // singular: never populated, mirrors the field-name mismatch
	restored := previousConferenceFloor
	r.conferenceFloor = restored
	r.mu.Unlock()

	r.emitConferenceFloorChanged(restored)
}

func (r *Room) emitConferenceFloorChanged(holder *media.Unit) {
	if r.bus == nil || r.builder == nil {
		return
	}
	holderID := ""
	if holder != nil {
		holderID = holder.ID
	}
	r.bus.Publish(r.builder.ConferenceFloorChangedEvent(r.ID, holderID).Build())
}

// onMediaDisconnected auto-releases a floor whose referent matches m (§4.5:
// "MEDIA_DISCONNECTED for any media matching the current floor triggers an
// automatic release").
//
// NOTE: the disconnection handler checks the content floor for both floor
// kinds -- a copy-paste carried over from the source this is grounded on
// rather than corrected, so a conference-floor media's disconnection never
// auto-releases the conference floor, only ever the content floor.
func (r *Room) onMediaDisconnected(m *media.Unit) {
	r.mu.Lock()
	matchesContent := r.contentFloor != nil && r.contentFloor.ID == m.ID
	r.mu.Unlock()

	if matchesContent {
		r.ReleaseContentFloor()
	}
}

// Disconnect notifies the room that m's backend has gone away, applying
// the same auto-release rule the controller's Leave path drives through
// RemoveSession.
func (r *Room) Disconnect(_ context.Context, m *media.Unit) {
	r.onMediaDisconnected(m)
	if r.bus != nil && r.builder != nil {
		r.bus.Publish(r.builder.MediaDisconnected(m.ID).Build())
	}
}

func pushMRU(history []*media.Unit, holder *media.Unit, limit int) []*media.Unit {
	history = append(history, holder)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
