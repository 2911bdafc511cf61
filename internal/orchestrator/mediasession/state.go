package mediasession

import (
	"fmt"
	"sync"
)

// Role is the negotiation role of a media session: which side supplied
// the first descriptor (§4.4 "State machine (role)").
type Role int

const (
	RoleNone Role = iota
	RoleOfferer
	RoleAnswerer
)

func (r Role) String() string {
	switch r {
	case RoleOfferer:
		return "OFFERER"
	case RoleAnswerer:
		return "ANSWERER"
	case RoleNone:
		return "NONE"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// NegotiationState tracks role assignment and the renegotiation flags per
// §4.4. Role is assigned on first descriptor and is then immutable (law g,
// §8). Per the source's design note on "promise-returning setters", the
// setters here are explicit and return the flags they compute rather than
// triggering side effects implicitly.
type NegotiationState struct {
	mu sync.Mutex

	role      Role
	hasLocal  bool
	hasRemote bool

	shouldRenegotiate                       bool
	shouldProcessRemoteDescriptorAsAnswerer bool
}

func (s *NegotiationState) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *NegotiationState) ShouldRenegotiate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldRenegotiate
}

func (s *NegotiationState) ShouldProcessRemoteDescriptorAsAnswerer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldProcessRemoteDescriptorAsAnswerer
}

// ClearShouldProcessRemoteDescriptorAsAnswerer is called once the pending
// answer has actually been processed, so the false->true->false transition
// can be observed by process() to decide whether to emit MEDIA_NEGOTIATED
// for an OFFERER (§4.4, last bullet).
func (s *NegotiationState) ClearShouldProcessRemoteDescriptorAsAnswerer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldProcessRemoteDescriptorAsAnswerer = false
}

func (s *NegotiationState) ClearShouldRenegotiate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldRenegotiate = false
}

// SetLocalDescriptor records that a local descriptor was assigned. On
// first assignment with no prior remote descriptor, role becomes OFFERER.
func (s *NegotiationState) SetLocalDescriptor() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleNone && !s.hasRemote {
		s.role = RoleOfferer
	}
	s.hasLocal = true
	return s.role
}

// SetRemoteDescriptor records that a remote descriptor was assigned.
//   - First assignment with no prior local descriptor: role becomes
//     ANSWERER.
//   - A remote arriving after a local already exists (the offerer path):
//     flags shouldProcessRemoteDescriptorAsAnswerer.
//   - A remote arriving when both a local and a remote already exist:
//     flags shouldRenegotiate.
func (s *NegotiationState) SetRemoteDescriptor() Role {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.role == RoleNone && !s.hasLocal:
		s.role = RoleAnswerer
	case s.hasLocal && !s.hasRemote:
		s.shouldProcessRemoteDescriptorAsAnswerer = true
	case s.hasLocal && s.hasRemote:
		s.shouldRenegotiate = true
	}
	s.hasRemote = true
	return s.role
}

// State is the session's own lifecycle state, distinct from the
// negotiation role above, grounded on the teacher's dialog.CallState
// transition-table pattern.
type State int

const (
	StateCreated State = iota
	StateNegotiating
	StateNegotiated
	StateRenegotiating
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateNegotiating:
		return "Negotiating"
	case StateNegotiated:
		return "Negotiated"
	case StateRenegotiating:
		return "Renegotiating"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

var validTransitions = map[State][]State{
	StateCreated:       {StateNegotiating, StateStopped},
	StateNegotiating:   {StateNegotiated, StateStopped},
	StateNegotiated:    {StateRenegotiating, StateStopped},
	StateRenegotiating: {StateNegotiated, StateStopped},
	StateStopped:       {},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateStopped
}
