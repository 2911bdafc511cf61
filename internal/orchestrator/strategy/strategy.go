// Package strategy holds the named policy tunables that Room, User and
// MediaSession reference by name rather than copy inline, so that a policy
// update is visible immediately to every lookup of that name.
package strategy

import (
	"sync"
	"time"

	"github.com/sebas/orchestrator/internal/orchestrator/mediasession/dtmf"
)

// FloorPolicy selects how a room picks its default conference/content floor
// when none has been explicitly set.
type FloorPolicy int

const (
	// FloorPolicyFirstPublisher assigns the floor to whichever user
	// publishes video first.
	FloorPolicyFirstPublisher FloorPolicy = iota
	// FloorPolicyManual never auto-assigns; only explicit set*Floor calls
	// change it.
	FloorPolicyManual
)

// Strategy is a named bundle of tunables referenced by name from Room,
// User and MediaSession. The Registry stores and resolves these values;
// no session, room or DTMF aggregator in this module reads them, so they
// do not change negotiation, DTMF or floor behaviour.
type Strategy struct {
	Name string

	// AutoAcceptRenegotiation records whether an incoming renegotiation
	// offer may be applied without an explicit caller confirmation step.
	AutoAcceptRenegotiation bool

	// DTMFTimeout is the DTMF command timeout for this strategy. Zero
	// means "use the aggregator default".
	DTMFTimeout time.Duration

	// DTMFCodeLength is the DTMF command length for this strategy. Zero
	// means "use the aggregator default".
	DTMFCodeLength int

	DefaultFloorPolicy FloorPolicy
}

// Default is the strategy used by entities that never called setStrategy.
var Default = Strategy{
	Name:               "default",
	DTMFTimeout:        dtmf.DefaultTimeout,
	DTMFCodeLength:     dtmf.DefaultCodeLength,
	DefaultFloorPolicy: FloorPolicyFirstPublisher,
}

// Registry resolves strategy names to values. Entities store a name; they
// always look it up here rather than copying the Strategy, so a later
// setStrategy call is visible to every holder immediately.
type Registry struct {
	mu    sync.RWMutex
	named map[string]Strategy
}

// NewRegistry returns a registry pre-seeded with the "default" strategy.
func NewRegistry() *Registry {
	return &Registry{named: map[string]Strategy{Default.Name: Default}}
}

// Set installs or replaces the strategy under name (§3.1 setStrategy).
func (r *Registry) Set(name string, s Strategy) {
	s.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[name] = s
}

// Get resolves name to its Strategy (§3.1 getStrategy), falling back to
// Default if name is unknown or empty.
func (r *Registry) Get(name string) Strategy {
	if name == "" {
		return Default
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.named[name]; ok {
		return s
	}
	return Default
}

// Has reports whether name has been explicitly set.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.named[name]
	return ok
}
