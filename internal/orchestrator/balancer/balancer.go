// Package balancer maintains the backend host set with per-profile load
// counters and selects a host for new media elements (§4.2). It is
// adapted from the teacher's mediaclient.Pool: the round-robin cursor,
// health-check loop, and online/offline bookkeeping survive; the gRPC
// connection management itself now lives one layer down, in
// adapter/grpcadapter, since the balancer's job here is host *selection*,
// not transport.
package balancer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
)

var ErrNoOnlineHosts = errors.New("balancer: no online hosts available")
var ErrHostNotFound = errors.New("balancer: host not found")

// Prober checks whether a host is reachable. Implementations live next to
// the adapter that actually knows how to reach the host (e.g.
// grpcadapter's health RPC).
type Prober interface {
	Probe(hostID string) bool
}

// Config controls health-check cadence.
type Config struct {
	HealthCheckInterval time.Duration
	UnhealthyThreshold  int
	HealthyThreshold    int
}

func DefaultConfig() Config {
	return Config{
		HealthCheckInterval: 5 * time.Second,
		UnhealthyThreshold:  3,
		HealthyThreshold:    2,
	}
}

// Balancer is the host registry plus selection policy.
type Balancer struct {
	mu      sync.RWMutex
	hosts   []*Host
	byID    map[string]*Host
	policy  Policy
	prober  Prober
	cfg     Config
	bus     *eventbus.Bus
	builder *eventbus.Builder

	failCount    map[string]int
	successCount map[string]int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a balancer with the given selection policy. If prober is
// non-nil, a health-check loop is started (it publishes offline events
// only when bus is also non-nil); pass a nil prober to run without health
// checking (e.g. in tests).
func New(policy Policy, prober Prober, bus *eventbus.Bus, cfg Config) *Balancer {
	b := &Balancer{
		byID:         make(map[string]*Host),
		policy:       policy,
		prober:       prober,
		cfg:          cfg,
		bus:          bus,
		builder:      eventbus.NewBuilder("balancer"),
		failCount:    make(map[string]int),
		successCount: make(map[string]int),
		stopCh:       make(chan struct{}),
	}
	if prober != nil {
		b.wg.Add(1)
		go b.healthLoop()
	}
	return b
}

// AddHost registers a host with the balancer.
func (b *Balancer) AddHost(h *Host) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hosts = append(b.hosts, h)
	b.byID[h.ID] = h
}

// GetHost selects a host for profile using the configured policy (§4.2).
func (b *Balancer) GetHost(profile string) (*Host, error) {
	b.mu.RLock()
	hosts := make([]*Host, len(b.hosts))
	copy(hosts, b.hosts)
	b.mu.RUnlock()

	return b.policy.Select(profile, hosts)
}

// RetrieveHost is a direct lookup by ID.
func (b *Balancer) RetrieveHost(id string) (*Host, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.byID[id]
	if !ok {
		return nil, ErrHostNotFound
	}
	return h, nil
}

// IncrementHostStreams bumps the per-profile load counter for a host.
func (b *Balancer) IncrementHostStreams(hostID, profile string) {
	if h, err := b.RetrieveHost(hostID); err == nil {
		h.incr(profile)
	}
}

// DecrementHostStreams decrements the per-profile load counter for a host.
func (b *Balancer) DecrementHostStreams(hostID, profile string) {
	if h, err := b.RetrieveHost(hostID); err == nil {
		h.decr(profile)
	}
}

func (b *Balancer) healthLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.checkAll()
		}
	}
}

func (b *Balancer) checkAll() {
	b.mu.RLock()
	hosts := make([]*Host, len(b.hosts))
	copy(hosts, b.hosts)
	b.mu.RUnlock()

	for _, h := range hosts {
		healthy := b.prober.Probe(h.ID)
		b.mu.Lock()
		if healthy {
			b.failCount[h.ID] = 0
			b.successCount[h.ID]++
			if !h.Online() && b.successCount[h.ID] >= b.cfg.HealthyThreshold {
				h.setOnline(true)
				slog.Info("balancer: host marked online", "host", h.ID)
			}
		} else {
			b.successCount[h.ID] = 0
			b.failCount[h.ID]++
			if h.Online() && b.failCount[h.ID] >= b.cfg.UnhealthyThreshold {
				h.setOnline(false)
				slog.Warn("balancer: host marked offline", "host", h.ID)
				if b.bus != nil {
					b.bus.Publish(b.builder.MediaServerOfflineEvent(h.ID).Build())
				}
			}
		}
		b.mu.Unlock()
	}
}

// Close stops the health-check loop.
func (b *Balancer) Close() {
	close(b.stopCh)
	b.wg.Wait()
}
