package balancer

import "sync"

// Host is a single backend media-server instance. Load is tracked
// per-profile and mutated only through Balancer's
// Increment/DecrementHostStreams (§4.2) -- nothing else should write to
// it directly, the way the teacher's poolMember kept health/drain state
// behind atomics owned by the Pool.
type Host struct {
	ID      string
	IP      string
	online  bool
	profile string // affinity tag, empty means "any profile"

	mu   sync.Mutex
	load map[string]int
}

// NewHost creates an online host with zero load counters.
func NewHost(id, ip, profile string) *Host {
	return &Host{ID: id, IP: ip, profile: profile, online: true, load: make(map[string]int)}
}

func (h *Host) Online() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online
}

func (h *Host) setOnline(online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online = online
}

func (h *Host) LoadFor(profile string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load[profile]
}

func (h *Host) totalLoad() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, n := range h.load {
		total += n
	}
	return total
}

func (h *Host) incr(profile string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load[profile]++
}

func (h *Host) decr(profile string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.load[profile] > 0 {
		h.load[profile]--
	}
}

// AffinityProfile returns the media profile this host is tagged for, or
// "" if it serves any profile.
func (h *Host) AffinityProfile() string { return h.profile }
