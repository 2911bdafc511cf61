package balancer

import "sync/atomic"

// Policy selects a host for a profile from the given candidate set. The two
// implementations below are composed the way the teacher composed its
// SIP-target resolvers (a small named-strategy interface tried by the
// balancer), generalized here to a name -> Policy table instead of a
// tried-in-order chain since host selection picks exactly one policy, not
// a fallback sequence.
type Policy interface {
	Select(profile string, hosts []*Host) (*Host, error)
}

// RoundRobinPolicy cycles through all online hosts regardless of profile.
type RoundRobinPolicy struct {
	cursor atomic.Uint64
}

func NewRoundRobinPolicy() *RoundRobinPolicy { return &RoundRobinPolicy{} }

func (p *RoundRobinPolicy) Select(profile string, hosts []*Host) (*Host, error) {
	online := onlineHosts(hosts)
	if len(online) == 0 {
		return nil, ErrNoOnlineHosts
	}
	idx := p.cursor.Add(1) % uint64(len(online))
	return online[idx], nil
}

// AffinityPolicy prefers hosts tagged for the requested profile, falling
// back to the least-loaded online host of any profile when none match.
type AffinityPolicy struct{}

func NewAffinityPolicy() *AffinityPolicy { return &AffinityPolicy{} }

func (p *AffinityPolicy) Select(profile string, hosts []*Host) (*Host, error) {
	online := onlineHosts(hosts)
	if len(online) == 0 {
		return nil, ErrNoOnlineHosts
	}

	var tagged []*Host
	for _, h := range online {
		if h.AffinityProfile() == profile {
			tagged = append(tagged, h)
		}
	}
	pool := tagged
	if len(pool) == 0 {
		pool = online
	}

	least := pool[0]
	for _, h := range pool[1:] {
		if h.totalLoad() < least.totalLoad() {
			least = h
		}
	}
	return least, nil
}

func onlineHosts(hosts []*Host) []*Host {
	out := make([]*Host, 0, len(hosts))
	for _, h := range hosts {
		if h.Online() {
			out = append(out, h)
		}
	}
	return out
}
