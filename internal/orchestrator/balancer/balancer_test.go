package balancer

import "testing"

func TestRoundRobinCyclesOnlineHosts(t *testing.T) {
	b := New(NewRoundRobinPolicy(), nil, nil, DefaultConfig())
	b.AddHost(NewHost("h1", "10.0.0.1", ""))
	b.AddHost(NewHost("h2", "10.0.0.2", ""))

	seen := make(map[string]int)
	for i := 0; i < 4; i++ {
		h, err := b.GetHost("MAIN")
		if err != nil {
			t.Fatalf("GetHost error: %v", err)
		}
		seen[h.ID]++
	}
	if seen["h1"] == 0 || seen["h2"] == 0 {
		t.Fatalf("round-robin did not visit both hosts: %v", seen)
	}
}

func TestAffinityPolicyPrefersTaggedHost(t *testing.T) {
	b := New(NewAffinityPolicy(), nil, nil, DefaultConfig())
	b.AddHost(NewHost("h1", "10.0.0.1", "AUDIO"))
	b.AddHost(NewHost("h2", "10.0.0.2", "CONTENT"))

	h, err := b.GetHost("CONTENT")
	if err != nil {
		t.Fatalf("GetHost error: %v", err)
	}
	if h.ID != "h2" {
		t.Fatalf("GetHost(CONTENT) = %s, want h2", h.ID)
	}
}

func TestAffinityPolicyFallsBackToLeastLoaded(t *testing.T) {
	b := New(NewAffinityPolicy(), nil, nil, DefaultConfig())
	b.AddHost(NewHost("h1", "10.0.0.1", ""))
	b.AddHost(NewHost("h2", "10.0.0.2", ""))

	b.IncrementHostStreams("h1", "MAIN")
	b.IncrementHostStreams("h1", "MAIN")

	h, err := b.GetHost("MAIN")
	if err != nil {
		t.Fatalf("GetHost error: %v", err)
	}
	if h.ID != "h2" {
		t.Fatalf("GetHost(MAIN) = %s, want h2 (least loaded)", h.ID)
	}
}

func TestRetrieveHostNotFound(t *testing.T) {
	b := New(NewRoundRobinPolicy(), nil, nil, DefaultConfig())
	if _, err := b.RetrieveHost("missing"); err != ErrHostNotFound {
		t.Fatalf("RetrieveHost(missing) error = %v, want ErrHostNotFound", err)
	}
}

func TestGetHostNoOnlineHosts(t *testing.T) {
	b := New(NewRoundRobinPolicy(), nil, nil, DefaultConfig())
	if _, err := b.GetHost("MAIN"); err != ErrNoOnlineHosts {
		t.Fatalf("GetHost error = %v, want ErrNoOnlineHosts", err)
	}
}

func TestIncrementDecrementHostStreams(t *testing.T) {
	b := New(NewRoundRobinPolicy(), nil, nil, DefaultConfig())
	h := NewHost("h1", "10.0.0.1", "")
	b.AddHost(h)

	b.IncrementHostStreams("h1", "AUDIO")
	b.IncrementHostStreams("h1", "AUDIO")
	if got := h.LoadFor("AUDIO"); got != 2 {
		t.Fatalf("LoadFor(AUDIO) = %d, want 2", got)
	}

	b.DecrementHostStreams("h1", "AUDIO")
	if got := h.LoadFor("AUDIO"); got != 1 {
		t.Fatalf("LoadFor(AUDIO) = %d, want 1", got)
	}
}
