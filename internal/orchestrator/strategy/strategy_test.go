package strategy

import "testing"

func TestGetUnknownNameFallsBackToDefault(t *testing.T) {
	r := NewRegistry()
	s := r.Get("does-not-exist")
	if s.Name != Default.Name {
		t.Fatalf("Get(unknown) = %q, want %q", s.Name, Default.Name)
	}
}

func TestSetIsVisibleToAllResolversImmediately(t *testing.T) {
	r := NewRegistry()
	r.Set("lecture", Strategy{AutoAcceptRenegotiation: true, DefaultFloorPolicy: FloorPolicyManual})

	first := r.Get("lecture")
	if !first.AutoAcceptRenegotiation {
		t.Fatal("expected AutoAcceptRenegotiation true after Set")
	}

	r.Set("lecture", Strategy{AutoAcceptRenegotiation: false, DefaultFloorPolicy: FloorPolicyManual})
	second := r.Get("lecture")
	if second.AutoAcceptRenegotiation {
		t.Fatal("expected update to be visible to a fresh Get call")
	}
}

func TestHas(t *testing.T) {
	r := NewRegistry()
	if r.Has("lecture") {
		t.Fatal("expected lecture strategy to be unset initially")
	}
	r.Set("lecture", Strategy{})
	if !r.Has("lecture") {
		t.Fatal("expected lecture strategy to be set after Set")
	}
}
