package config

import "testing"

func TestParseHostListSkipsMalformedEntries(t *testing.T) {
	hosts := parseHostList("host-1=10.0.0.1:9090, host-2=10.0.0.2:9090,malformed,  ,host-3=")
	if len(hosts) != 2 {
		t.Fatalf("expected 2 valid hosts, got %d: %+v", len(hosts), hosts)
	}
	if hosts[0] != (HostAddr{ID: "host-1", Address: "10.0.0.1:9090"}) {
		t.Fatalf("unexpected first host: %+v", hosts[0])
	}
	if hosts[1] != (HostAddr{ID: "host-2", Address: "10.0.0.2:9090"}) {
		t.Fatalf("unexpected second host: %+v", hosts[1])
	}
}

func TestParseHostListEmptyReturnsNil(t *testing.T) {
	if hosts := parseHostList(""); hosts != nil {
		t.Fatalf("expected nil for empty input, got %+v", hosts)
	}
}

func TestGetPrimaryInterfaceIPNeverPanics(t *testing.T) {
	ip := getPrimaryInterfaceIP()
	if ip == "" {
		t.Fatal("expected a non-empty fallback IP")
	}
}
