// Package config loads the orchestrator's process configuration from
// flags with environment-variable overrides, the way the teacher's
// services/signaling/config does for the SIP signaling process.
package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting cmd/orchestrator needs to wire a
// Balancer, an Adapter (memory or gRPC-backed), an eventbus.Bus, and a
// Controller.
type Config struct {
	// NodeID identifies this orchestrator instance in emitted events
	// (eventbus.Builder) and log lines.
	NodeID string

	// ListenAddr is where the client-facing control API would bind, if
	// one is added; carried for parity with the teacher's BindAddr even
	// though SPEC_FULL.md's client API (§6) is an in-process method
	// surface, not a listener.
	ListenAddr string
	// AdvertiseAddr is the address reported to peers/clients.
	AdvertiseAddr string

	LogLevel string

	// BackendMode selects the Adapter implementation: "memory" (the
	// in-process reference adapter) or "grpc" (dials BackendHosts).
	BackendMode string
	// BackendHosts is the comma-separated id=address list of backend
	// media-server hosts the balancer selects among, e.g.
	// "host-1=10.0.0.1:9090,host-2=10.0.0.2:9090".
	BackendHosts []HostAddr

	// BalancerPolicy selects the balancer.Policy: "roundrobin" or
	// "affinity".
	BalancerPolicy string

	GRPCConnectTimeout    time.Duration
	GRPCKeepaliveInterval time.Duration
	GRPCKeepaliveTimeout  time.Duration

	HealthCheckInterval time.Duration
	UnhealthyThreshold  int
	HealthyThreshold    int
}

// HostAddr is one parsed entry of BackendHosts.
type HostAddr struct {
	ID      string
	Address string
}

// Load parses flags, applies environment-variable overrides (matching
// the teacher's PORT/BIND/ADVERTISE/LOGLEVEL pattern), and returns a
// ready-to-use Config.
func Load() *Config {
	nodeID := flag.String("node-id", "orchestrator-1", "unique identifier for this orchestrator instance")
	listenAddr := flag.String("listen", ":8090", "control API listen address")
	advertiseAddr := flag.String("advertise", "", "address advertised to peers (defaults to primary interface IP)")
	logLevel := flag.String("loglevel", "info", "log level: debug, info, warn, error")
	backendMode := flag.String("backend-mode", "memory", "backend adapter: memory or grpc")
	backendHosts := flag.String("backend-hosts", "", "comma-separated id=address backend host list, e.g. host-1=10.0.0.1:9090")
	balancerPolicy := flag.String("balancer-policy", "roundrobin", "balancer host-selection policy: roundrobin or affinity")
	grpcConnectTimeout := flag.Duration("grpc-connect-timeout", 10*time.Second, "gRPC dial timeout per backend host")
	grpcKeepaliveInterval := flag.Duration("grpc-keepalive-interval", 30*time.Second, "gRPC keepalive ping interval")
	grpcKeepaliveTimeout := flag.Duration("grpc-keepalive-timeout", 10*time.Second, "gRPC keepalive ack timeout")
	healthCheckInterval := flag.Duration("health-check-interval", 5*time.Second, "balancer host health-check cadence")
	unhealthyThreshold := flag.Int("unhealthy-threshold", 3, "consecutive failed probes before a host is marked offline")
	healthyThreshold := flag.Int("healthy-threshold", 2, "consecutive successful probes before a host is marked online again")

	flag.Parse()

	cfg := &Config{
		NodeID:                *nodeID,
		ListenAddr:            *listenAddr,
		AdvertiseAddr:         *advertiseAddr,
		LogLevel:              *logLevel,
		BackendMode:           *backendMode,
		BackendHosts:          parseHostList(*backendHosts),
		BalancerPolicy:        *balancerPolicy,
		GRPCConnectTimeout:    *grpcConnectTimeout,
		GRPCKeepaliveInterval: *grpcKeepaliveInterval,
		GRPCKeepaliveTimeout:  *grpcKeepaliveTimeout,
		HealthCheckInterval:   *healthCheckInterval,
		UnhealthyThreshold:    *unhealthyThreshold,
		HealthyThreshold:      *healthyThreshold,
	}

	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ADVERTISE"); v != "" {
		cfg.AdvertiseAddr = v
	} else if cfg.AdvertiseAddr == "" {
		cfg.AdvertiseAddr = getPrimaryInterfaceIP()
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BACKEND_MODE"); v != "" {
		cfg.BackendMode = v
	}
	if v := os.Getenv("BACKEND_HOSTS"); v != "" {
		cfg.BackendHosts = parseHostList(v)
	}
	if v := os.Getenv("BALANCER_POLICY"); v != "" {
		cfg.BalancerPolicy = v
	}
	if v := os.Getenv("UNHEALTHY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UnhealthyThreshold = n
		}
	}

	return cfg
}

// parseHostList parses a comma-separated id=address list into HostAddrs,
// skipping malformed entries.
func parseHostList(s string) []HostAddr {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	hosts := make([]HostAddr, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idAddr := strings.SplitN(p, "=", 2)
		if len(idAddr) != 2 || idAddr[0] == "" || idAddr[1] == "" {
			continue
		}
		hosts = append(hosts, HostAddr{ID: idAddr[0], Address: idAddr[1]})
	}
	return hosts
}

// getPrimaryInterfaceIP detects the primary network interface IP address.
func getPrimaryInterfaceIP() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "127.0.0.1"
}
