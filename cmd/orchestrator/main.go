package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sebas/orchestrator/internal/banner"
	"github.com/sebas/orchestrator/internal/config"
	"github.com/sebas/orchestrator/internal/logger"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/grpcadapter"
	"github.com/sebas/orchestrator/internal/orchestrator/adapter/memadapter"
	"github.com/sebas/orchestrator/internal/orchestrator/balancer"
	"github.com/sebas/orchestrator/internal/orchestrator/controller"
	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/id"
)

func main() {
	cfg := config.Load()

	banner.Print("ORCHESTRATOR", []banner.ConfigLine{
		{Label: "Node ID", Value: cfg.NodeID},
		{Label: "Advertise", Value: cfg.AdvertiseAddr},
		{Label: "Backend Mode", Value: cfg.BackendMode},
		{Label: "Backend Hosts", Value: fmt.Sprintf("%d configured", len(cfg.BackendHosts))},
		{Label: "Balancer Policy", Value: cfg.BalancerPolicy},
		{Label: "Log Level", Value: cfg.LogLevel},
	})

	logger.InitLogger(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	bus := eventbus.NewBus()

	a, closeAdapters, err := buildAdapter(cfg, bus)
	if err != nil {
		slog.Error("failed to build adapter", "error", err)
		os.Exit(1)
	}
	defer closeAdapters()

	ctrl := controller.New(controller.Config{
		Adapter: a,
		Bus:     bus,
		NodeID:  cfg.NodeID,
		Logger:  slog.Default(),
	})

	run(ctrl, bus, cfg)
}

// buildAdapter constructs the adapter.Adapter this node negotiates
// through, plus a balancer. In "grpc" mode the balancer is seeded from
// cfg.BackendHosts, health-probes them, and picks the initial host; its
// MediaServerOffline events drive PipelineRegistry.PurgeHost (§4.1, §4.2).
// In "memory" mode a single local host stands in for a backend fleet: the
// PurgeHost subscription is wired, but the balancer runs no health loop
// and no host is selected through it.
func buildAdapter(cfg *config.Config, bus *eventbus.Bus) (adapter.Adapter, func(), error) {
	pipelines := adapter.NewPipelineRegistry(func() string { return id.New("pipe") })

	if cfg.BackendMode != "grpc" {
		mem := memadapter.New("local")
		bal := newBalancer(cfg, nil, bus)
		bal.AddHost(balancer.NewHost("local", "127.0.0.1", ""))
		subscribePurgeOnOffline(bus, pipelines)

		composed := adapter.NewComposed(mem, mem, mem, pipelines, bal, func(string) string { return "127.0.0.1" })
		return composed, func() { bal.Close(); _ = mem.Close() }, nil
	}

	if len(cfg.BackendHosts) == 0 {
		return nil, nil, fmt.Errorf("backend-mode=grpc requires at least one --backend-hosts entry")
	}

	grpcCfg := grpcadapter.Config{
		ConnectTimeout:    cfg.GRPCConnectTimeout,
		KeepaliveInterval: cfg.GRPCKeepaliveInterval,
		KeepaliveTimeout:  cfg.GRPCKeepaliveTimeout,
	}

	byHost := make(map[string]*grpcadapter.Adapter, len(cfg.BackendHosts))
	byIP := make(map[string]string, len(cfg.BackendHosts))
	for _, h := range cfg.BackendHosts {
		hostCfg := grpcCfg
		hostCfg.Address = h.Address
		conn, err := grpcadapter.New(h.ID, hostCfg)
		if err != nil {
			for _, c := range byHost {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("dial backend host %s (%s): %w", h.ID, h.Address, err)
		}
		byHost[h.ID] = conn
		byIP[h.ID] = h.Address
	}

	closeAll := func() {
		for _, c := range byHost {
			_ = c.Close()
		}
	}

	bal := newBalancer(cfg, &hostProber{byHost: byHost}, bus)
	for _, h := range cfg.BackendHosts {
		bal.AddHost(balancer.NewHost(h.ID, h.Address, ""))
	}
	subscribePurgeOnOffline(bus, pipelines)

	main, err := bal.GetHost("")
	if err != nil {
		closeAll()
		bal.Close()
		return nil, nil, fmt.Errorf("select initial backend host: %w", err)
	}
	picked := byHost[main.ID]

	composed := adapter.NewComposed(picked, picked, picked, pipelines, bal, func(hostID string) string { return byIP[hostID] })
	return composed, func() { bal.Close(); closeAll() }, nil
}

// hostProber dispatches a balancer health probe to the grpcadapter.Adapter
// that actually owns the connection for the given host.
type hostProber struct {
	byHost map[string]*grpcadapter.Adapter
}

func (p *hostProber) Probe(hostID string) bool {
	a, ok := p.byHost[hostID]
	if !ok {
		return false
	}
	return a.Probe(hostID)
}

func newBalancer(cfg *config.Config, prober balancer.Prober, bus *eventbus.Bus) *balancer.Balancer {
	var policy balancer.Policy
	switch cfg.BalancerPolicy {
	case "affinity":
		policy = balancer.NewAffinityPolicy()
	default:
		policy = balancer.NewRoundRobinPolicy()
	}
	return balancer.New(policy, prober, bus, balancer.Config{
		HealthCheckInterval: cfg.HealthCheckInterval,
		UnhealthyThreshold:  cfg.UnhealthyThreshold,
		HealthyThreshold:    cfg.HealthyThreshold,
	})
}

// subscribePurgeOnOffline releases every pipeline on a host the instant
// the balancer marks it offline, without any backend round-trip (§4.1,
// §9 singleton host-registry note).
func subscribePurgeOnOffline(bus *eventbus.Bus, pipelines *adapter.PipelineRegistry) {
	bus.Subscribe(eventbus.MediaServerOffline, eventbus.GlobalIdentifier, func(ev eventbus.Event) {
		pipelines.PurgeHost(ev.Identifier)
	})
}

func run(ctrl *controller.Controller, bus *eventbus.Bus, cfg *config.Config) {
	slog.Info("starting orchestrator", "node_id", cfg.NodeID, "backend_mode", cfg.BackendMode)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("received signal, shutting down", "signal", sig)
	cancel()

	time.Sleep(1 * time.Second)
}
