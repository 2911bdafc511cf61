// Package grpcadapter drives a remote media-server backend over gRPC. The
// teacher's own gRPC client (services/signaling/transport/grpc.go) called
// through a generated pkg/rtpmanager/v1 client that exists only as a
// build-time dependency in that repo, not as retrievable source; rather
// than fabricate generated code for a .proto this module never saw, each
// RPC here is issued with grpc.ClientConn.Invoke against a well-known
// method name, using google.golang.org/protobuf's structpb.Struct as a
// generic, schema-free request/response envelope. This keeps both the
// grpc and protobuf dependencies genuinely exercised (see DESIGN.md).
package grpcadapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pion/sdp/v3"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
)

const serviceMethodPrefix = "/orchestrator.backend.v1.MediaBackend/"

// Config controls the gRPC connection to the backend.
type Config struct {
	Address           string
	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    10 * time.Second,
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// Adapter drives one backend host over gRPC.
type Adapter struct {
	host string

	mu    sync.RWMutex
	conn  *grpc.ClientConn
	ready bool

	events chan adapter.ElementEvent
}

func New(host string, cfg Config) (*Adapter, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveInterval,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcadapter: dial %s: %w", cfg.Address, err)
	}

	a := &Adapter{
		host:   host,
		conn:   conn,
		ready:  true,
		events: make(chan adapter.ElementEvent, 64),
	}
	slog.Info("grpcadapter: connected to backend", "host", host, "address", cfg.Address)
	return a, nil
}

// invoke issues a generic RPC: req/resp are built from plain maps and
// carried as structpb.Struct, since there's no generated client for this
// backend's .proto in this module (see package doc).
func (a *Adapter) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	reqStruct, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("grpcadapter: encode request: %w", err)
	}

	resp := &structpb.Struct{}
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()

	if err := conn.Invoke(ctx, serviceMethodPrefix+method, reqStruct, resp); err != nil {
		return nil, fmt.Errorf("grpcadapter: %s: %w", method, err)
	}
	return resp, nil
}

func (a *Adapter) CreateMediaElement(ctx context.Context, roomID string, t adapter.ElementType, opts adapter.CreateOptions) (string, string, error) {
	resp, err := a.invoke(ctx, "CreateMediaElement", map[string]any{
		"roomId": roomID,
		"type":   string(t),
		"params": opts.Params,
	})
	if err != nil {
		return "", "", err
	}
	return resp.Fields["elementId"].GetStringValue(), a.host, nil
}

func (a *Adapter) Negotiate(ctx context.Context, roomID, userID, sessionID string, descriptor *sdp.SessionDescription, t adapter.ElementType, opts adapter.CreateOptions) ([]adapter.MediaUnitHandle, error) {
	var sdpText string
	if descriptor != nil {
		if raw, err := descriptor.Marshal(); err == nil {
			sdpText = string(raw)
		}
	}

	resp, err := a.invoke(ctx, "Negotiate", map[string]any{
		"roomId": roomID, "userId": userID, "sessionId": sessionID,
		"sdp": sdpText, "type": string(t), "profile": opts.MediaProfile,
	})
	if err != nil {
		return nil, err
	}

	elementID := resp.Fields["elementId"].GetStringValue()
	answerText := resp.Fields["sdp"].GetStringValue()

	var local *sdp.SessionDescription
	if answerText != "" {
		local = &sdp.SessionDescription{}
		if err := local.Unmarshal([]byte(answerText)); err != nil {
			return nil, fmt.Errorf("grpcadapter: decode negotiate answer: %w", err)
		}
	}

	return []adapter.MediaUnitHandle{{
		ElementID:       elementID,
		Host:            a.host,
		LocalDescriptor: local,
	}}, nil
}

func (a *Adapter) ProcessOffer(ctx context.Context, elementID string, offer *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	raw, err := offer.Marshal()
	if err != nil {
		return nil, fmt.Errorf("grpcadapter: encode offer: %w", err)
	}
	resp, err := a.invoke(ctx, "ProcessOffer", map[string]any{"elementId": elementID, "sdp": string(raw)})
	if err != nil {
		return nil, err
	}
	answer := &sdp.SessionDescription{}
	if err := answer.Unmarshal([]byte(resp.Fields["sdp"].GetStringValue())); err != nil {
		return nil, fmt.Errorf("grpcadapter: decode answer: %w", err)
	}
	return answer, nil
}

func (a *Adapter) ProcessAnswer(ctx context.Context, elementID string, answer *sdp.SessionDescription) error {
	raw, err := answer.Marshal()
	if err != nil {
		return fmt.Errorf("grpcadapter: encode answer: %w", err)
	}
	_, err = a.invoke(ctx, "ProcessAnswer", map[string]any{"elementId": elementID, "sdp": string(raw)})
	return err
}

func (a *Adapter) GenerateOffer(ctx context.Context, elementID string, filters adapter.CreateOptions) (*sdp.SessionDescription, error) {
	resp, err := a.invoke(ctx, "GenerateOffer", map[string]any{"elementId": elementID, "filters": filters.Params})
	if err != nil {
		return nil, err
	}
	offer := &sdp.SessionDescription{}
	if err := offer.Unmarshal([]byte(resp.Fields["sdp"].GetStringValue())); err != nil {
		return nil, fmt.Errorf("grpcadapter: decode generated offer: %w", err)
	}
	return offer, nil
}

func (a *Adapter) GatherCandidates(ctx context.Context, elementID string) ([]string, error) {
	resp, err := a.invoke(ctx, "GatherCandidates", map[string]any{"elementId": elementID})
	if err != nil {
		return nil, err
	}
	list := resp.Fields["candidates"].GetListValue()
	if list == nil {
		return nil, nil
	}
	out := make([]string, 0, len(list.Values))
	for _, v := range list.Values {
		out = append(out, v.GetStringValue())
	}
	return out, nil
}

func (a *Adapter) AddIceCandidate(ctx context.Context, elementID string, candidate string) error {
	_, err := a.invoke(ctx, "AddIceCandidate", map[string]any{"elementId": elementID, "candidate": candidate})
	return err
}

func (a *Adapter) Connect(ctx context.Context, srcID, sinkID string, kind adapter.ConnectKind) error {
	_, err := a.invoke(ctx, "Connect", map[string]any{"srcId": srcID, "sinkId": sinkID, "kind": int64(kind)})
	return err
}

func (a *Adapter) Disconnect(ctx context.Context, srcID, sinkID string, kind adapter.ConnectKind) error {
	_, err := a.invoke(ctx, "Disconnect", map[string]any{"srcId": srcID, "sinkId": sinkID, "kind": int64(kind)})
	return err
}

func (a *Adapter) StartRecording(ctx context.Context, elementID, path string, opts adapter.CreateOptions) error {
	_, err := a.invoke(ctx, "StartRecording", map[string]any{"elementId": elementID, "path": path, "params": opts.Params})
	return err
}

func (a *Adapter) StopRecording(ctx context.Context, elementID string) error {
	_, err := a.invoke(ctx, "StopRecording", map[string]any{"elementId": elementID})
	return err
}

func (a *Adapter) SetVideoFloor(ctx context.Context, elementID, floorElementID string) error {
	_, err := a.invoke(ctx, "SetVideoFloor", map[string]any{"elementId": elementID, "floorElementId": floorElementID})
	return err
}

func (a *Adapter) SetLayoutType(ctx context.Context, elementID string, layoutID string) error {
	_, err := a.invoke(ctx, "SetLayoutType", map[string]any{"elementId": elementID, "layoutId": layoutID})
	return err
}

func (a *Adapter) Stop(ctx context.Context, roomID string, t adapter.ElementType, elementID string) error {
	_, err := a.invoke(ctx, "Stop", map[string]any{"roomId": roomID, "type": string(t), "elementId": elementID})
	return err
}

func (a *Adapter) Events() <-chan adapter.ElementEvent { return a.events }

func (a *Adapter) Ready() bool {
	a.mu.RLock()
	ready, conn := a.ready, a.conn
	a.mu.RUnlock()
	if !ready || conn == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := a.invoke(ctx, "Health", map[string]any{})
	return err == nil
}

// Probe satisfies balancer.Prober so a Balancer can health-check this
// adapter's backend directly; hostID is unused since one Adapter always
// drives exactly one host.
func (a *Adapter) Probe(hostID string) bool {
	return a.Ready()
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ready = false
	close(a.events)
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
