package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/sdp/v3"
	"golang.org/x/sync/errgroup"

	"github.com/sebas/orchestrator/internal/orchestrator/sdputil"
)

// StreamCounter receives per-host load bookkeeping as cross-host
// transposer pairs are created and released (§4.1 point 1: "increment
// per-host stream counters on both hosts"; point 3: "decrement on source
// release"). balancer.Balancer satisfies this.
type StreamCounter interface {
	IncrementHostStreams(hostID, profile string)
	DecrementHostStreams(hostID, profile string)
}

// elementLoc is where CreateMediaElement/Negotiate placed a backend
// element, remembered so Stop can release the right (room, host)
// pipeline without the caller having to resupply it (§4.1 Pipeline
// lifecycle).
type elementLoc struct {
	roomID string
	host   string
}

// Composed is an adapter that routes different media profiles to
// different physical backends (§4.1 "Composed adapters"): MAIN video,
// AUDIO, and CONTENT (screen-share) each resolve to their own delegate
// Adapter. A single (non-composed) deployment sets all three delegates to
// the same Adapter, in which case negotiate degenerates to one call.
type Composed struct {
	Main    Adapter
	Audio   Adapter
	Content Adapter

	pipelines   *PipelineRegistry
	transposers *TransposerRegistry
	streams     StreamCounter
	hostIP      func(host string) string
	events      chan ElementEvent

	mu       sync.Mutex
	elements map[string]elementLoc // elementID -> (roomID, host)
}

// NewComposed wires the three per-profile delegates plus the shared
// pipeline/transposer bookkeeping. streams may be nil (e.g. in tests),
// in which case per-host stream counting is simply skipped.
func NewComposed(main, audio, content Adapter, pipelines *PipelineRegistry, streams StreamCounter, hostIP func(string) string) *Composed {
	return &Composed{
		Main: main, Audio: audio, Content: content,
		pipelines:   pipelines,
		transposers: NewTransposerRegistry(),
		streams:     streams,
		hostIP:      hostIP,
		events:      make(chan ElementEvent, 64),
		elements:    make(map[string]elementLoc),
	}
}

func (c *Composed) delegateFor(kind sdputil.MediaKind) Adapter {
	switch kind {
	case sdputil.KindAudio:
		return c.Audio
	case sdputil.KindContent:
		return c.Content
	default:
		return c.Main
	}
}

// trackElement registers a newly created element against its (room, host)
// pipeline, coalescing the pipeline's own creation the same way a direct
// CreateMediaElement call would (§4.1 Pipeline lifecycle, §8 invariant
// (b) activeElements == the element count on that pipeline).
func (c *Composed) trackElement(elementID, roomID, host string) {
	if c.pipelines != nil {
		_, _ = c.pipelines.GetOrCreate(roomID, host, func() error { return nil })
		c.pipelines.BumpElement(roomID, host)
	}
	c.mu.Lock()
	c.elements[elementID] = elementLoc{roomID: roomID, host: host}
	c.mu.Unlock()
}

// untrackElement releases elementID's pipeline slot, using the (room,
// host) recorded at track time rather than requiring the caller to know
// it (Stop's own signature carries no host parameter).
func (c *Composed) untrackElement(elementID string) {
	c.mu.Lock()
	loc, ok := c.elements[elementID]
	if ok {
		delete(c.elements, elementID)
	}
	c.mu.Unlock()
	if ok && c.pipelines != nil {
		c.pipelines.ReleaseElement(loc.roomID, loc.host)
	}
}

// Negotiate fan-splits the remote descriptor per media profile (audio to
// the audio adapter, main video to the main adapter, content -- the
// a=content:slides section -- to the content adapter), calling each
// delegate in parallel per §4.4 ("call negotiate on each media-profile
// adapter in parallel with the corresponding partial remote SDP"), and
// collects the resulting media units. If Main == Audio == Content (a
// non-composed deployment), or there is no remote descriptor, it makes a
// single call on Main with the whole descriptor.
func (c *Composed) Negotiate(ctx context.Context, roomID, userID, sessionID string, descriptor *sdp.SessionDescription, t ElementType, opts CreateOptions) ([]MediaUnitHandle, error) {
	if descriptor == nil || (c.Main == c.Audio && c.Main == c.Content) {
		units, err := c.Main.Negotiate(ctx, roomID, userID, sessionID, descriptor, t, opts)
		if err != nil {
			return nil, err
		}
		c.trackUnits(roomID, units)
		return units, nil
	}

	var results [3][]MediaUnitHandle
	g, gCtx := errgroup.WithContext(ctx)

	if audio, ok := sdputil.GetAudioSDP(descriptor); ok {
		g.Go(func() error {
			u, err := c.Audio.Negotiate(gCtx, roomID, userID, sessionID, audio, t, opts)
			if err != nil {
				return fmt.Errorf("adapter: audio negotiate: %w", err)
			}
			results[0] = u
			return nil
		})
	}
	if video, ok := sdputil.GetVideoSDP(descriptor); ok {
		g.Go(func() error {
			u, err := c.Main.Negotiate(gCtx, roomID, userID, sessionID, video, t, opts)
			if err != nil {
				return fmt.Errorf("adapter: video negotiate: %w", err)
			}
			results[1] = u
			return nil
		})
	}
	if content, ok := sdputil.GetContentSDP(descriptor); ok {
		g.Go(func() error {
			u, err := c.Content.Negotiate(gCtx, roomID, userID, sessionID, content, t, opts)
			if err != nil {
				return fmt.Errorf("adapter: content negotiate: %w", err)
			}
			results[2] = u
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var units []MediaUnitHandle
	for _, r := range results {
		units = append(units, r...)
	}
	c.trackUnits(roomID, units)
	return units, nil
}

func (c *Composed) trackUnits(roomID string, units []MediaUnitHandle) {
	for _, u := range units {
		c.trackElement(u.ElementID, roomID, u.Host)
	}
}

func (c *Composed) CreateMediaElement(ctx context.Context, roomID string, t ElementType, opts CreateOptions) (string, string, error) {
	elementID, host, err := c.Main.CreateMediaElement(ctx, roomID, t, opts)
	if err != nil {
		return "", "", err
	}
	c.trackElement(elementID, roomID, host)
	return elementID, host, nil
}

func (c *Composed) ProcessOffer(ctx context.Context, elementID string, offer *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	return c.Main.ProcessOffer(ctx, elementID, offer)
}

func (c *Composed) ProcessAnswer(ctx context.Context, elementID string, answer *sdp.SessionDescription) error {
	return c.Main.ProcessAnswer(ctx, elementID, answer)
}

func (c *Composed) GenerateOffer(ctx context.Context, elementID string, filters CreateOptions) (*sdp.SessionDescription, error) {
	return c.Main.GenerateOffer(ctx, elementID, filters)
}

func (c *Composed) GatherCandidates(ctx context.Context, elementID string) ([]string, error) {
	return c.Main.GatherCandidates(ctx, elementID)
}

func (c *Composed) AddIceCandidate(ctx context.Context, elementID string, candidate string) error {
	return c.Main.AddIceCandidate(ctx, elementID, candidate)
}

// Connect implements connect(), including cross-host transposition
// (§4.1). srcHost/sinkHost are resolved by the caller (media unit) and
// passed in via the element IDs' owning adapter; here we assume same-host
// unless ConnectCrossHost is used explicitly by the media unit layer,
// which knows both units' hosts.
func (c *Composed) Connect(ctx context.Context, srcID, sinkID string, kind ConnectKind) error {
	return c.Main.Connect(ctx, srcID, sinkID, kind)
}

func (c *Composed) Disconnect(ctx context.Context, srcID, sinkID string, kind ConnectKind) error {
	return c.Main.Disconnect(ctx, srcID, sinkID, kind)
}

// ConnectCrossHost implements the cross-host branch of connect() (§4.1):
// when srcHost != sinkHost, create (or reuse, coalesced) a transposer pair
// and connect src to the source-side transposer and the sink-side
// transposer to sink.
func (c *Composed) ConnectCrossHost(ctx context.Context, srcHost, srcID, sinkHost, sinkID string, kind ConnectKind) error {
	if srcHost == sinkHost {
		return c.Connect(ctx, srcID, sinkID, kind)
	}

	t, err := c.transposers.GetOrCreate(ctx, srcHost, srcID, sinkHost, func(ctx context.Context) (*Transposer, error) {
		return c.createTransposer(ctx, srcHost, srcID, sinkHost)
	})
	if err != nil {
		return err
	}

	if err := c.Main.Connect(ctx, srcID, t.SourceElementID, kind); err != nil {
		return err
	}
	return c.Main.Connect(ctx, t.SinkElementID, sinkID, kind)
}

func (c *Composed) createTransposer(ctx context.Context, srcHost, srcID, sinkHost string) (*Transposer, error) {
	srcElementID, _, err := c.Main.CreateMediaElement(ctx, "", ElementRTP, CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("adapter: create source transposer element: %w", err)
	}
	sinkElementID, _, err := c.Main.CreateMediaElement(ctx, "", ElementRTP, CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("adapter: create sink transposer element: %w", err)
	}
	c.trackElement(srcElementID, "", srcHost)
	c.trackElement(sinkElementID, "", sinkHost)

	offer, err := c.Main.GenerateOffer(ctx, srcElementID, CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("adapter: generate transposer offer: %w", err)
	}
	offer = sdputil.FilterByVideoCodec(offer, "H264")
	sdputil.NonPureReplaceServerIpv4(offer, c.hostIP(srcHost))

	answer, err := c.Main.ProcessOffer(ctx, sinkElementID, offer)
	if err != nil {
		return nil, fmt.Errorf("adapter: process transposer offer on sink: %w", err)
	}
	sdputil.NonPureReplaceServerIpv4(answer, c.hostIP(sinkHost))

	if err := c.Main.ProcessAnswer(ctx, srcElementID, answer); err != nil {
		return nil, fmt.Errorf("adapter: process transposer answer on source: %w", err)
	}

	if c.streams != nil {
		c.streams.IncrementHostStreams(srcHost, "")
		c.streams.IncrementHostStreams(sinkHost, "")
	}

	return &Transposer{
		SourceHost:      srcHost,
		SinkHost:        sinkHost,
		SourceElementID: srcElementID,
		SinkElementID:   sinkElementID,
		streamCount:     1,
	}, nil
}

func (c *Composed) StartRecording(ctx context.Context, elementID, path string, opts CreateOptions) error {
	return c.Main.StartRecording(ctx, elementID, path, opts)
}

func (c *Composed) StopRecording(ctx context.Context, elementID string) error {
	return c.Main.StopRecording(ctx, elementID)
}

func (c *Composed) SetVideoFloor(ctx context.Context, elementID, floorElementID string) error {
	return c.Main.SetVideoFloor(ctx, elementID, floorElementID)
}

func (c *Composed) SetLayoutType(ctx context.Context, elementID string, layoutID string) error {
	return c.Main.SetLayoutType(ctx, elementID, layoutID)
}

// Stop releases an element, every transposer rooted at it (decrementing
// the per-host stream counters their creation bumped), and the element's
// own pipeline slot -- releasing the pipeline itself once its element
// count reaches zero (§4.1 Pipeline lifecycle).
func (c *Composed) Stop(ctx context.Context, roomID string, t ElementType, elementID string) error {
	for _, tr := range c.transposers.ReleaseSource(elementID) {
		_ = c.Main.Disconnect(ctx, tr.SinkElementID, "", ConnectAll)
		_ = c.Main.Stop(ctx, "", ElementRTP, tr.SourceElementID)
		_ = c.Main.Stop(ctx, "", ElementRTP, tr.SinkElementID)
		c.untrackElement(tr.SourceElementID)
		c.untrackElement(tr.SinkElementID)
		if c.streams != nil {
			c.streams.DecrementHostStreams(tr.SourceHost, "")
			c.streams.DecrementHostStreams(tr.SinkHost, "")
		}
	}

	err := c.Main.Stop(ctx, roomID, t, elementID)
	c.untrackElement(elementID)
	return err
}

func (c *Composed) Events() <-chan ElementEvent { return c.events }

func (c *Composed) Ready() bool {
	return c.Main.Ready() && c.Audio.Ready() && c.Content.Ready()
}

func (c *Composed) Close() error {
	if err := c.Main.Close(); err != nil {
		return err
	}
	if c.Audio != c.Main {
		if err := c.Audio.Close(); err != nil {
			return err
		}
	}
	if c.Content != c.Main && c.Content != c.Audio {
		return c.Content.Close()
	}
	return nil
}

var _ Adapter = (*Composed)(nil)
