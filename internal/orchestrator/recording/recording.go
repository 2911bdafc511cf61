// Package recording implements the recording-session supplement (§4.6):
// startRecording/stopRecording treat a recording as just another media
// session rather than a side channel, and requestKeyframe is an event-bus
// passthrough.
package recording

import (
	"context"
	"sync"

	"github.com/sebas/orchestrator/internal/orchestrator/adapter"
	"github.com/sebas/orchestrator/internal/orchestrator/eventbus"
	"github.com/sebas/orchestrator/internal/orchestrator/id"
	"github.com/sebas/orchestrator/internal/orchestrator/mediasession"
	"github.com/sebas/orchestrator/internal/orchestrator/orcherr"
)

// Recording binds an opaque recording ID to the mediasession.Session that
// backs it, and the source media unit's backend element feeding it.
type Recording struct {
	ID      string
	Session *mediasession.Session
	Path    string

	sourceElementIDs []string
}

// Registry tracks in-flight recordings by their opaque ID, keyed
// independently of the owning user so stopRecording can resolve a
// recording ID back to its session without the caller re-supplying it.
type Registry struct {
	mu         sync.Mutex
	recordings map[string]*Recording
}

func NewRegistry() *Registry {
	return &Registry{recordings: make(map[string]*Recording)}
}

// Start creates a MediaSession of type RECORDING fed by the adapter's
// startRecording call against the source unit's backend element, and
// returns an opaque recording ID (§4.6).
func (r *Registry) Start(ctx context.Context, a adapter.Adapter, source *mediasession.Session, sessionFactory func(mediasession.Config) *mediasession.Session, newUnitID func() string, path string, opts map[string]any) (*Recording, error) {
	sourceUnits := source.Medias()
	if len(sourceUnits) == 0 {
		return nil, orcherr.MediaNotFound(source.ID)
	}

	recSession := sessionFactory(mediasession.Config{
		ID:           id.MediaSession(),
		RoomID:       source.RoomID,
		UserID:       source.UserID,
		Type:         adapter.ElementRecording,
		MediaProfile: mediasession.ProfileAll,
		Options:      opts,
		Adapter:      a,
		NewUnitID:    newUnitID,
	})

	if _, err := recSession.Process(ctx, nil); err != nil {
		return nil, err
	}

	var sourceElementIDs []string
	for _, src := range sourceUnits {
		if err := a.StartRecording(ctx, src.BackendElementID, path, adapter.CreateOptions{Params: opts}); err != nil {
			return nil, orcherr.ServerGenericError(err)
		}
		sourceElementIDs = append(sourceElementIDs, src.BackendElementID)
	}

	rec := &Recording{ID: id.Recording(), Session: recSession, Path: path, sourceElementIDs: sourceElementIDs}

	r.mu.Lock()
	r.recordings[rec.ID] = rec
	r.mu.Unlock()

	return rec, nil
}

// Stop resolves recordingID back to its session, stops the backend
// recording on every source unit, and releases the recording session.
func (r *Registry) Stop(ctx context.Context, a adapter.Adapter, recordingID string) error {
	r.mu.Lock()
	rec, ok := r.recordings[recordingID]
	if ok {
		delete(r.recordings, recordingID)
	}
	r.mu.Unlock()

	if !ok {
		return orcherr.MediaNotFound(recordingID)
	}

	for _, elementID := range rec.sourceElementIDs {
		if err := a.StopRecording(ctx, elementID); err != nil {
			return orcherr.ServerGenericError(err)
		}
	}
	rec.Session.Stop(ctx)
	return nil
}

// Get resolves recordingID without stopping it.
func (r *Registry) Get(recordingID string) (*Recording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recordings[recordingID]
	return rec, ok
}

// RequestKeyframe is a direct passthrough with no new state tracked (§4.6):
// it raises KEYFRAME_NEEDED for mediaID's subscribers, the signal the
// backend's own keyframe-request mechanism listens for, the same way
// setVideoFloor/setLayoutType carry no session-side bookkeeping of their
// own.
func RequestKeyframe(bus *eventbus.Bus, builder *eventbus.Builder, mediaID string) {
	if bus == nil || builder == nil {
		return
	}
	bus.Publish(builder.KeyframeNeededEvent(mediaID).Build())
}
