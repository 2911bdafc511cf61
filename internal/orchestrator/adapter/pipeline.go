package adapter

import (
	"sync"
)

// Pipeline is the logical per-(room,host) resource the backend keeps
// elements on. Exactly one exists per (roomID, hostID) pair; it is
// created lazily on first element request and released when its active
// element count reaches zero (§4.1 Pipeline lifecycle).
type Pipeline struct {
	ID             string
	RoomID         string
	HostID         string
	activeElements int

	mu          sync.Mutex
	transposers map[string]*Transposer // keyed by sinkHost
}

func newPipeline(id, roomID, hostID string) *Pipeline {
	return &Pipeline{ID: id, RoomID: roomID, HostID: hostID, transposers: make(map[string]*Transposer)}
}

// pipelineKey identifies a pipeline by its (room, host) pair.
func pipelineKey(roomID, hostID string) string { return roomID + "|" + hostID }

// pendingCreation tracks an in-flight first-time pipeline creation so
// concurrent callers coalesce onto a single result (§4.1: "concurrent
// first-time requests must coalesce on a single pending creation").
type pendingCreation struct {
	done chan struct{}
	pipe *Pipeline
	err  error
}

// PipelineRegistry coalesces concurrent pipeline creation per (room,host)
// and tracks active-element refcounts, release, and host-offline purge.
// Grounded on the teacher's TTLStore-backed dialog registry combined with
// the bridge package's sync.Once-per-resource pattern, generalized here to
// a pending-map keyed by (room,host) instead of a single global Once.
type PipelineRegistry struct {
	mu       sync.Mutex
	byKey    map[string]*Pipeline
	pending  map[string]*pendingCreation
	byHost   map[string]map[string]*Pipeline // hostID -> key -> pipeline
	newID    func() string
}

func NewPipelineRegistry(newID func() string) *PipelineRegistry {
	return &PipelineRegistry{
		byKey:   make(map[string]*Pipeline),
		pending: make(map[string]*pendingCreation),
		byHost:  make(map[string]map[string]*Pipeline),
		newID:   newID,
	}
}

// GetOrCreate returns the existing pipeline for (roomID, hostID), or
// creates it via create if none exists, coalescing concurrent creators.
func (r *PipelineRegistry) GetOrCreate(roomID, hostID string, create func() error) (*Pipeline, error) {
	key := pipelineKey(roomID, hostID)

	r.mu.Lock()
	if p, ok := r.byKey[key]; ok {
		r.mu.Unlock()
		return p, nil
	}
	if pc, ok := r.pending[key]; ok {
		r.mu.Unlock()
		<-pc.done
		return pc.pipe, pc.err
	}

	pc := &pendingCreation{done: make(chan struct{})}
	r.pending[key] = pc
	r.mu.Unlock()

	err := create()
	pipe := newPipeline(r.newID(), roomID, hostID)
	pc.pipe, pc.err = pipe, err

	r.mu.Lock()
	delete(r.pending, key)
	if err == nil {
		r.byKey[key] = pipe
		if r.byHost[hostID] == nil {
			r.byHost[hostID] = make(map[string]*Pipeline)
		}
		r.byHost[hostID][key] = pipe
	}
	r.mu.Unlock()

	close(pc.done)
	return pipe, err
}

// BumpElement increments activeElements for a pipeline.
func (r *PipelineRegistry) BumpElement(roomID, hostID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byKey[pipelineKey(roomID, hostID)]; ok {
		p.activeElements++
	}
}

// ReleaseElement decrements activeElements, releasing the pipeline when
// the count reaches zero. Returns true if the pipeline was released.
func (r *PipelineRegistry) ReleaseElement(roomID, hostID string) bool {
	key := pipelineKey(roomID, hostID)

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byKey[key]
	if !ok {
		return false
	}
	if p.activeElements > 0 {
		p.activeElements--
	}
	if p.activeElements == 0 {
		delete(r.byKey, key)
		delete(r.byHost[p.HostID], key)
		return true
	}
	return false
}

// PurgeHost removes every pipeline on hostID without any backend
// round-trip, per the host-offline handling in §4.1.
func (r *PipelineRegistry) PurgeHost(hostID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.byHost[hostID] {
		delete(r.byKey, key)
	}
	delete(r.byHost, hostID)
}

// Get looks up a pipeline's transposer map for cross-host connect.
func (r *PipelineRegistry) Get(roomID, hostID string) (*Pipeline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byKey[pipelineKey(roomID, hostID)]
	return p, ok
}
