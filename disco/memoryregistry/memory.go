package memoryregistry

import (
	"context"
	"sync"

	"github.com/wirechat/amp-go/disco"
)

// Registry is an in-memory implementation of disco.FeatureRegistry. It is
// the reference implementation used by tests and single-process embedders.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{}
}

var _ disco.FeatureRegistry = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) AddFeature(ctx context.Context, sessionID string, featureVar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[sessionID]
	if !ok {
		set = make(map[string]struct{})
		r.sessions[sessionID] = set
	}
	set[featureVar] = struct{}{}
	return nil
}

func (r *Registry) RemoveFeature(ctx context.Context, sessionID string, featureVar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(set, featureVar)
	if len(set) == 0 {
		delete(r.sessions, sessionID)
	}
	return nil
}

func (r *Registry) HasFeature(ctx context.Context, sessionID string, featureVar string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sessions[sessionID]
	if !ok {
		return false, nil
	}
	_, present := set[featureVar]
	return present, nil
}

// Features returns a snapshot of the session's advertised feature vars, in
// unspecified order. Embedders use it to build disco#info responses.
func (r *Registry) Features(ctx context.Context, sessionID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.sessions[sessionID]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out, nil
}
