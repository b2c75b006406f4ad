// Package fileregistry layers an operator-maintained baseline feature list
// over a dynamic disco.FeatureRegistry. The baseline lives in a plain text
// file (one feature var per line, '#' comments) and is reloaded whenever the
// file changes, so deployments can adjust their static advertisement without
// a restart. Adds and removes pass through to the inner registry; HasFeature
// answers from the union of baseline and inner state.
package fileregistry

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/wirechat/amp-go/disco"
)

type Registry struct {
	inner disco.FeatureRegistry
	path  string
	log   *slog.Logger

	mu       sync.RWMutex
	baseline map[string]struct{}

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ disco.FeatureRegistry = (*Registry)(nil)

// New loads the baseline from path, starts watching it for changes, and
// returns the layered registry. The watch is registered before New returns,
// so edits made at any point after New are picked up. Close stops the
// watcher.
func New(path string, inner disco.FeatureRegistry, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		inner: inner,
		path:  path,
		log:   log,
		done:  make(chan struct{}),
	}
	if err := r.reload(); err != nil {
		return nil, fmt.Errorf("load baseline features: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start baseline watcher: %w", err)
	}
	// Watch the parent directory so atomic rename-into-place edits are seen.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	// An edit between the initial load and the watch registration produced
	// no event; load once more now that the watch is in place.
	if err := r.reload(); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("load baseline features: %w", err)
	}
	r.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.watch(ctx)
	return r, nil
}

// Close stops the file watcher. The last loaded baseline stays in effect.
func (r *Registry) Close() error {
	r.cancel()
	<-r.done
	return nil
}

func (r *Registry) AddFeature(ctx context.Context, sessionID string, featureVar string) error {
	return r.inner.AddFeature(ctx, sessionID, featureVar)
}

func (r *Registry) RemoveFeature(ctx context.Context, sessionID string, featureVar string) error {
	return r.inner.RemoveFeature(ctx, sessionID, featureVar)
}

func (r *Registry) HasFeature(ctx context.Context, sessionID string, featureVar string) (bool, error) {
	r.mu.RLock()
	_, inBaseline := r.baseline[featureVar]
	r.mu.RUnlock()
	if inBaseline {
		return true, nil
	}
	return r.inner.HasFeature(ctx, sessionID, featureVar)
}

// BaselineFeatures returns a snapshot of the currently loaded baseline.
func (r *Registry) BaselineFeatures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.baseline))
	for v := range r.baseline {
		out = append(out, v)
	}
	return out
}

func (r *Registry) reload() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	next := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		next[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.baseline = next
	r.mu.Unlock()
	return nil
}

// watch runs the event loop over the watcher registered in New.
func (r *Registry) watch(ctx context.Context) {
	defer close(r.done)
	w := r.watcher
	defer func() {
		// Best-effort watcher close; no actionable error handling path.
		_ = w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				r.log.Warn("baseline feature reload failed",
					slog.String("path", r.path),
					slog.String("err", err.Error()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Debug("fsnotify error", slog.String("err", err.Error()))
		}
	}
}
