// Package discotest provides stub collaborators and a reusable conformance
// suite for disco.FeatureRegistry implementations.
package discotest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/wirechat/amp-go/disco"
	"github.com/wirechat/amp-go/sessions"
)

// RegistryFactory creates a fresh registry instance for one test.
type RegistryFactory func(t *testing.T) disco.FeatureRegistry

// RunRegistryTests runs the conformance suite against the provided factory.
func RunRegistryTests(t *testing.T, factory RegistryFactory) {
	t.Run("AbsentByDefault", func(t *testing.T) {
		testAbsentByDefault(t, factory)
	})
	t.Run("AddThenHas", func(t *testing.T) {
		testAddThenHas(t, factory)
	})
	t.Run("AddIsIdempotent", func(t *testing.T) {
		testAddIsIdempotent(t, factory)
	})
	t.Run("RemoveThenAbsent", func(t *testing.T) {
		testRemoveThenAbsent(t, factory)
	})
	t.Run("RemoveAbsentIsNoop", func(t *testing.T) {
		testRemoveAbsentIsNoop(t, factory)
	})
	t.Run("SessionIsolation", func(t *testing.T) {
		testSessionIsolation(t, factory)
	})
}

func testAbsentByDefault(t *testing.T, factory RegistryFactory) {
	reg := factory(t)
	ctx := context.Background()

	has, err := reg.HasFeature(ctx, "s1", "urn:example:feat")
	if err != nil {
		t.Fatalf("HasFeature: %v", err)
	}
	if has {
		t.Fatal("fresh session should advertise nothing")
	}
}

func testAddThenHas(t *testing.T, factory RegistryFactory) {
	reg := factory(t)
	ctx := context.Background()

	if err := reg.AddFeature(ctx, "s1", "urn:example:feat"); err != nil {
		t.Fatalf("AddFeature: %v", err)
	}
	has, err := reg.HasFeature(ctx, "s1", "urn:example:feat")
	if err != nil {
		t.Fatalf("HasFeature: %v", err)
	}
	if !has {
		t.Fatal("added feature should be advertised")
	}
}

func testAddIsIdempotent(t *testing.T, factory RegistryFactory) {
	reg := factory(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := reg.AddFeature(ctx, "s1", "urn:example:feat"); err != nil {
			t.Fatalf("AddFeature #%d: %v", i+1, err)
		}
	}
	if err := reg.RemoveFeature(ctx, "s1", "urn:example:feat"); err != nil {
		t.Fatalf("RemoveFeature: %v", err)
	}
	has, err := reg.HasFeature(ctx, "s1", "urn:example:feat")
	if err != nil {
		t.Fatalf("HasFeature: %v", err)
	}
	if has {
		t.Fatal("double add must not survive a single remove")
	}
}

func testRemoveThenAbsent(t *testing.T, factory RegistryFactory) {
	reg := factory(t)
	ctx := context.Background()

	if err := reg.AddFeature(ctx, "s1", "urn:example:feat"); err != nil {
		t.Fatalf("AddFeature: %v", err)
	}
	if err := reg.RemoveFeature(ctx, "s1", "urn:example:feat"); err != nil {
		t.Fatalf("RemoveFeature: %v", err)
	}
	has, err := reg.HasFeature(ctx, "s1", "urn:example:feat")
	if err != nil {
		t.Fatalf("HasFeature: %v", err)
	}
	if has {
		t.Fatal("removed feature should not be advertised")
	}
}

func testRemoveAbsentIsNoop(t *testing.T, factory RegistryFactory) {
	reg := factory(t)
	ctx := context.Background()

	if err := reg.RemoveFeature(ctx, "s1", "urn:example:feat"); err != nil {
		t.Fatalf("removing an absent feature should not error: %v", err)
	}
}

func testSessionIsolation(t *testing.T, factory RegistryFactory) {
	reg := factory(t)
	ctx := context.Background()

	if err := reg.AddFeature(ctx, "s1", "urn:example:feat"); err != nil {
		t.Fatalf("AddFeature: %v", err)
	}
	has, err := reg.HasFeature(ctx, "s2", "urn:example:feat")
	if err != nil {
		t.Fatalf("HasFeature: %v", err)
	}
	if has {
		t.Fatal("feature added on s1 must not leak to s2")
	}
}

// CountingRegistry is an in-memory disco.FeatureRegistry that counts
// mutations, for asserting idempotence contracts.
type CountingRegistry struct {
	mu       sync.Mutex
	sessions map[string]map[string]struct{}

	adds    int
	removes int

	// FailWith, when non-nil, is returned by every operation.
	FailWith error
}

var _ disco.FeatureRegistry = (*CountingRegistry)(nil)

func NewCountingRegistry() *CountingRegistry {
	return &CountingRegistry{sessions: make(map[string]map[string]struct{})}
}

func (c *CountingRegistry) AddFeature(ctx context.Context, sessionID string, featureVar string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return c.FailWith
	}
	c.adds++
	set, ok := c.sessions[sessionID]
	if !ok {
		set = make(map[string]struct{})
		c.sessions[sessionID] = set
	}
	set[featureVar] = struct{}{}
	return nil
}

func (c *CountingRegistry) RemoveFeature(ctx context.Context, sessionID string, featureVar string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return c.FailWith
	}
	c.removes++
	delete(c.sessions[sessionID], featureVar)
	return nil
}

func (c *CountingRegistry) HasFeature(ctx context.Context, sessionID string, featureVar string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return false, c.FailWith
	}
	_, present := c.sessions[sessionID][featureVar]
	return present, nil
}

// Adds returns how many AddFeature calls reached the registry.
func (c *CountingRegistry) Adds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adds
}

// Removes returns how many RemoveFeature calls reached the registry.
func (c *CountingRegistry) Removes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removes
}

// ScriptedQuerier is a disco.InfoQuerier that returns a fixed result or
// error, recording what it was asked.
type ScriptedQuerier struct {
	mu sync.Mutex

	// Info is returned when Err is nil.
	Info *disco.Info
	// Err, when non-nil, fails every query. It is wrapped with
	// disco.ErrQueryFailed, as real querier implementations do.
	Err error

	queries []Query
}

// Query records one QueryInfo invocation.
type Query struct {
	SessionID string
	TargetJID string
	Node      string
}

var _ disco.InfoQuerier = (*ScriptedQuerier)(nil)

// NewScriptedQuerier returns a querier whose every query succeeds with the
// given feature vars.
func NewScriptedQuerier(featureVars ...string) *ScriptedQuerier {
	info := &disco.Info{}
	for _, v := range featureVars {
		info.Features = append(info.Features, disco.Feature{Var: v})
	}
	return &ScriptedQuerier{Info: info}
}

func (q *ScriptedQuerier) QueryInfo(ctx context.Context, session sessions.Session, targetJID string, node string) (*disco.Info, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries = append(q.queries, Query{
		SessionID: session.SessionID(),
		TargetJID: targetJID,
		Node:      node,
	})
	if q.Err != nil {
		return nil, fmt.Errorf("%w: %w", disco.ErrQueryFailed, q.Err)
	}
	return q.Info, nil
}

// Queries returns a copy of the recorded invocations.
func (q *ScriptedQuerier) Queries() []Query {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Query, len(q.queries))
	copy(out, q.queries)
	return out
}
