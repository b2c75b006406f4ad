package amp_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	amp "github.com/wirechat/amp-go"
	"github.com/wirechat/amp-go/disco"
	"github.com/wirechat/amp-go/disco/discotest"
	"github.com/wirechat/amp-go/sessions"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(reg *discotest.CountingRegistry, q *discotest.ScriptedQuerier) *amp.Manager {
	if reg == nil {
		reg = discotest.NewCountingRegistry()
	}
	if q == nil {
		q = discotest.NewScriptedQuerier()
	}
	return amp.NewManager(reg, q, amp.WithLogger(discardLogger()))
}

func TestSetServiceEnabledIdempotent(t *testing.T) {
	ctx := context.Background()
	reg := discotest.NewCountingRegistry()
	m := newManager(reg, nil)
	sess := sessions.NewLocalSession("example.net")

	for i := 0; i < 2; i++ {
		if err := m.SetServiceEnabled(ctx, sess, true); err != nil {
			t.Fatalf("SetServiceEnabled(true) #%d: %v", i+1, err)
		}
	}
	if got := reg.Adds(); got != 1 {
		t.Fatalf("expected exactly one underlying add, got %d", got)
	}
	enabled, err := m.IsServiceEnabled(ctx, sess)
	if err != nil {
		t.Fatalf("IsServiceEnabled: %v", err)
	}
	if !enabled {
		t.Fatal("service should be enabled")
	}

	for i := 0; i < 2; i++ {
		if err := m.SetServiceEnabled(ctx, sess, false); err != nil {
			t.Fatalf("SetServiceEnabled(false) #%d: %v", i+1, err)
		}
	}
	if got := reg.Removes(); got != 1 {
		t.Fatalf("expected exactly one underlying remove, got %d", got)
	}

	// Disabling an already-disabled session touches nothing.
	fresh := sessions.NewLocalSession("example.net")
	if err := m.SetServiceEnabled(ctx, fresh, false); err != nil {
		t.Fatalf("SetServiceEnabled(false) on fresh session: %v", err)
	}
	if got := reg.Removes(); got != 1 {
		t.Fatalf("no-op disable must not reach the registry, removes=%d", got)
	}
}

func TestToggleWithdrawsAdvertisement(t *testing.T) {
	ctx := context.Background()
	reg := discotest.NewCountingRegistry()
	m := newManager(reg, nil)
	sess := sessions.NewLocalSession("example.net")

	if err := m.SetServiceEnabled(ctx, sess, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := m.SetServiceEnabled(ctx, sess, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	enabled, err := m.IsServiceEnabled(ctx, sess)
	if err != nil {
		t.Fatalf("IsServiceEnabled: %v", err)
	}
	if enabled {
		t.Fatal("service should be disabled after toggle")
	}
	has, err := reg.HasFeature(ctx, sess.SessionID(), amp.Namespace)
	if err != nil {
		t.Fatalf("HasFeature: %v", err)
	}
	if has {
		t.Fatalf("%s must be absent from the advertised set", amp.Namespace)
	}
}

func TestDefaultEnabledOnSessionCreated(t *testing.T) {
	ctx := context.Background()
	reg := discotest.NewCountingRegistry()
	m := newManager(reg, nil)

	lc := sessions.NewLifecycle()
	defer lc.Close()
	unregister := m.AttachTo(lc)

	sess := sessions.NewLocalSession("example.net")
	lc.SessionCreated(ctx, sess)

	enabled, err := m.IsServiceEnabled(ctx, sess)
	if err != nil {
		t.Fatalf("IsServiceEnabled: %v", err)
	}
	if !enabled {
		t.Fatal("new session should have AMP enabled by default")
	}
	if got := reg.Adds(); got != 1 {
		t.Fatalf("default-enable should add exactly once, got %d", got)
	}

	// After unregistering, new sessions are untouched.
	unregister()
	other := sessions.NewLocalSession("example.net")
	lc.SessionCreated(ctx, other)
	enabled, err = m.IsServiceEnabled(ctx, other)
	if err != nil {
		t.Fatalf("IsServiceEnabled: %v", err)
	}
	if enabled {
		t.Fatal("unregistered hook must not enable new sessions")
	}
}

func TestRegistryFailurePropagates(t *testing.T) {
	ctx := context.Background()
	reg := discotest.NewCountingRegistry()
	reg.FailWith = errors.New("backend down")
	m := newManager(reg, nil)
	sess := sessions.NewLocalSession("example.net")

	if err := m.SetServiceEnabled(ctx, sess, true); err == nil {
		t.Fatal("registry failure should propagate from SetServiceEnabled")
	}
	if _, err := m.IsServiceEnabled(ctx, sess); err == nil {
		t.Fatal("registry failure should propagate from IsServiceEnabled")
	}
}

func TestExactMatchScanning(t *testing.T) {
	ctx := context.Background()
	q := discotest.NewScriptedQuerier(
		"urn:xmpp:amp?action=error",
		"urn:xmpp:amp?action=drop",
	)
	m := newManager(nil, q)
	sess := sessions.NewLocalSession("example.net")

	if !m.IsActionSupported(ctx, sess, amp.ActionDrop) {
		t.Fatal("drop is advertised and should be supported")
	}
	if m.IsActionSupported(ctx, sess, amp.ActionNotify) {
		t.Fatal("notify is not advertised and must not be supported")
	}

	queries := q.Queries()
	if len(queries) != 2 {
		t.Fatalf("every check must re-query, got %d queries", len(queries))
	}
	for _, query := range queries {
		if query.TargetJID != "example.net" {
			t.Fatalf("probe must target the session's server, got %q", query.TargetJID)
		}
		if query.Node != amp.Namespace {
			t.Fatalf("probe must be scoped to the AMP node, got %q", query.Node)
		}
	}
}

func TestEmptyResponseMeansUnsupported(t *testing.T) {
	ctx := context.Background()
	m := newManager(nil, discotest.NewScriptedQuerier())
	sess := sessions.NewLocalSession("example.net")

	if m.IsActionSupported(ctx, sess, amp.ActionDrop) {
		t.Fatal("empty feature list must read as unsupported")
	}
	res := m.CheckActionSupport(ctx, sess, amp.ActionDrop)
	if res.State != amp.Unsupported {
		t.Fatalf("state = %v, want unsupported", res.State)
	}
	if res.Err != nil {
		t.Fatalf("a successful empty response is not an error: %v", res.Err)
	}
}

func TestFailClosedOnQueryError(t *testing.T) {
	ctx := context.Background()
	q := discotest.NewScriptedQuerier()
	q.Err = errors.New("remote-server-timeout")
	m := newManager(nil, q)
	sess := sessions.NewLocalSession("example.net")

	if m.IsActionSupported(ctx, sess, amp.ActionDrop) {
		t.Fatal("query failure must read as unsupported")
	}
	if m.IsConditionSupported(ctx, sess, amp.ConditionExpireAt) {
		t.Fatal("query failure must read as unsupported")
	}

	res := m.CheckConditionSupport(ctx, sess, amp.ConditionExpireAt)
	if res.State != amp.Indeterminate {
		t.Fatalf("state = %v, want indeterminate", res.State)
	}
	if !errors.Is(res.Err, disco.ErrQueryFailed) {
		t.Fatalf("indeterminate result should match disco.ErrQueryFailed, got %v", res.Err)
	}
	if !errors.Is(res.Err, q.Err) {
		t.Fatalf("indeterminate result should carry the query error, got %v", res.Err)
	}
	if res.Bool() {
		t.Fatal("indeterminate must collapse to false")
	}
}

func TestQualifiedFeatureFormatting(t *testing.T) {
	if got := amp.ConditionFeature("expire-at"); got != "urn:xmpp:amp?condition=expire-at" {
		t.Fatalf("ConditionFeature = %q", got)
	}
	if got := amp.ActionFeature(amp.ActionDrop); got != "urn:xmpp:amp?action=drop" {
		t.Fatalf("ActionFeature = %q", got)
	}

	// The prober must probe exactly the formatted var.
	ctx := context.Background()
	m := newManager(nil, discotest.NewScriptedQuerier())
	sess := sessions.NewLocalSession("example.net")
	res := m.CheckConditionSupport(ctx, sess, "expire-at")
	if res.Feature != "urn:xmpp:amp?condition=expire-at" {
		t.Fatalf("probed feature = %q", res.Feature)
	}
}

func TestUnknownConditionProbedVerbatim(t *testing.T) {
	ctx := context.Background()
	q := discotest.NewScriptedQuerier("urn:xmpp:amp?condition=x-vendor-thing")
	m := newManager(nil, q)
	sess := sessions.NewLocalSession("example.net")

	if !m.IsConditionSupported(ctx, sess, "x-vendor-thing") {
		t.Fatal("unvalidated condition names must be probed as-is")
	}
	if m.IsConditionSupported(ctx, sess, "x-other-thing") {
		t.Fatal("unadvertised condition must be unsupported")
	}
}

func TestConcurrentEnableAlreadyEnabled(t *testing.T) {
	ctx := context.Background()
	reg := discotest.NewCountingRegistry()
	m := newManager(reg, nil)
	sess := sessions.NewLocalSession("example.net")

	if err := m.SetServiceEnabled(ctx, sess, true); err != nil {
		t.Fatalf("initial enable: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := m.SetServiceEnabled(ctx, sess, true); err != nil {
				t.Errorf("concurrent enable: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := reg.Adds(); got != 1 {
		t.Fatalf("already-enabled session saw %d adds, want 1", got)
	}
	enabled, err := m.IsServiceEnabled(ctx, sess)
	if err != nil {
		t.Fatalf("IsServiceEnabled: %v", err)
	}
	if !enabled {
		t.Fatal("session should remain enabled")
	}
}

func TestConcurrentToggleSerializes(t *testing.T) {
	ctx := context.Background()
	reg := discotest.NewCountingRegistry()
	m := newManager(reg, nil)
	sess := sessions.NewLocalSession("example.net")

	const n = 16
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = m.SetServiceEnabled(ctx, sess, true)
		}()
		go func() {
			defer wg.Done()
			_ = m.SetServiceEnabled(ctx, sess, false)
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, state and mutation counts must agree:
	// every add was needed, every remove was needed.
	enabled, err := m.IsServiceEnabled(ctx, sess)
	if err != nil {
		t.Fatalf("IsServiceEnabled: %v", err)
	}
	adds, removes := reg.Adds(), reg.Removes()
	if enabled && adds != removes+1 {
		t.Fatalf("enabled with adds=%d removes=%d", adds, removes)
	}
	if !enabled && adds != removes {
		t.Fatalf("disabled with adds=%d removes=%d", adds, removes)
	}
}
