package amp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wirechat/amp-go/disco"
	"github.com/wirechat/amp-go/internal/logctx"
	"github.com/wirechat/amp-go/sessions"
)

// ManagerOption is a functional option for configuring a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for diagnostics. Defaults to
// slog.Default(). Probe failures are logged here and never surfaced through
// the boolean support checks.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// Manager negotiates AMP (XEP-0079) support for live sessions. It plays two
// roles:
//
//   - Registrar: keeps a session's advertised-feature set consistent with a
//     desired enabled/disabled state for the AMP namespace, and applies the
//     enabled default to every session created through an attached
//     Lifecycle.
//   - Prober: answers whether the session's server supports a specific rule
//     action or condition, one disco#info round-trip per call, no caching.
//
// The Manager holds no session state of its own beyond a per-session lock
// table; the advertised-feature set is owned by the injected
// disco.FeatureRegistry. All methods are safe for concurrent use.
type Manager struct {
	registry disco.FeatureRegistry
	querier  disco.InfoQuerier
	log      *slog.Logger

	// locks serializes the registrar's check-then-act per session so that
	// concurrent SetServiceEnabled calls on one session cannot race past the
	// idempotence check. Different sessions never contend.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewManager constructs a Manager over the given registry and querier.
func NewManager(registry disco.FeatureRegistry, querier disco.InfoQuerier, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		querier:  querier,
		log:      slog.Default(),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = slog.New(logctx.Handler{Handler: m.log.Handler()})
	return m
}

// AttachTo registers the default-enable hook with lc: every session lc
// reports created gets AMP advertisement enabled before application code
// observes it. The returned function unregisters the hook.
//
// A registry failure during default-enable is logged and otherwise dropped;
// the session comes up without AMP advertised and the embedder may retry via
// SetServiceEnabled.
func (m *Manager) AttachTo(lc *sessions.Lifecycle) (unregister func()) {
	return lc.OnSessionCreated(func(ctx context.Context, session sessions.Session) {
		if err := m.SetServiceEnabled(ctx, session, true); err != nil {
			m.log.ErrorContext(logctx.WithSessionData(ctx, &logctx.SessionData{
				SessionID: session.SessionID(),
				ServerJID: session.ServerJID(),
			}), "amp: default-enable failed", slog.String("err", err.Error()))
		}
	})
}

// SetServiceEnabled advertises or withdraws the AMP namespace in the
// session's disco feature set. It is idempotent: when the current state
// already matches enabled, no registry mutation is performed. Registry
// failures propagate to the caller; nothing is retried at this layer.
func (m *Manager) SetServiceEnabled(ctx context.Context, session sessions.Session, enabled bool) error {
	lock := m.sessionLock(session.SessionID())
	lock.Lock()
	defer lock.Unlock()

	current, err := m.registry.HasFeature(ctx, session.SessionID(), Namespace)
	if err != nil {
		return fmt.Errorf("read advertised features: %w", err)
	}
	if current == enabled {
		return nil
	}

	if enabled {
		if err := m.registry.AddFeature(ctx, session.SessionID(), Namespace); err != nil {
			return fmt.Errorf("advertise %s: %w", Namespace, err)
		}
		return nil
	}
	if err := m.registry.RemoveFeature(ctx, session.SessionID(), Namespace); err != nil {
		return fmt.Errorf("withdraw %s: %w", Namespace, err)
	}
	return nil
}

// IsServiceEnabled reports whether the session currently advertises the AMP
// namespace. Pure read, no side effects.
func (m *Manager) IsServiceEnabled(ctx context.Context, session sessions.Session) (bool, error) {
	return m.registry.HasFeature(ctx, session.SessionID(), Namespace)
}

// ReleaseSession drops the Manager's lock-table entry for a torn-down
// session. Must not run concurrently with SetServiceEnabled for the same
// session; call it after the session is gone.
func (m *Manager) ReleaseSession(sessionID string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	delete(m.locks, sessionID)
}

// IsActionSupported reports whether the session's server supports the given
// rule action. Fail-closed: false means support could not be confirmed, not
// proof the action is absent.
func (m *Manager) IsActionSupported(ctx context.Context, session sessions.Session, action Action) bool {
	return m.CheckActionSupport(ctx, session, action).Bool()
}

// IsConditionSupported reports whether the session's server supports the
// given rule condition. The name is probed as-is; unknown names simply come
// back unsupported. Fail-closed like IsActionSupported.
func (m *Manager) IsConditionSupported(ctx context.Context, session sessions.Session, condition string) bool {
	return m.CheckConditionSupport(ctx, session, condition).Bool()
}

// CheckActionSupport probes the server for the given rule action and
// returns the full three-valued result.
func (m *Manager) CheckActionSupport(ctx context.Context, session sessions.Session, action Action) Support {
	return m.checkFeature(ctx, session, ActionFeature(action))
}

// CheckConditionSupport probes the server for the given rule condition and
// returns the full three-valued result.
func (m *Manager) CheckConditionSupport(ctx context.Context, session sessions.Session, condition string) Support {
	return m.checkFeature(ctx, session, ConditionFeature(condition))
}

// checkFeature issues one disco#info query against the session's server,
// scoped to the AMP namespace node, and scans the result for featureVar.
// Every call re-queries; callers needing freshness after a failure
// re-invoke.
func (m *Manager) checkFeature(ctx context.Context, session sessions.Session, featureVar string) Support {
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: session.SessionID(),
		ServerJID: session.ServerJID(),
	})
	ctx = logctx.WithProbeData(ctx, &logctx.ProbeData{
		Feature: featureVar,
		Node:    Namespace,
	})

	info, err := m.querier.QueryInfo(ctx, session, session.ServerJID(), Namespace)
	if err != nil {
		m.log.WarnContext(ctx, "amp: capability probe failed", slog.String("err", err.Error()))
		return Support{State: Indeterminate, Feature: featureVar, Err: err}
	}
	if info.ContainsFeature(featureVar) {
		return Support{State: Supported, Feature: featureVar}
	}
	return Support{State: Unsupported, Feature: featureVar}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
