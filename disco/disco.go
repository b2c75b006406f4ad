package disco

import (
	"context"
	"errors"

	"github.com/wirechat/amp-go/sessions"
)

// ErrQueryFailed indicates that a disco#info round-trip could not produce a
// usable feature list. Implementations of InfoQuerier should wrap transport
// failures, error-type IQ responses and unparseable payloads with this
// sentinel; callers that only need the fail-closed contract can treat any
// returned error the same way.
var ErrQueryFailed = errors.New("service discovery query failed")

// FeatureRegistry tracks the set of feature vars a session advertises in its
// own disco#info responses. The registry is the single owner of that state;
// callers never hold a copy beyond one call.
//
// Implementations MUST be safe for concurrent use. Sessions are identified by
// their stable session ID, which is the unit of isolation.
//
// Implementations
//
//	memoryregistry : in-memory reference used for tests / single-process embedders
//	redisregistry  : Redis-set backed implementation for multi-node deployments
//	fileregistry   : static baseline from a watched file, layered over a dynamic registry
type FeatureRegistry interface {
	// AddFeature adds featureVar to the session's advertised set. Adding a
	// var that is already present is a no-op, not an error.
	AddFeature(ctx context.Context, sessionID string, featureVar string) error

	// RemoveFeature removes featureVar from the session's advertised set.
	// Removing an absent var is a no-op, not an error.
	RemoveFeature(ctx context.Context, sessionID string, featureVar string) error

	// HasFeature reports whether featureVar is currently advertised by the
	// session.
	HasFeature(ctx context.Context, sessionID string, featureVar string) (bool, error)
}

// InfoQuerier issues a disco#info query on behalf of a session and returns
// the materialized result. The round-trip blocks the calling goroutine; any
// timeout policy belongs to the implementation, which should honor ctx as far
// as its transport allows.
//
// A nil error means a well-formed result was obtained, even if its feature
// list is empty. Any non-nil error means the query failed as a whole; see
// ErrQueryFailed.
type InfoQuerier interface {
	QueryInfo(ctx context.Context, session sessions.Session, targetJID string, node string) (*Info, error)
}

// Info is the materialized view of a disco#info result: a finite,
// already-parsed feature list for one target and node. It is constructed per
// query and discarded after inspection.
type Info struct {
	// Features in the order the responder listed them.
	Features []Feature
}

// Feature is a single advertised feature identifier.
type Feature struct {
	// Var is the feature's namespace-qualified identifier, exactly as it
	// appeared on the wire.
	Var string
}

// ContainsFeature scans the feature list for an entry whose var equals
// featureVar byte-for-byte. No normalization, case-folding or trimming is
// applied.
func (i *Info) ContainsFeature(featureVar string) bool {
	if i == nil {
		return false
	}
	for _, f := range i.Features {
		if f.Var == featureVar {
			return true
		}
	}
	return false
}
