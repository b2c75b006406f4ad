package amp

// SupportState classifies the outcome of a capability probe.
type SupportState int

const (
	// Unsupported means the server answered and the feature was absent.
	Unsupported SupportState = iota

	// Supported means the server answered and the feature was present.
	Supported

	// Indeterminate means the disco query failed, so support could not be
	// confirmed either way. The underlying cause is carried in Support.Err.
	Indeterminate
)

func (s SupportState) String() string {
	switch s {
	case Supported:
		return "supported"
	case Unsupported:
		return "unsupported"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Support is the full result of a capability probe. The boolean operations
// on Manager collapse it via Bool; callers that must distinguish a confirmed
// negative from an unreachable or non-compliant server use the Check*
// variants and inspect State directly.
type Support struct {
	// State classifies the outcome.
	State SupportState

	// Feature is the qualified feature var that was probed.
	Feature string

	// Err is the query failure when State is Indeterminate, nil otherwise.
	Err error
}

// Bool collapses the result to the fail-closed contract: true only when
// support was positively confirmed.
func (s Support) Bool() bool { return s.State == Supported }
