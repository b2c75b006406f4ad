package sessions

// Session is the negotiator's view of one live, authenticated XMPP session.
// The surrounding stack owns the session's construction, stream lifetime and
// teardown; this interface only exposes what capability negotiation needs.
type Session interface {
	// SessionID returns a stable identifier for this session, unique for the
	// session's lifetime. It keys per-session state such as the advertised
	// feature set.
	SessionID() string

	// ServerJID returns the bare JID of the server this session is bound to.
	// Capability probes are addressed to this entity.
	ServerJID() string
}
