// Package amp negotiates support for Advanced Message Processing (XEP-0079)
// on live XMPP sessions. It does not construct AMP rules or touch message
// payloads; it answers the two questions that must be settled before sending
// a message with AMP semantics attached:
//
//   - does this session advertise AMP to its peers? (Registrar side:
//     SetServiceEnabled / IsServiceEnabled, auto-enabled for every session
//     created through an attached sessions.Lifecycle)
//   - does the session's server support a specific rule action or
//     condition? (Prober side: IsActionSupported / IsConditionSupported and
//     their three-valued Check* variants)
//
// The package consumes service discovery through the two narrow interfaces
// in the disco subpackage and never owns transport, caching or retry policy.
// Probe results are never cached: each check is one disco#info round-trip.
//
// The boolean checks are fail-closed. A false answer means support could not
// be confirmed — the server may be unreachable, non-compliant, or genuinely
// lack the feature. Callers that need to tell those apart use
// CheckActionSupport / CheckConditionSupport and inspect the Support state.
package amp
