package amp

// Namespace is the feature var advertised by entities that support AMP
// (XEP-0079). It is also the disco node capability probes are scoped to.
const Namespace = "urn:xmpp:amp"

// ActionFeature returns the qualified feature var a server advertises when
// it supports the given rule action, e.g. "urn:xmpp:amp?action=drop".
//
// The value is matched byte-for-byte against the server's disco#info
// response; no escaping or normalization is applied.
func ActionFeature(action Action) string {
	return Namespace + "?action=" + string(action)
}

// ConditionFeature returns the qualified feature var a server advertises
// when it supports the given rule condition, e.g.
// "urn:xmpp:amp?condition=expire-at".
func ConditionFeature(condition string) string {
	return Namespace + "?condition=" + condition
}
