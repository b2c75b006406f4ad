// Package disco defines the narrow service-discovery (XEP-0030) surface the
// AMP capability negotiator consumes. It deliberately models only the two
// sides the negotiator touches: the advertised-feature set of the local
// session (FeatureRegistry) and a single blocking disco#info round-trip
// against a remote entity (InfoQuerier).
//
// Layers & Roles
//
//	FeatureRegistry -> owns per-session advertised feature vars (mutated by amp.Manager)
//	InfoQuerier     -> one query, one materialized Info result (read by amp.Manager)
//
// Full disco implementations (identity sets, items queries, entity caps
// hashing) live in whatever XMPP stack the embedder already uses; adapters
// from such a stack to these two interfaces are typically a handful of lines.
package disco
