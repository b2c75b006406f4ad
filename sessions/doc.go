// Package sessions defines the session abstraction shared by the AMP
// negotiator and the embedding XMPP stack. A Session represents one live,
// authenticated stream: the negotiator only ever reads its identity, never
// manages its lifetime.
//
// Lifecycle is the explicit replacement for implicit "on class load"
// listener registration: the embedder owns one Lifecycle value, components
// register callbacks against it, and the embedder calls SessionCreated once
// per established session. Registration returns an unregister func so
// teardown is explicit and testable.
package sessions
