package amp

// Action is one of the rule actions registered for AMP (XEP-0079). Its
// string form is the canonical wire value and is used verbatim when probing
// the server for per-action support.
type Action string

const (
	// ActionAlert marks a triggered rule's stanza as alerted and forwards it
	// to the sender or another configured entity.
	ActionAlert Action = "alert"

	// ActionDrop silently discards the stanza when the rule triggers.
	ActionDrop Action = "drop"

	// ActionError bounces the stanza back to the sender as an error when the
	// rule triggers.
	ActionError Action = "error"

	// ActionNotify sends the sender a notification when the rule triggers,
	// without affecting delivery.
	ActionNotify Action = "notify"
)

func (a Action) String() string { return string(a) }

// Registered rule condition names. Condition support is probed by name; the
// negotiator accepts arbitrary names, these constants merely cover the
// registry defined by XEP-0079.
const (
	ConditionDeliver       = "deliver"
	ConditionExpireAt      = "expire-at"
	ConditionMatchResource = "match-resource"
)
