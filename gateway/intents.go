package gateway

// Intents is the event-subscription bitfield sent in Identify.
type Intents uint32

// Known intent bits.
const (
	IntentGuilds                Intents = 1 << 0
	IntentGuildMembers          Intents = 1 << 1
	IntentGuildMessages         Intents = 1 << 9
	IntentGuildMessageReactions Intents = 1 << 10
	IntentDirectMessage         Intents = 1 << 12
	IntentInteraction           Intents = 1 << 26
	IntentMessageAudit          Intents = 1 << 27
	IntentForumsEvent           Intents = 1 << 28
	IntentAudioAction           Intents = 1 << 29
	IntentPublicGuildMessages   Intents = 1 << 30
)

// DefaultIntents is what an unprivileged bot can subscribe to out of the box.
const DefaultIntents = IntentPublicGuildMessages | IntentGuildMessageReactions | IntentMessageAudit

// Has reports whether every bit of other is set.
func (i Intents) Has(other Intents) bool { return i&other == other }

// With returns i with the given bits added.
func (i Intents) With(other Intents) Intents { return i | other }
