package bus

// InboundMessage is one customer utterance delivered by a transport
// channel. ConversationID is the channel-scoped conversation key the
// dialogue engine sessions on.
type InboundMessage struct {
	Channel        string
	ConversationID string
	CustomerID     string
	RegionID       string
	Content        string
	Metadata       map[string]string
}

// OutboundMessage is the engine's reply headed back to a transport,
// plus the structured fields agent consoles render alongside the text.
type OutboundMessage struct {
	Channel          string
	ConversationID   string
	Content          string
	Intent           string
	RequiresHuman    bool
	SuggestedActions []string
}

// ReplyHandler lets a channel receive replies synchronously instead of
// subscribing to the outbound queue (used by the webhook channel, which
// must answer within the HTTP request).
type ReplyHandler func(msg OutboundMessage)
