package model

// InboundMessage is a text message from a human participant that requires a reply.
type InboundMessage struct {
	ReplyToken string
	User       string
	Text       string
}

// Delivery is one authenticated webhook invocation, already filtered down to
// the messages the relay answers, in the order the platform sent them.
type Delivery struct {
	ConversationID string
	Messages       []InboundMessage
}
