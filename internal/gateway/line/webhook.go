package line

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/YushiOMOTE/buddy/internal/model"
)

// SignatureHeader carries base64(HMAC-SHA256(channel secret, body)).
const SignatureHeader = "X-Line-Signature"

var (
	ErrMissingSignature = errors.New("signature not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Parser authenticates and decodes inbound webhook deliveries.
type Parser struct {
	channelSecret string
}

func NewParser(channelSecret string) *Parser {
	return &Parser{channelSecret: channelSecret}
}

// Parse verifies the signature of body and returns the text messages sent by
// users. Events that are not user text messages are dropped.
func (p *Parser) Parse(header http.Header, body []byte) (*model.Delivery, error) {
	signature := header.Get(SignatureHeader)
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if !webhook.ValidateSignature(p.channelSecret, signature, body) {
		return nil, ErrInvalidSignature
	}

	var req webhook.CallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	delivery := &model.Delivery{
		ConversationID: req.Destination,
		Messages:       make([]model.InboundMessage, 0, len(req.Events)),
	}
	for _, event := range req.Events {
		if msg, ok := inboundMessage(event); ok {
			delivery.Messages = append(delivery.Messages, msg)
		}
	}

	return delivery, nil
}

// inboundMessage keeps text messages sent directly by a user.
func inboundMessage(event webhook.EventInterface) (model.InboundMessage, bool) {
	var msg webhook.MessageEvent
	switch e := event.(type) {
	case webhook.MessageEvent:
		msg = e
	default:
		return model.InboundMessage{}, false
	}

	var text string
	switch m := msg.Message.(type) {
	case webhook.TextMessageContent:
		text = m.Text
	default:
		return model.InboundMessage{}, false
	}

	var user string
	switch s := msg.Source.(type) {
	case webhook.UserSource:
		if s.UserId == "" {
			return model.InboundMessage{}, false
		}
		user = s.UserId
	case webhook.GroupSource, webhook.RoomSource:
		return model.InboundMessage{}, false
	default:
		return model.InboundMessage{}, false
	}

	return model.InboundMessage{
		ReplyToken: msg.ReplyToken,
		User:       user,
		Text:       text,
	}, true
}
