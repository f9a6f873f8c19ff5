package line

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const (
	// DefaultAPIBase is the LINE Messaging API endpoint.
	DefaultAPIBase = "https://api.line.me"

	// maxTextLength is the platform limit for a single text message.
	maxTextLength = 5000
)

// Client sends replies through the Messaging API.
//
// The underlying API client keeps the request context as state, so a Client
// must not be shared between concurrent deliveries.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

func NewClient(apiBase, accessToken string, timeout time.Duration) (*Client, error) {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	api, err := messaging_api.NewMessagingApiAPI(accessToken,
		messaging_api.WithEndpoint(apiBase),
		messaging_api.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply answers the message identified by replyToken with text.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	start := time.Now()
	_, err := c.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: truncate(text, maxTextLength)},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}

	slog.DebugContext(ctx, "reply delivered",
		"duration_ms", time.Since(start).Milliseconds(),
		"text_length", len(text))

	return nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
