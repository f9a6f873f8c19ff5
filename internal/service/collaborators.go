package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/YushiOMOTE/buddy/internal/completion"
	"github.com/YushiOMOTE/buddy/internal/gateway/line"
	"github.com/YushiOMOTE/buddy/internal/model"
	"github.com/YushiOMOTE/buddy/internal/secrets"
)

// WebhookParser authenticates an inbound delivery and extracts its user text messages.
type WebhookParser interface {
	Parse(header http.Header, body []byte) (*model.Delivery, error)
}

// Replier sends text back against a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Collaborators are the credentialed clients one delivery runs with.
type Collaborators struct {
	Parser    WebhookParser
	Replier   Replier
	Completer completion.Completer
}

// CollaboratorFactory builds Collaborators from freshly fetched secrets.
type CollaboratorFactory interface {
	Build(s secrets.Secrets) (*Collaborators, error)
}

type LineCollaboratorConfig struct {
	APIBase      string
	ReplyTimeout time.Duration
	Completion   completion.Config // APIKey is taken from secrets
}

type lineCollaboratorFactory struct {
	cfg LineCollaboratorConfig
}

// NewLineCollaboratorFactory wires the LINE gateway with the configured completion provider.
func NewLineCollaboratorFactory(cfg LineCollaboratorConfig) CollaboratorFactory {
	return &lineCollaboratorFactory{cfg: cfg}
}

func (f *lineCollaboratorFactory) Build(s secrets.Secrets) (*Collaborators, error) {
	if err := s.Validate(f.cfg.Completion.Provider); err != nil {
		return nil, err
	}

	completionCfg := f.cfg.Completion
	completionCfg.APIKey = s.CompletionAPIKey(completionCfg.Provider)
	completer, err := completion.New(completionCfg)
	if err != nil {
		return nil, fmt.Errorf("creating completer: %w", err)
	}

	replier, err := line.NewClient(f.cfg.APIBase, s.LineChannelAccessToken, f.cfg.ReplyTimeout)
	if err != nil {
		return nil, fmt.Errorf("creating reply client: %w", err)
	}

	return &Collaborators{
		Parser:    line.NewParser(s.LineChannelSecret),
		Replier:   replier,
		Completer: completer,
	}, nil
}
