package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/YushiOMOTE/buddy/common/id"
	"github.com/YushiOMOTE/buddy/common/logger"
	"github.com/YushiOMOTE/buddy/internal/gateway/line"
	"github.com/YushiOMOTE/buddy/internal/model"
	"github.com/YushiOMOTE/buddy/internal/secrets"
	"github.com/YushiOMOTE/buddy/internal/store"
)

// maxPersistAttempts bounds the reload-and-reappend loop on write conflicts.
const maxPersistAttempts = 3

type DeliveryResult struct {
	DeliveryID     int64
	ConversationID string
	Received       int // user text messages after filtering
	Processed      int // messages that completed the full cycle
}

// DeliveryService handles one authenticated webhook delivery end to end.
type DeliveryService interface {
	Handle(ctx context.Context, header http.Header, body []byte) (*DeliveryResult, error)
}

type deliveryService struct {
	secrets       secrets.Store
	collaborators CollaboratorFactory
	conversations store.ConversationStore
	processor     *TurnProcessor
}

func NewDeliveryService(secretStore secrets.Store, collaborators CollaboratorFactory, conversations store.ConversationStore, processor *TurnProcessor) DeliveryService {
	return &deliveryService{
		secrets:       secretStore,
		collaborators: collaborators,
		conversations: conversations,
		processor:     processor,
	}
}

func (s *deliveryService) Handle(ctx context.Context, header http.Header, body []byte) (*DeliveryResult, error) {
	result := &DeliveryResult{DeliveryID: id.New()}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(result.DeliveryID),
		Component:  "buddy.service.delivery",
	})

	sc := logger.StartSpan(ctx, "delivery.handle", trace.WithSpanKind(trace.SpanKindServer))
	defer sc.End()
	ctx = sc.Context()

	err := s.handle(ctx, header, body, result)
	if err != nil {
		sc.RecordError(err)
	}
	return result, err
}

func (s *deliveryService) handle(ctx context.Context, header http.Header, body []byte, result *DeliveryResult) error {
	creds, err := s.secrets.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecrets, err)
	}
	collab, err := s.collaborators.Build(creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecrets, err)
	}

	delivery, err := collab.Parser.Parse(header, body)
	if err != nil {
		if errors.Is(err, line.ErrMissingSignature) || errors.Is(err, line.ErrInvalidSignature) {
			slog.WarnContext(ctx, "rejected webhook delivery", "error", err)
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	result.ConversationID = delivery.ConversationID
	result.Received = len(delivery.Messages)
	ctx = logger.WithLogFields(ctx, logger.LogFields{ConversationID: logger.Ptr(delivery.ConversationID)})

	log, err := s.load(ctx, delivery.ConversationID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	base := log.Len()

	slog.InfoContext(ctx, "processing delivery",
		"messages", len(delivery.Messages),
		"history_turns", base)

	processed, processErr := s.processor.Process(ctx, log, delivery.Messages, collab.Completer, collab.Replier)
	result.Processed = processed

	// Persist whatever was appended, including after an aborted run.
	if err := s.persist(ctx, log, base); err != nil {
		return errors.Join(err, processErr)
	}
	if processErr != nil {
		return processErr
	}

	slog.InfoContext(ctx, "delivery processed", "processed", processed)
	return nil
}

// load returns the stored log for conversationID, or an empty one if none exists.
func (s *deliveryService) load(ctx context.Context, conversationID string) (*model.ConversationLog, error) {
	log, err := s.conversations.Get(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return model.NewConversationLog(conversationID), nil
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

// persist writes log conditionally. On conflict the turns appended after
// base are replayed on top of the latest stored log and the write retried.
func (s *deliveryService) persist(ctx context.Context, log *model.ConversationLog, base int) error {
	added := log.Since(base)

	for attempt := 1; ; attempt++ {
		err := s.conversations.Put(ctx, log)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) || attempt == maxPersistAttempts {
			return fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}

		slog.WarnContext(ctx, "conversation changed concurrently, rebasing",
			"attempt", attempt,
			"added_turns", len(added))

		latest, err := s.load(ctx, log.ID)
		if err != nil {
			return fmt.Errorf("%w: reloading after conflict: %w", ErrStoreWrite, err)
		}
		for _, t := range added {
			latest.Append(t)
		}
		log = latest
	}
}
