package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/YushiOMOTE/buddy/common/logger"
	"github.com/YushiOMOTE/buddy/internal/completion"
	"github.com/YushiOMOTE/buddy/internal/model"
	"github.com/YushiOMOTE/buddy/internal/prompt"
)

// TurnProcessor runs the append, assemble, complete, reply, append cycle for
// each inbound message of a delivery.
type TurnProcessor struct {
	assembler *prompt.Assembler
}

func NewTurnProcessor(assembler *prompt.Assembler) *TurnProcessor {
	return &TurnProcessor{assembler: assembler}
}

// Process handles msgs strictly in order against log. The first failure stops
// the remaining messages; turns appended so far stay in log.
//
// When the reply fails after a completion succeeded, the assistant turn is
// still appended before returning ErrDelivery: the text was generated and may
// have reached the user.
func (p *TurnProcessor) Process(ctx context.Context, log *model.ConversationLog, msgs []model.InboundMessage, completer completion.Completer, replier Replier) (int, error) {
	for i, msg := range msgs {
		msgCtx := logger.WithLogFields(ctx, logger.LogFields{MessageIndex: logger.Ptr(i)})

		log.Append(model.UserTurn(msg.User, msg.Text))
		promptText := p.assembler.Assemble(log.Turns)

		text, err := p.complete(msgCtx, completer, promptText)
		if err != nil {
			return i, fmt.Errorf("%w: message %d: %w", ErrCompletion, i, err)
		}

		replyErr := p.reply(msgCtx, replier, msg.ReplyToken, text)
		log.Append(model.AssistantTurn(text))
		if replyErr != nil {
			return i, fmt.Errorf("%w: message %d: %w", ErrDelivery, i, replyErr)
		}

		slog.DebugContext(msgCtx, "turn processed",
			"user", msg.User,
			"reply", logger.Truncate(text, 200),
			"turns", log.Len())
	}
	return len(msgs), nil
}

func (p *TurnProcessor) complete(ctx context.Context, completer completion.Completer, promptText string) (string, error) {
	sc := logger.StartSpan(ctx, "completion.complete", trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()

	text, err := completer.Complete(sc.Context(), promptText)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(sc.Context(), "completion failed", "error", err, "prompt_bytes", len(promptText))
		return "", err
	}
	return text, nil
}

func (p *TurnProcessor) reply(ctx context.Context, replier Replier, replyToken, text string) error {
	sc := logger.StartSpan(ctx, "line.reply", trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()

	if err := replier.Reply(sc.Context(), replyToken, text); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(sc.Context(), "reply failed", "error", err)
		return err
	}
	return nil
}
