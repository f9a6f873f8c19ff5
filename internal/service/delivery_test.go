package service_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YushiOMOTE/buddy/internal/model"
	"github.com/YushiOMOTE/buddy/internal/prompt"
	"github.com/YushiOMOTE/buddy/internal/secrets"
	"github.com/YushiOMOTE/buddy/internal/service"
	"github.com/YushiOMOTE/buddy/internal/store"
)

var _ = Describe("DeliveryService", func() {
	var (
		ctx       context.Context
		conv      *countingStore
		completer *scriptedCompleter
		replier   *recordingReplier
		factory   *fakeFactory
		secretsFn *fakeSecretStore
		svc       service.DeliveryService
	)

	BeforeEach(func() {
		ctx = context.Background()
		conv = newCountingStore()
		completer = &scriptedCompleter{}
		replier = &recordingReplier{}
		factory = &fakeFactory{completer: completer, replier: replier}
		secretsFn = &fakeSecretStore{secrets: testSecrets}
	})

	JustBeforeEach(func() {
		processor := service.NewTurnProcessor(prompt.NewAssembler(prompt.DefaultPersona, nil))
		svc = service.NewDeliveryService(secretsFn, factory, conv, processor)
	})

	Describe("a first message in a new conversation", func() {
		It("replies, persists both turns and acknowledges", func() {
			completer.responses = []string{"hi there"}
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			result, err := svc.Handle(ctx, signed(body), body)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ConversationID).To(Equal("C1"))
			Expect(result.Received).To(Equal(1))
			Expect(result.Processed).To(Equal(1))
			Expect(result.DeliveryID).NotTo(BeZero())

			Expect(completer.prompts).To(Equal([]string{
				prompt.DefaultPersona + "\n\nUserU1: hello\n\nAI: ",
			}))
			Expect(replier.sent).To(Equal([]sentReply{{Token: "R1", Text: "hi there"}}))

			stored := conv.stored("C1")
			Expect(stored.Turns).To(Equal([]model.Turn{
				model.UserTurn("U1", "hello"),
				model.AssistantTurn("hi there"),
			}))
		})
	})

	Describe("several messages in one delivery", func() {
		It("grows the context monotonically and appends two turns per message", func() {
			conv.seed("C1", model.UserTurn("U2", "earlier"), model.AssistantTurn("noted"))
			body := webhookBody("C1",
				userText("R1", "U1", "one"),
				userText("R2", "U2", "two"),
				userText("R3", "U1", "three"),
			)

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).NotTo(HaveOccurred())

			Expect(completer.prompts).To(HaveLen(3))
			for i := 1; i < len(completer.prompts); i++ {
				Expect(completer.prompts[i]).To(HavePrefix(completer.prompts[i-1][:len(completer.prompts[i-1])-len("AI: ")]))
			}
			Expect(completer.prompts[2]).To(ContainSubstring("AI: reply 2\n\nUserU1: three\n\nAI: "))

			stored := conv.stored("C1")
			Expect(stored.Len()).To(Equal(2 + 2*3))
			Expect(stored.Turns[:2]).To(Equal([]model.Turn{
				model.UserTurn("U2", "earlier"),
				model.AssistantTurn("noted"),
			}))
			Expect(replier.sent).To(HaveLen(3))
			Expect(replier.sent[1]).To(Equal(sentReply{Token: "R2", Text: "reply 2"}))
		})
	})

	Describe("a completion failure part way through", func() {
		It("persists the progress made and stops", func() {
			completer.failAt = 2
			body := webhookBody("C1",
				userText("R1", "U1", "one"),
				userText("R2", "U1", "two"),
				userText("R3", "U1", "three"),
			)

			result, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrCompletion))
			Expect(result.Processed).To(Equal(1))

			Expect(replier.sent).To(HaveLen(1))
			Expect(completer.prompts).To(HaveLen(2))

			stored := conv.stored("C1")
			Expect(stored.Turns).To(Equal([]model.Turn{
				model.UserTurn("U1", "one"),
				model.AssistantTurn("reply 1"),
				model.UserTurn("U1", "two"),
			}))
		})
	})

	Describe("a reply failure", func() {
		It("keeps the generated assistant turn and stops", func() {
			replier.failAt = 1
			body := webhookBody("C1",
				userText("R1", "U1", "one"),
				userText("R2", "U1", "two"),
			)

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrDelivery))
			Expect(completer.prompts).To(HaveLen(1))

			stored := conv.stored("C1")
			Expect(stored.Turns).To(Equal([]model.Turn{
				model.UserTurn("U1", "one"),
				model.AssistantTurn("reply 1"),
			}))
		})
	})

	Describe("filtering", func() {
		It("ignores events that are not user text messages", func() {
			body := webhookBody("C1",
				lineEvent{Type: "follow", ReplyToken: "R0", Source: map[string]any{"type": "user", "userId": "U1"}},
				lineEvent{
					Type: "message", ReplyToken: "R1",
					Source:  map[string]any{"type": "user", "userId": "U1"},
					Message: map[string]any{"type": "sticker", "id": "s1"},
				},
				lineEvent{
					Type: "message", ReplyToken: "R2",
					Source:  map[string]any{"type": "group", "groupId": "G1", "userId": "U1"},
					Message: map[string]any{"type": "text", "id": "t1", "text": "group chatter"},
				},
				userText("R3", "U1", "hello"),
			)

			result, err := svc.Handle(ctx, signed(body), body)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Received).To(Equal(1))
			Expect(replier.sent).To(Equal([]sentReply{{Token: "R3", Text: "reply 1"}}))
			Expect(conv.stored("C1").Len()).To(Equal(2))
		})

		It("acknowledges a delivery with nothing to process", func() {
			body := webhookBody("C1")

			result, err := svc.Handle(ctx, signed(body), body)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(BeZero())
			Expect(completer.prompts).To(BeEmpty())
			Expect(conv.stored("C1").Len()).To(BeZero())
		})
	})

	Describe("authentication", func() {
		It("rejects an invalid signature without touching the store", func() {
			body := webhookBody("C1", userText("R1", "U1", "hello"))
			header := http.Header{}
			header.Set("X-Line-Signature", "bm90LXRoZS1zaWduYXR1cmU=")

			_, err := svc.Handle(ctx, header, body)
			Expect(err).To(MatchError(service.ErrAuthentication))
			Expect(conv.gets).To(BeZero())
			Expect(conv.puts).To(BeZero())
			Expect(completer.prompts).To(BeEmpty())
		})

		It("rejects a missing signature", func() {
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			_, err := svc.Handle(ctx, http.Header{}, body)
			Expect(err).To(MatchError(service.ErrAuthentication))
			Expect(conv.gets).To(BeZero())
		})
	})

	Describe("collaborator failures", func() {
		It("reports a malformed body as a parse error", func() {
			body := []byte(`{"destination": "C1", "events": [`)

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrParse))
			Expect(conv.gets).To(BeZero())
		})

		It("reports secret retrieval failures before parsing", func() {
			secretsFn.err = errors.New("access denied")
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrSecrets))
			Expect(conv.gets).To(BeZero())
		})

		It("reports incomplete secrets", func() {
			factory.err = secrets.ErrIncomplete
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrSecrets))
			Expect(errors.Is(err, secrets.ErrIncomplete)).To(BeTrue())
		})
	})

	Describe("concurrent writers", func() {
		It("replays this delivery's turns on top of the latest log", func() {
			conv.concurrentWrites = 1
			completer.responses = []string{"hi there"}
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.puts).To(Equal(2))

			Expect(conv.stored("C1").Turns).To(Equal([]model.Turn{
				model.UserTurn("U9", "concurrent"),
				model.UserTurn("U1", "hello"),
				model.AssistantTurn("hi there"),
			}))
		})

		It("gives up after repeated conflicts", func() {
			conv.putErr = store.ErrConflict
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrStoreWrite))
			Expect(conv.puts).To(Equal(3))
		})

		It("reports both the write and the processing failure", func() {
			conv.putErr = errors.New("disk full")
			completer.failAt = 1
			body := webhookBody("C1", userText("R1", "U1", "hello"))

			_, err := svc.Handle(ctx, signed(body), body)
			Expect(err).To(MatchError(service.ErrStoreWrite))
			Expect(err).To(MatchError(service.ErrCompletion))
			Expect(conv.puts).To(Equal(1))
		})
	})
})
