package main

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YushiOMOTE/buddy/core/config"
	"github.com/YushiOMOTE/buddy/internal/model"
	"github.com/YushiOMOTE/buddy/internal/prompt"
	"github.com/YushiOMOTE/buddy/internal/store"
)

var _ = Describe("buddyctl", func() {
	var (
		conversations store.ConversationStore
		out           *bytes.Buffer
	)

	BeforeEach(func() {
		conversations = store.NewMemoryStore()
		out = &bytes.Buffer{}

		log := model.NewConversationLog("C1")
		log.Append(model.UserTurn("U1", "hello"))
		log.Append(model.AssistantTurn("hi there"))
		Expect(conversations.Put(context.Background(), log)).To(Succeed())
	})

	run := func(args ...string) error {
		root := newRootCommand(deps{
			openStore: func(ctx context.Context) (store.ConversationStore, func(), error) {
				return conversations, func() {}, nil
			},
			assembler: func() (*prompt.Assembler, error) {
				return prompt.NewAssembler("P", nil), nil
			},
		})
		root.SetOut(out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		return root.ExecuteContext(context.Background())
	}

	It("shows stored turns", func() {
		Expect(run("show", "C1")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("conversation C1 (version 1, 2 turns)"))
		Expect(out.String()).To(ContainSubstring("UserU1: hello"))
		Expect(out.String()).To(ContainSubstring("AI: hi there"))
	})

	It("shows the stored document as JSON", func() {
		Expect(run("show", "--json", "C1")).To(Succeed())
		Expect(out.String()).To(MatchJSON(`{"id":"C1","events":[{"user":"U1","msg":"hello"},{"user":null,"msg":"hi there"}],"version":1}`))
	})

	It("renders the next prompt", func() {
		Expect(run("prompt", "C1", "--user", "U2", "--message", "who are you?")).To(Succeed())
		Expect(out.String()).To(Equal("P\n\nUserU1: hello\n\nAI: hi there\n\nUserU2: who are you?\n\nAI: "))
	})

	It("treats unknown conversations as empty", func() {
		Expect(run("show", "C404")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("conversation C404 (version 0, 0 turns)"))
	})

	It("requires a participant for a prospective message", func() {
		Expect(run("prompt", "C1", "--message", "hi")).To(MatchError(ContainSubstring("--user")))
	})
})

var _ = Describe("storeConfig", func() {
	It("opens the configured backend without migrating it", func() {
		cfg := storeConfig(config.StoreConfig{
			Backend:     store.BackendPostgres,
			RedisURL:    "redis://localhost:6379/0",
			DynamoTable: "buddy",
			AWSRegion:   "ap-northeast-1",
		})

		Expect(cfg.SkipMigrate).To(BeTrue())
		Expect(cfg.Backend).To(Equal(store.BackendPostgres))
		Expect(cfg.RedisURL).To(Equal("redis://localhost:6379/0"))
		Expect(cfg.DynamoTable).To(Equal("buddy"))
		Expect(cfg.AWSRegion).To(Equal("ap-northeast-1"))
	})
})
