package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YushiOMOTE/buddy/internal/model"
	"github.com/YushiOMOTE/buddy/internal/prompt"
	"github.com/YushiOMOTE/buddy/internal/store"
)

type deps struct {
	openStore func(ctx context.Context) (store.ConversationStore, func(), error)
	assembler func() (*prompt.Assembler, error)
}

func newRootCommand(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:          "buddyctl",
		Short:        "Inspect buddy conversations",
		Long:         "Reads conversation logs from the configured store. Never writes.",
		SilenceUsage: true,
	}
	root.AddCommand(newShowCommand(d), newPromptCommand(d))
	return root
}

func newShowCommand(d deps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print the stored turns of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadLog(cmd.Context(), d, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := model.EncodeConversationLog(log)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			fmt.Fprintf(out, "conversation %s (version %d, %d turns)\n", log.ID, log.Version, log.Len())
			for i, t := range log.Turns {
				fmt.Fprintf(out, "%4d  %s\n", i, prompt.RenderTurn(t))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored document as JSON")
	return cmd
}

func newPromptCommand(d deps) *cobra.Command {
	var user, message string

	cmd := &cobra.Command{
		Use:   "prompt <conversation-id>",
		Short: "Print the prompt the next completion would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message != "" && user == "" {
				return errors.New("--user is required with --message")
			}

			assembler, err := d.assembler()
			if err != nil {
				return err
			}
			log, err := loadLog(cmd.Context(), d, args[0])
			if err != nil {
				return err
			}
			if message != "" {
				log.Append(model.UserTurn(user, message))
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), assembler.Assemble(log.Turns))
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "participant id for --message")
	cmd.Flags().StringVar(&message, "message", "", "append a prospective user message before rendering")
	return cmd
}

// loadLog reads a conversation; a missing one is reported as empty like the server does.
func loadLog(ctx context.Context, d deps, id string) (*model.ConversationLog, error) {
	conversations, closeStore, err := d.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	log, err := conversations.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.NewConversationLog(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", id, err)
	}
	return log, nil
}
