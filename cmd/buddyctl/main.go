package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YushiOMOTE/buddy/core/config"
	"github.com/YushiOMOTE/buddy/internal/prompt"
	"github.com/YushiOMOTE/buddy/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	root := newRootCommand(deps{
		openStore: func(ctx context.Context) (store.ConversationStore, func(), error) {
			return store.Open(ctx, storeConfig(cfg.Store))
		},
		assembler: func() (*prompt.Assembler, error) {
			return prompt.FromConfig(cfg.Prompt)
		},
	})
	cobra.CheckErr(root.Execute())
}

// storeConfig opens the store without migrating it.
func storeConfig(cfg config.StoreConfig) store.Config {
	return store.Config{
		Backend:     cfg.Backend,
		DB:          cfg.DB,
		RedisURL:    cfg.RedisURL,
		RedisTTL:    cfg.RedisTTL,
		DynamoTable: cfg.DynamoTable,
		AWSRegion:   cfg.AWSRegion,
		SkipMigrate: true,
	}
}
