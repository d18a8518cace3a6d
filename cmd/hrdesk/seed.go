package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
	"github.com/hrdesk-ai/hrdesk/internal/store"
)

func seedCMD() *cobra.Command {
	var cfgPath string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the starter HR document set into the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer st.DB.Close()

			docs := knowledge.SeedDocuments()
			for _, doc := range docs {
				if _, err := st.UpsertDocument(ctx, doc); err != nil {
					return fmt.Errorf("upsert %s: %w", doc.ID, err)
				}
			}
			fmt.Printf("seeded %d documents\n", len(docs))

			// Embedding needs a working LLM key; without one the documents
			// are still stored and the next refresh picks them up.
			refresher, _, err := newRefresher(st, cfg)
			if err != nil {
				return err
			}
			if err := refresher.Refresh(ctx); err != nil {
				fmt.Printf("warning: embedding skipped: %v\n", err)
				return nil
			}
			fmt.Println("documents embedded and indexed")
			return nil
		},
	}
	seed.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	return seed
}
