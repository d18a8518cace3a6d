package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/store"
)

func reindexCMD() *cobra.Command {
	var cfgPath string
	reindex := &cobra.Command{
		Use:   "reindex",
		Short: "Re-embed every document and rebuild the knowledge index",
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

			cleared, err := st.ClearEmbeddings(ctx)
			if err != nil {
				return fmt.Errorf("clear embeddings: %w", err)
			}

			refresher, _, err := newRefresher(st, cfg)
			if err != nil {
				return err
			}
			if err := refresher.Refresh(ctx); err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			fmt.Printf("re-embedded %d documents, index holds %d\n", cleared, refresher.Index.Len())
			return nil
		},
	}
	reindex.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	return reindex
}
