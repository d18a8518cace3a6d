package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/store"
)

func askCMD() *cobra.Command {
	var cfgPath string
	var topic string
	var difficulty string
	var showTrace bool

	ask := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question end to end, without the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			query := strings.Join(args, " ")

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer st.DB.Close()

			refresher, provider, err := newRefresher(st, cfg)
			if err != nil {
				return err
			}
			if err := refresher.Refresh(ctx); err != nil {
				// Answer from whatever retrieval state we have; the run
				// degrades rather than aborts.
				fmt.Printf("warning: knowledge refresh failed: %v\n", err)
			}

			orch, err := newOrchestrator(ctx, cfg, st, provider, refresher.Index)
			if err != nil {
				return err
			}

			runCtx := ctx
			if cfg.Agent.RunTimeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, cfg.Agent.RunTimeout)
				defer cancel()
			}
			res, err := orch.Run(runCtx, query, topic, difficulty)
			if err != nil {
				return err
			}

			fmt.Println(res.Answer)
			fmt.Printf("\nconfidence: %.2f  iterations: %d  tools: %s\n",
				res.Confidence, res.Iterations, strings.Join(res.ToolsUsed, ", "))
			if len(res.Sources) > 0 {
				fmt.Println("sources:")
				for _, s := range res.Sources {
					fmt.Printf("  - %s\n", s)
				}
			}
			if showTrace {
				fmt.Println("trace:")
				for _, entry := range res.ReasoningTrace {
					fmt.Printf("  %s\n", entry)
				}
			}
			return nil
		},
	}
	ask.Flags().StringVar(&topic, "topic", "", "topic hint (leave, benefits, workplace, career)")
	ask.Flags().StringVar(&difficulty, "difficulty", "", "difficulty hint (easy, medium, hard)")
	ask.Flags().BoolVar(&showTrace, "trace", false, "print the reasoning trace")
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	return ask
}
