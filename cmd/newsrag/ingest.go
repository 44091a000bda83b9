package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/internal/ingest"
	"github.com/mohammad-safakhou/newsrag/internal/vectorstore/qdrant"
	"github.com/mohammad-safakhou/newsrag/provider"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, embed and index the news corpus once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			llm, err := provider.NewProvider(cfg.Provider)
			if err != nil {
				return err
			}
			index := qdrant.New(qdrant.Config{
				URL:        cfg.Qdrant.URL,
				APIKey:     cfg.Qdrant.APIKey,
				Collection: cfg.Qdrant.Collection,
				Timeout:    cfg.Qdrant.Timeout,
			})
			if err := index.EnsureCollection(ctx, cfg.Qdrant.Dimension); err != nil {
				return fmt.Errorf("ensuring qdrant collection: %w", err)
			}

			count, err := ingest.NewIngestor(cfg.Ingest, llm, index).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("ingested %d articles\n", count)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
