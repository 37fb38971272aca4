package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/hamrosewa/hamrosewa/internal/config"
	"github.com/hamrosewa/hamrosewa/internal/database"
	"github.com/hamrosewa/hamrosewa/internal/openai"
	"github.com/hamrosewa/hamrosewa/internal/repository"
	"github.com/hamrosewa/hamrosewa/internal/service"
)

// ReindexCmd returns the reindex command, which backfills embeddings for
// catalog records that have none.
func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Backfill embeddings for catalog records without one",
		RunE:  runReindex,
	}

	cmd.Flags().Int("batch", 100, "Records per batch")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for reindexing")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	catalogRepo := repository.NewCatalogRepository(pool, repository.DefaultWeights())

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openai.EmbeddingModelFromName(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		IntentModel:         cfg.IntentModel,
	})
	embeddingSvc := service.NewEmbeddingService(client, catalogRepo, cfg.EmbeddingDimensions, cfg.EmbeddingTimeout)

	batch, _ := cmd.Flags().GetInt("batch")

	total := 0
	for {
		ids, err := catalogRepo.ListMissingEmbeddings(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		embedded := 0
		for _, serviceID := range ids {
			if err := embeddingSvc.EmbedService(ctx, serviceID); err != nil {
				log.Printf("failed to embed %s: %v", serviceID, err)
				continue
			}
			embedded++
		}
		total += embedded

		// A batch with zero successes would repeat forever.
		if embedded == 0 || len(ids) < batch {
			break
		}
	}

	log.Printf("reindex complete: %d records embedded", total)
	return nil
}
