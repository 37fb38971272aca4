package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamrosewa/hamrosewa/internal/config"
	"github.com/hamrosewa/hamrosewa/internal/database"
	"github.com/hamrosewa/hamrosewa/internal/domain"
	"github.com/hamrosewa/hamrosewa/internal/openai"
	"github.com/hamrosewa/hamrosewa/internal/repository"
	"github.com/hamrosewa/hamrosewa/internal/service"
)

// SearchCmd returns the one-shot search command, useful for relevance
// debugging without a running server.
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search query against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("location", "", "Filter by location")
	cmd.Flags().Int("limit", 10, "Maximum results")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	catalogRepo := repository.NewCatalogRepository(pool, repository.Weights{
		Text:     cfg.TextWeight,
		Vector:   cfg.VectorWeight,
		Business: cfg.BusinessWeight,
	})

	var intentModel service.IntentModel
	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openai.EmbeddingModelFromName(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			IntentModel:         cfg.IntentModel,
		})
		intentModel = client
		embeddingClient = client
	}

	embeddingSvc := service.NewEmbeddingService(embeddingClient, catalogRepo, cfg.EmbeddingDimensions, cfg.EmbeddingTimeout)
	intentExtractor := service.NewIntentExtractorWithConfig(intentModel, service.IntentExtractorConfig{
		Timeout:          cfg.IntentTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
	})
	searchSvc := service.NewSearchService(intentExtractor, embeddingSvc, catalogRepo, nil, nil)

	var filters domain.SearchFilters
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		category, ok := domain.ParseCategory(strings.ToLower(v))
		if !ok {
			return fmt.Errorf("unknown category %q", v)
		}
		filters.Category = category
	}
	filters.Location, _ = cmd.Flags().GetString("location")
	limit, _ := cmd.Flags().GetInt("limit")

	output, err := searchSvc.Search(ctx, service.SearchInput{
		Query:   strings.Join(args, " "),
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
