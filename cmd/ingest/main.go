// Package main provides the ingest CLI for building the plan chunk index.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/telsona/plan-assist/internal/embedding"
	"github.com/telsona/plan-assist/internal/ingest"
	"github.com/telsona/plan-assist/internal/logging"
	"github.com/telsona/plan-assist/internal/markdown"
	"github.com/telsona/plan-assist/internal/storage"
)

var contentDir string

var rootCmd = &cobra.Command{
	Use:   "plan-ingest",
	Short: "Plan content indexing tool",
	Long:  "CLI tool for managing the plan chunk index in Qdrant",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-index all plan pages from the content directory",
	Long: `Clears the existing index and rebuilds it from local markdown pages.

This command:
1. Connects to Qdrant and verifies health
2. Clears the existing plan chunk collection
3. Chunks every markdown page under the content directory
4. Generates embeddings for each chunk
5. Stores the chunks in Qdrant

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&contentDir, "content-dir", "content", "directory of markdown plan pages")
	rootCmd.AddCommand(syncCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	logger, err := logging.New(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", qdrantHost, qdrantPort)
	store, err := storage.NewPlanStore(qdrantHost, qdrantPort)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	chunker := markdown.NewPageChunker()
	pipeline := ingest.NewPipeline(chunker, embedder, store, logger)

	fmt.Printf("Indexing plan pages from %s...\n", contentDir)
	result, err := pipeline.IngestDir(ctx, contentDir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Pages: %d/%d\n", result.SuccessfulPages, result.TotalPages)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.FailedPages) > 0 {
		fmt.Println()
		fmt.Println("Failed pages:")
		for _, failed := range result.FailedPages {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
