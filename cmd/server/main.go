// Package main provides the plan assistant server: the retrieval HTTP API
// plus the MCP tool endpoint.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/telsona/plan-assist/internal/embedding"
	"github.com/telsona/plan-assist/internal/logging"
	mcpserver "github.com/telsona/plan-assist/internal/mcp"
	"github.com/telsona/plan-assist/internal/retrieval"
	"github.com/telsona/plan-assist/internal/server"
	"github.com/telsona/plan-assist/internal/storage"
	"github.com/telsona/plan-assist/internal/transform"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := logging.New(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Configuration from environment
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)
	port := getEnv("PORT", "8080")

	// Initialize storage
	store, err := storage.NewPlanStore(qdrantHost, qdrantPort)
	if err != nil {
		logger.Fatal("failed to connect to Qdrant", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		logger.Fatal("failed to ensure collection", zap.Error(err))
	}

	// Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		logger.Fatal("failed to create embedding client", zap.Error(err))
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	// Wire the query service
	engine := retrieval.NewEngine(store, logger)
	transformer := transform.NewTransformer(embeddingClient.Client(), logger)
	service := server.NewService(embedder, engine, transformer, logger)

	// MCP tool endpoint for desktop agents
	mcpSrv := mcpserver.NewServer(&mcpserver.Config{
		Service: service,
		Fetcher: store,
		Stats:   store,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.NewHealthHandler(store))
	mux.HandleFunc("/api/chat/retrieval", server.NewRetrievalHandler(service, logger))
	mux.HandleFunc("/api/chat/answer", server.NewAnswerHandler(service, logger))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(mcpSrv, nil))

	addr := "0.0.0.0:" + port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server",
		zap.String("addr", addr),
		zap.String("retrieval", "/api/chat/retrieval"),
		zap.String("mcp", "/mcp"),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
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
