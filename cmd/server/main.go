// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"faq-chatbot/internal/classifier"
	"faq-chatbot/internal/common/config"
	"faq-chatbot/internal/common/database"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/content"
	"faq-chatbot/internal/fallback"
	"faq-chatbot/internal/linebot"
	"faq-chatbot/internal/llm"
	"faq-chatbot/internal/orchestrator"
	"faq-chatbot/internal/respcache"
	"faq-chatbot/internal/server"
	"faq-chatbot/internal/synthesizer"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting FAQ chatbot server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// --- Load knowledge-base content ---
	store, err := content.Load(cfg.Content.Dir, cfg.Content.Manifest, log)
	if err != nil {
		zapLog.Fatal("content load failed", zap.Error(err))
	}
	zapLog.Info("Knowledge base loaded", zap.Strings("categories", store.Names()))

	// --- Init Redis with retry (only when something uses it) ---
	var redis *database.RedisClient
	needsRedis := cfg.Cache.Backend == "redis" || cfg.Server.RateLimit.Enabled
	if needsRedis {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Response cache ---
	var cache respcache.Store
	cacheTTL := time.Duration(cfg.Cache.TTL) * time.Second
	if cfg.Cache.Backend == "redis" {
		cache = respcache.NewRedis(redis, cacheTTL, log)
	} else {
		cache = respcache.NewMemory(cacheTTL)
	}
	zapLog.Info("Response cache ready",
		zap.String("backend", cfg.Cache.Backend),
		zap.Duration("ttl", cacheTTL),
	)

	// --- LLM provider and pipeline stages ---
	llmClient := llm.NewClient(llm.Config{
		BaseURL:     cfg.OpenAI.BaseURL,
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     config.GetDuration(cfg.OpenAI.Timeout),
	}, log)

	cls := classifier.New(llmClient, store.Categories(), log)
	syn := synthesizer.New(llmClient, log)
	resolver := fallback.NewResolver()

	pipeline := orchestrator.New(cls, syn, cache, resolver, store, log)

	// --- Messaging gateway (optional) ---
	var gateway *linebot.Gateway
	if cfg.Line.Enabled {
		gateway = linebot.New(cfg.Line, pipeline, log)
		zapLog.Info("Messaging gateway enabled")
	}

	// --- HTTP server ---
	srv := server.New(cfg, pipeline, gateway, redis, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-stop:
		zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
