package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/gogo/chat/internal/adapter/llm"
	"github.com/xiaot623/gogo/chat/internal/config"
	"github.com/xiaot623/gogo/chat/internal/hub"
	"github.com/xiaot623/gogo/chat/internal/logging"
	"github.com/xiaot623/gogo/chat/internal/policy"
	"github.com/xiaot623/gogo/chat/internal/repository"
	"github.com/xiaot623/gogo/chat/internal/service"
	handler "github.com/xiaot623/gogo/chat/internal/transport/http"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a yaml or .env config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Int("port", cfg.HTTPPort).
		Str("store", cfg.StoreBackend).
		Str("provider", cfg.LLMProvider).
		Msg("starting chat server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	// Initialize generator. A missing key is not fatal; turns answer with a
	// configuration message instead.
	generator, err := llm.NewGenerator(ctx, cfg)
	if errors.Is(err, llm.ErrMissingCredential) {
		logger.Warn().Err(err).Msg("no api key configured, replies will explain the missing configuration")
		generator = nil
	} else if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize generator")
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize policy engine")
	}

	svc := service.New(db, generator, cfg, policyEngine, logger)

	h := hub.NewHub(logger)
	go h.Run(ctx)

	server := handler.NewServer(cfg, svc, h, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().Msgf("server running at http://localhost:%d", cfg.HTTPPort)

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	logger.Info().Msg("server stopped")
}
