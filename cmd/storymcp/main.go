// Command storymcp serves the story engine as MCP tools over stdio. Logs go to
// the debug log file only since stdout carries the protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"adaptivestory/internal/config"
	"adaptivestory/internal/debug"
	"adaptivestory/internal/llm"
	"adaptivestory/internal/logging"
	"adaptivestory/internal/mcp"
	"adaptivestory/internal/observability"
	"adaptivestory/internal/session"
	"adaptivestory/internal/story/narrator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storymcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	debugLogger := debug.NewLogger(cfg.DebugOptions(false))
	defer debugLogger.Sync()
	log := debugLogger.Zap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := observability.InitTracing(ctx, cfg.Tracing("adaptive-story-mcp"))
	if err != nil {
		log.Warn("failed to initialize tracing", zap.Error(err))
	} else {
		defer tracerProvider.Shutdown(context.Background())
	}

	completions, err := logging.NewCompletionLogger(cfg.CompletionsDB)
	if err != nil {
		return fmt.Errorf("failed to initialize completion logger: %w", err)
	}
	defer completions.Close()

	registry := llm.NewRegistry(cfg.Backend(), log, llm.WithCompletionRecorder(completions))
	oracle, err := registry.Oracle()
	if err != nil {
		return fmt.Errorf("failed to initialize %s backend: %w", cfg.LLMBackend, err)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	validator, err := cfg.Validator()
	if err != nil {
		return err
	}
	engine := narrator.New(oracle,
		narrator.WithCatalog(catalog),
		narrator.WithValidator(validator),
		narrator.WithParams(cfg.Params()),
		narrator.WithLogger(log),
	)

	sessions := session.NewStore(cfg.SessionTTL, cfg.SessionCleanup, session.WithLogger(log))
	server := mcp.NewStoryServer(engine, sessions, registry.Config().Model, log)

	log.Info("story MCP server starting", zap.String("backend", cfg.LLMBackend))
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
