package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"adaptivestory/cmd/game/ui"
	"adaptivestory/internal/config"
	"adaptivestory/internal/debug"
	"adaptivestory/internal/llm"
	"adaptivestory/internal/logging"
	"adaptivestory/internal/mcp"
	"adaptivestory/internal/observability"
	"adaptivestory/internal/store"
	"adaptivestory/internal/story/narrator"
	"adaptivestory/internal/story/tree"
)

type appOptions struct {
	genre    string
	prompt   string
	treeFile string
	stored   bool
	fallback bool
	mcpPath  string
}

func createApp(opts appOptions) (ui.Model, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return ui.Model{}, nil, err
	}

	debugLogger := debug.NewLogger(cfg.DebugOptions(false))
	log := debugLogger.Zap()

	ctx := context.Background()
	tracerProvider, err := observability.InitTracing(ctx, cfg.Tracing("adaptive-story-game"))
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	completions, err := logging.NewCompletionLogger(cfg.CompletionsDB)
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to initialize completion logger: %w", err)
	}

	closers := []func(){
		func() { completions.Close() },
	}
	shutdown := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
		debugLogger.Sync()
	}

	player, err := newPlayer(ctx, cfg, opts, completions, log, &closers)
	if err != nil {
		shutdown()
		return ui.Model{}, nil, err
	}

	model := ui.NewModel(player, debugLogger)
	cleanup := func() {
		model.Cleanup()
		shutdown()
	}
	return model, cleanup, nil
}

func newPlayer(ctx context.Context, cfg *config.Config, opts appOptions, completions *logging.CompletionLogger, log *zap.Logger, closers *[]func()) (ui.Player, error) {
	if opts.mcpPath != "" {
		log.Info("connecting to story MCP server", zap.String("path", opts.mcpPath))
		client := mcp.NewStoryClient(log)
		if err := client.Launch(ctx, opts.mcpPath); err != nil {
			return nil, err
		}
		return ui.NewRemotePlayer(client, opts.genre, opts.prompt), nil
	}

	registry := llm.NewRegistry(cfg.Backend(), log, llm.WithCompletionRecorder(completions))
	oracle, err := registry.Oracle()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", cfg.LLMBackend, err)
	}

	if opts.treeFile != "" || opts.stored {
		t, err := loadTree(ctx, cfg, opts, closers)
		if err != nil {
			return nil, err
		}
		playerOpts := []tree.PlayerOption{tree.WithPlayerLogger(log)}
		if opts.fallback {
			playerOpts = append(playerOpts, tree.WithFallback(oracle))
		}
		return ui.NewTreePlayer(tree.NewPlayer(t, playerOpts...)), nil
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	validator, err := cfg.Validator()
	if err != nil {
		return nil, err
	}
	engine := narrator.New(oracle,
		narrator.WithCatalog(catalog),
		narrator.WithValidator(validator),
		narrator.WithParams(cfg.Params()),
		narrator.WithLogger(log),
	)
	return ui.NewEnginePlayer(engine, opts.genre, opts.prompt), nil
}

func loadTree(ctx context.Context, cfg *config.Config, opts appOptions, closers *[]func()) (*tree.Tree, error) {
	if opts.treeFile != "" {
		f, err := os.Open(opts.treeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open story tree: %w", err)
		}
		defer f.Close()
		return tree.Load(f)
	}

	st, err := store.Open(cfg.StoreDB)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, func() { st.Close() })
	t, _, err := st.LatestTree(ctx, opts.genre)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no stored %s tree, generate one with treegen first", opts.genre)
	}
	return t, err
}
