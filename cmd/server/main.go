// Command server serves the adaptive story engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adaptivestory/internal/config"
	"adaptivestory/internal/debug"
	"adaptivestory/internal/httpapi"
	"adaptivestory/internal/llm"
	"adaptivestory/internal/logging"
	"adaptivestory/internal/observability"
	"adaptivestory/internal/session"
	"adaptivestory/internal/store"
	"adaptivestory/internal/story/narrator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	debugLogger := debug.NewLogger(cfg.DebugOptions(true))
	defer debugLogger.Sync()
	log := debugLogger.Zap()
	if !debugLogger.IsEnabled() {
		if log, err = zap.NewProduction(); err != nil {
			return err
		}
	}

	tracerProvider, err := observability.InitTracing(context.Background(), cfg.Tracing("adaptive-story-server"))
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

	st, err := store.Open(cfg.StoreDB)
	if err != nil {
		return err
	}
	defer st.Close()

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

	var srv *httpapi.Server
	sessions := session.NewStore(cfg.SessionTTL, cfg.SessionCleanup,
		session.WithLogger(log),
		session.WithEvictHook(func(e *session.Entry) { srv.PersistEntry(e) }),
	)
	srv = httpapi.New(httpapi.Config{
		Engine:   engine,
		Sessions: sessions,
		Store:    st,
		Fallback: oracle,
		Model:    registry.Config().Model,
		Logger:   log,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("backend", cfg.LLMBackend),
			zap.String("model", cfg.LLMModel),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Flush live sessions so they can be resumed after a restart.
	sessions.Flush()
	return nil
}
