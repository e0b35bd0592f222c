// Command treegen pre-generates branching story trees. Each tree is written as
// JSON under the output directory and saved to the story store so the server
// and the terminal game can play it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"adaptivestory/internal/config"
	"adaptivestory/internal/debug"
	"adaptivestory/internal/llm"
	"adaptivestory/internal/logging"
	"adaptivestory/internal/store"
	"adaptivestory/internal/story/tree"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	genreName := flag.String("genre", "detective", "genre to generate")
	all := flag.Bool("all", false, "generate a tree for every genre")
	target := flag.Int("target", cfg.TreeTargetNodes, "node budget per tree")
	depth := flag.Int("depth", cfg.TreeMaxDepth, "maximum depth")
	outDir := flag.String("out", cfg.TreeDir, "directory for tree JSON files")
	noStore := flag.Bool("no-store", false, "skip saving trees to the story store")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, genres(*genreName, *all), *target, *depth, *outDir, !*noStore); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func genres(name string, all bool) []string {
	if all {
		return tree.Genres()
	}
	return []string{name}
}

func run(ctx context.Context, cfg *config.Config, names []string, target, depth int, outDir string, persist bool) error {
	debugLogger := debug.NewLogger(cfg.DebugOptions(false))
	defer debugLogger.Sync()
	log := debugLogger.Zap()

	completions, err := logging.NewCompletionLogger(cfg.CompletionsDB)
	if err != nil {
		return fmt.Errorf("failed to initialize completion logger: %w", err)
	}
	defer completions.Close()

	var st *store.Store
	if persist {
		if st, err = store.Open(cfg.StoreDB); err != nil {
			return err
		}
		defer st.Close()
	}

	oracle, err := llm.NewRegistry(cfg.Backend(), log, llm.WithCompletionRecorder(completions)).Oracle()
	if err != nil {
		return fmt.Errorf("failed to initialize %s backend: %w", cfg.LLMBackend, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	builder := tree.NewBuilder(oracle,
		tree.WithThrottle(cfg.TreeThrottle),
		tree.WithParams(cfg.Params()),
		tree.WithLogger(log),
		tree.WithProgress(func(built, target int, nodeID string, depth int) {
			fmt.Printf("  [%d/%d] %s (depth %d)\n", built, target, nodeID, depth)
		}),
	)

	for _, name := range names {
		fmt.Printf("🌳 Generating %s tree (%d nodes, depth %d)\n", name, target, depth)
		start := time.Now()
		t, err := builder.GenerateTree(ctx, name, target, depth)
		if err != nil {
			return fmt.Errorf("failed to generate %s tree: %w", name, err)
		}

		id := fmt.Sprintf("%s_%s", t.Genre, time.Now().Format("20060102_150405"))
		path := filepath.Join(outDir, id+".json")
		if err := writeTree(path, t); err != nil {
			return err
		}
		if st != nil {
			if err := st.SaveTree(ctx, id, t); err != nil {
				return err
			}
		}
		log.Info("tree generated",
			zap.String("id", id),
			zap.Int("nodes", len(t.Nodes)),
			zap.Duration("elapsed", time.Since(start)),
		)

		fmt.Printf("💾 Saved %s\n", path)
		fmt.Printf("📊 %s: %d nodes, %d endings, %d unbuilt branches\n\n",
			t.Title, len(t.Nodes), t.Endings(), len(t.Dangling()))
	}
	return nil
}

func writeTree(path string, t *tree.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
