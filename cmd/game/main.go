// Command game plays an adaptive story in the terminal. The story is generated
// live, replayed from a pre-built tree, or played through a story MCP server.
//
// Subcommands:
//
//	game review                  list recent completions
//	game rate <id> <rating> [notes]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"adaptivestory/internal/config"
	"adaptivestory/internal/logging"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "review":
			runReviewMode()
			return
		case "rate":
			if len(os.Args) < 4 {
				fmt.Println("Usage: game rate <id> <rating> [notes]")
				os.Exit(1)
			}
			runRatingMode(os.Args[2:])
			return
		}
	}

	var opts appOptions
	flag.StringVar(&opts.genre, "genre", "mystery", "story genre")
	flag.StringVar(&opts.prompt, "prompt", "", "custom opening for the story")
	flag.StringVar(&opts.treeFile, "tree", "", "play a story tree JSON file")
	flag.BoolVar(&opts.stored, "stored", false, "play the latest stored tree for -genre")
	flag.BoolVar(&opts.fallback, "fallback", true, "answer unmatched tree input with the model")
	flag.StringVar(&opts.mcpPath, "mcp", "", "play through the story MCP server binary at this path")
	flag.Parse()

	model, cleanup, err := createApp(opts)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
	}
}

func openCompletions() (*logging.CompletionLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return logging.NewCompletionLogger(cfg.CompletionsDB)
}

func runReviewMode() {
	logger, err := openCompletions()
	if err != nil {
		fmt.Printf("Failed to open completion database: %v\n", err)
		return
	}
	defer logger.Close()

	completions, err := logger.GetRecentCompletions(10)
	if err != nil {
		fmt.Printf("Failed to get completions: %v\n", err)
		return
	}

	if len(completions) == 0 {
		fmt.Println("No completions found. Play a story first to generate data!")
		return
	}

	fmt.Printf("Recent completions (%d):\n\n", len(completions))

	for _, comp := range completions {
		var metadata logging.CompletionMetadata
		if err := json.Unmarshal([]byte(comp.Metadata), &metadata); err == nil {
			fmt.Printf("[%d] %s | %s | %dms | %s\n",
				comp.ID,
				comp.Timestamp.Format("15:04:05"),
				comp.Operation,
				metadata.ResponseTime,
				comp.UserInput)
		} else {
			fmt.Printf("[%d] %s | %s\n", comp.ID, comp.Timestamp.Format("15:04:05"), comp.UserInput)
		}

		fmt.Printf("Response: %s\n", comp.Response)
		if comp.Rating != nil {
			fmt.Printf("Rating: %d/5", *comp.Rating)
			if comp.Notes != nil {
				fmt.Printf(" - %s", *comp.Notes)
			}
		} else {
			fmt.Printf("Rating: not rated")
		}
		fmt.Println("\n" + strings.Repeat("-", 50))
	}

	fmt.Println("\nTo rate a completion: game rate <id> <rating> [notes]")
}

func runRatingMode(args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid ID: %v\n", err)
		return
	}

	rating, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid rating: %v\n", err)
		return
	}

	var notes string
	if len(args) > 2 {
		notes = strings.Join(args[2:], " ")
	}

	logger, err := openCompletions()
	if err != nil {
		fmt.Printf("Failed to open completion database: %v\n", err)
		return
	}
	defer logger.Close()

	if err := logger.RateCompletion(id, rating, notes); err != nil {
		fmt.Printf("Failed to rate completion: %v\n", err)
		return
	}

	fmt.Printf("Rated completion %d as %d/5", id, rating)
	if notes != "" {
		fmt.Printf(" with notes: %s", notes)
	}
	fmt.Println()
}
