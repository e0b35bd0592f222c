package narrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/metrics"
	"adaptivestory/internal/story"
	"adaptivestory/internal/story/genre"
)

// DecisionMarker always closes a generated turn.
const DecisionMarker = "**[What do you do?]**"

// LoopConfig bounds the generate-until-choice loop.
type LoopConfig struct {
	MaxIterations     int
	MaxParagraphs     int
	SegmentTokens     int
	RetryTokens       int
	StrictTokens      int
	StrictTemperature float64
	// ContextHistory is how many recent history segments go into a turn prompt.
	ContextHistory int
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations:     3,
		MaxParagraphs:     4,
		SegmentTokens:     100,
		RetryTokens:       60,
		StrictTokens:      200,
		StrictTemperature: 0.7,
		ContextHistory:    2,
	}
}

var decisionIndicators = []string{
	"?",
	"what will you",
	"what do you",
	"you must",
	"you need to",
	"you should",
	"you could",
	"decision",
	"choice",
	"which way",
	"what next",
}

// IsDecisionPoint reports whether a segment hands control back to the player.
func IsDecisionPoint(segment string) bool {
	lower := strings.ToLower(segment)
	for _, ind := range decisionIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

var (
	actionWords        = []string{"fight", "chase", "explosion", "shot", "ran", "attack", "escape"}
	investigationWords = []string{"evidence", "clue", "suspect", "investigate", "examined"}
)

// DynamicTemperature shifts the base temperature by what the context is about:
// action runs hotter, dialogue and investigation cooler, and late iterations
// drift back toward the base.
func DynamicTemperature(base float64, context string, iteration int) float64 {
	lower := strings.ToLower(context)
	switch {
	case containsAny(lower, actionWords):
		return min(1.0, base+0.15)
	case strings.ContainsAny(context, "\"“”"):
		return max(0.65, base-0.2)
	case containsAny(lower, investigationWords):
		return max(0.7, base-0.15)
	case iteration > 3:
		return max(0.75, base-0.1)
	default:
		return base
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func paragraphCount(full string) int {
	if full == "" {
		return 0
	}
	return strings.Count(full, "\n\n") + 1
}

// lastParagraphs keeps the tail of the continuation as the next prompt.
func lastParagraphs(full string, n int) string {
	parts := strings.Split(full, "\n\n")
	if len(parts) <= 1 {
		return full
	}
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	return strings.Join(parts, "\n\n")
}

// untilChoice generates segments until one reads as a decision point or a cap
// is hit. An oracle error on the first call fails the turn; later failures
// end the loop with what has been written so far.
func (e *Engine) untilChoice(ctx context.Context, s *story.Session, prompt, instruction, beat string) (string, error) {
	cfg := e.loop
	var full string

	for i := 0; i < cfg.MaxIterations; i++ {
		if paragraphCount(full) >= cfg.MaxParagraphs {
			break
		}

		current, system := prompt, instruction
		if i > 0 {
			current, system = lastParagraphs(full, 2), ""
		}

		params := e.params.
			WithMaxTokens(cfg.SegmentTokens).
			WithTemperature(DynamicTemperature(e.params.Temperature, current, i))

		segment, err := e.generate(ctx, s, llm.Prompt{System: system, User: current}, params)
		if err != nil {
			if i == 0 {
				return "", fmt.Errorf("generate segment: %w", err)
			}
			e.log.Warn("oracle failed mid-turn, keeping partial continuation", zap.Int("iteration", i), zap.Error(err))
			break
		}

		if segment == "" {
			e.log.Debug("empty or unusable segment", zap.Int("iteration", i))
			if i > 0 {
				break
			}
			segment, err = e.generate(ctx, s, llm.Prompt{System: system, User: current}, e.params.WithMaxTokens(cfg.RetryTokens))
			if err != nil {
				e.log.Warn("retry failed", zap.Error(err))
				break
			}
			if segment == "" {
				break
			}
		}

		if s.GenreState != nil && !s.GenreState.Check(segment) {
			segment = e.regenerate(ctx, s, current, beat, segment)
		}

		if full == "" {
			full = segment
		} else {
			full += "\n\n" + segment
		}
		s.KeyEvents.Track(segment)

		if IsDecisionPoint(segment) {
			break
		}
	}

	if full == "" && s.GenreState != nil {
		full = s.GenreState.Config.Fallback(beat)
	}
	return strings.TrimSpace(full + "\n\n" + DecisionMarker), nil
}

// regenerate retries a segment that broke genre rules with the constraints
// spelled out. A second violation is accepted.
func (e *Engine) regenerate(ctx context.Context, s *story.Session, current, beat, original string) string {
	cfg := s.GenreState.Config
	metrics.GenreViolations.WithLabelValues(cfg.Name).Inc()
	e.log.Info("genre drift detected, regenerating",
		zap.String("genre", cfg.Name),
		zap.String("beat", beat),
	)

	strict := genre.StrongerConstraintPrompt(cfg, current, beat)
	params := e.params.WithMaxTokens(e.loop.StrictTokens).WithTemperature(e.loop.StrictTemperature)
	out, err := e.generate(ctx, s, llm.Prompt{User: strict}, params)
	if err != nil || out == "" {
		e.log.Warn("strict regeneration produced nothing, keeping original segment", zap.Error(err))
		return original
	}
	if ok, violations := genre.ValidateConsistency(cfg, out); !ok {
		e.log.Info("regenerated segment still off-genre, accepting", zap.Strings("violations", violations))
	}
	return out
}
