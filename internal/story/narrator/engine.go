// Package narrator drives a story session turn by turn: it validates player
// actions, folds them into the profile, assembles prompts and runs the
// generate-until-choice loop against a text oracle.
package narrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/metrics"
	"adaptivestory/internal/story"
	"adaptivestory/internal/story/genre"
	"adaptivestory/internal/story/profile"
	"adaptivestory/internal/story/validate"
)

// DefaultGenre is used when StartStory gets no genre.
const DefaultGenre = "mystery"

// Engine holds no per-session state and may be shared across sessions.
type Engine struct {
	oracle    llm.Oracle
	validator *validate.Validator
	catalog   *genre.Catalog
	analyzer  *profile.Analyzer
	params    llm.Params
	loop      LoopConfig
	log       *zap.Logger
	tracer    trace.Tracer
}

type Option func(*Engine)

func WithValidator(v *validate.Validator) Option { return func(e *Engine) { e.validator = v } }
func WithCatalog(c *genre.Catalog) Option { return func(e *Engine) { e.catalog = c } }
func WithAnalyzer(a *profile.Analyzer) Option { return func(e *Engine) { e.analyzer = a } }
func WithParams(p llm.Params) Option { return func(e *Engine) { e.params = p } }
func WithLoop(l LoopConfig) Option { return func(e *Engine) { e.loop = l } }
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func New(oracle llm.Oracle, opts ...Option) *Engine {
	e := &Engine{
		oracle:    oracle,
		validator: validate.Default(),
		catalog:   genre.DefaultCatalog(),
		analyzer:  profile.DefaultAnalyzer(),
		params:    llm.DefaultParams(),
		loop:      DefaultLoopConfig(),
		log:       zap.NewNop(),
		tracer:    otel.Tracer("narrator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Catalog() *genre.Catalog { return e.catalog }
func (e *Engine) Analyzer() *profile.Analyzer { return e.analyzer }

// Outcome is the result of one player action. A rejected action carries only
// Status and Message and leaves the session untouched.
type Outcome struct {
	Status   validate.Status   `json:"status"`
	Severity validate.Severity `json:"severity,omitempty"`
	Text     string            `json:"text,omitempty"`
	Message  string            `json:"message,omitempty"`
	Beat     story.Beat        `json:"beat"`
}

func (o Outcome) Rejected() bool { return o.Status == validate.Rejected }

// StartStory opens a new session. A non-empty prompt replaces the genre's
// fixed opening. The returned text is the opening followed by the first
// continuation.
func (e *Engine) StartStory(ctx context.Context, genreName, prompt string) (*story.Session, string, error) {
	genreName = strings.ToLower(strings.TrimSpace(genreName))
	if genreName == "" {
		genreName = DefaultGenre
	}
	cfg := e.catalog.Lookup(genreName)
	s := story.NewSession(uuid.NewString(), genreName, cfg, e.analyzer)

	ctx, span := e.startTurn(ctx, s, "story.start")
	defer span.End()

	opening := strings.TrimSpace(prompt)
	if opening == "" {
		opening = Opening(genreName, cfg.Opening)
	}
	s.History = story.NewHistory(opening)

	e.log.Info("starting story",
		zap.String("session_id", s.ID),
		zap.String("genre", cfg.Name),
		zap.Int("beats", len(cfg.Beats)),
		zap.String("beat", s.GenreBeat()),
	)

	// The opening is continued as plain prose with no instruction block.
	text, err := e.untilChoice(ctx, s, opening, "", s.GenreBeat())
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}

	s.History.AddNarration(text)
	s.TrackElements(opening + " " + text)
	if s.GenreState != nil {
		s.GenreState.ExtractElements(text)
	}
	return s, opening + "\n\n" + text, nil
}

// ProcessUserAction runs one turn. Rejections are reported through the
// Outcome with a nil error; an error means the oracle could not be used and
// the history is unchanged.
func (e *Engine) ProcessUserAction(ctx context.Context, s *story.Session, action string) (Outcome, error) {
	res := e.validator.Validate(action)
	metrics.Turns.WithLabelValues(string(res.Status), string(res.Severity)).Inc()
	if res.Rejected() {
		s.LastRejection = res.Message
		e.log.Debug("action rejected", zap.String("session_id", s.ID), zap.String("message", res.Message))
		return Outcome{Status: res.Status, Message: res.Message, Beat: s.Beat}, nil
	}

	ctx, span := e.startTurn(ctx, s, "story.action")
	defer span.End()
	span.SetAttributes(
		attribute.String("story.action", action),
		attribute.String("story.severity", string(res.Severity)),
	)

	// The profile only keeps the action once the turn has been written.
	next := s.Profile.Clone()
	traits := next.Analyze(action)
	e.log.Debug("profile analyzed",
		zap.String("session_id", s.ID),
		zap.Int("traits", len(traits)),
		zap.String("archetype", next.Archetype),
	)

	beat := s.GenreBeat()
	window := story.BuildContext(s.History, s.KeyEvents, e.loop.ContextHistory)
	instruction := Instruction(res.Severity, next.NarrativeGuidance(), beat)

	text, err := e.untilChoice(ctx, s, window+"\n\n[Action: "+action+"]", instruction, beat)
	if err != nil {
		span.RecordError(err)
		return Outcome{}, err
	}

	*s.Profile = *next
	s.History.AddAction(action)
	s.History.AddNarration(text)
	s.RecordAction(action)
	s.TrackElements(text)
	if s.GenreState != nil {
		s.GenreState.ExtractElements(text)
	}
	s.LastRejection = ""

	span.SetAttributes(attribute.String("story.beat", s.Beat.String()))
	return Outcome{Status: res.Status, Severity: res.Severity, Text: text, Beat: s.Beat}, nil
}

// Continue writes another segment without a player action. It does not count
// toward the beat thresholds.
func (e *Engine) Continue(ctx context.Context, s *story.Session) (string, error) {
	ctx, span := e.startTurn(ctx, s, "story.continue")
	defer span.End()

	beat := s.GenreBeat()
	window := story.BuildContext(s.History, s.KeyEvents, e.loop.ContextHistory)
	instruction := Instruction(validate.Normal, s.Profile.NarrativeGuidance(), beat)

	text, err := e.untilChoice(ctx, s, window, instruction, beat)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	s.History.AddNarration(text)
	s.TrackElements(text)
	if s.GenreState != nil {
		s.GenreState.ExtractElements(text)
	}
	return text, nil
}

func (e *Engine) startTurn(ctx context.Context, s *story.Session, op string) (context.Context, trace.Span) {
	ctx = llm.WithSessionID(ctx, s.ID)
	ctx = llm.WithStoryContext(ctx, map[string]any{
		"genre":        s.Genre,
		"beat":         s.Beat.String(),
		"genre_beat":   s.GenreBeat(),
		"action_count": s.ActionCount,
	})
	ctx, span := e.tracer.Start(ctx, op)
	llm.CopyStoryContextToSpan(ctx, span)
	return ctx, span
}

func (e *Engine) generate(ctx context.Context, s *story.Session, p llm.Prompt, params llm.Params) (string, error) {
	p.Genre = s.Genre
	return llm.GenerateClean(llm.WithOperationType(ctx, "story.segment"), e.oracle, p, params)
}

// Summary is a readable report of the session state.
func Summary(s *story.Session) string {
	var b strings.Builder
	b.WriteString("📖 STORY STATE\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Current Beat: %s\n", strings.ToUpper(s.Beat.String()))
	fmt.Fprintf(&b, "Actions Taken: %d\n", len(s.UserActions))
	fmt.Fprintf(&b, "Story Segments: %d\n\n", s.History.Len())

	fmt.Fprintf(&b, "🧠 Player Archetype: %s\n", s.Profile.Archetype)
	fmt.Fprintf(&b, "Decisions Analyzed: %d\n\n", s.Profile.ActionCount())

	if len(s.Characters) > 0 {
		fmt.Fprintf(&b, "Characters (%d):\n", len(s.Characters))
		for _, c := range s.TopCharacters(10) {
			fmt.Fprintf(&b, "  - %s (mentioned %dx)\n", c.Name, c.Mentions)
		}
	}

	b.WriteString("\n📝 Recent Story:\n")
	b.WriteString(strings.Repeat("-", 50) + "\n")
	b.WriteString(strings.Join(s.History.Recent(2), "\n\n"))
	return b.String()
}
