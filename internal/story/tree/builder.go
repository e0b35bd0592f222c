package tree

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/metrics"
)

const (
	DefaultThrottle    = 500 * time.Millisecond
	DefaultTargetNodes = 25
	DefaultMaxDepth    = 5

	initialChoiceTokens = 80
	choiceTokens        = 60
	nodeTokens          = 120

	// maxChoiceLen drops list lines that are prose rather than a choice.
	maxChoiceLen = 60
	// contextTail is how much of a node's text the choice prompt sees.
	contextTail = 300

	emptyNodeText = "The story continues in an unexpected direction..."
	endingSuffix  = "\n\n**THE END**\n\nThank you for playing!"
)

var endingPhrases = []string{
	"case closed", "mystery solved", "the end", "finally over",
	"mission complete", "victory", "defeated", "escaped",
	"died", "killed", "dead", "game over", "lost",
}

// ProgressFunc is told about every node before it is generated.
type ProgressFunc func(built, target int, nodeID string, depth int)

// Builder expands a story tree breadth-first. It may be reused but not for
// two trees at once.
type Builder struct {
	oracle   llm.Oracle
	params   llm.Params
	throttle time.Duration
	progress ProgressFunc
	log      *zap.Logger
	tracer   trace.Tracer
}

type Option func(*Builder)

// WithThrottle sets the pause between generated nodes. Zero disables it.
func WithThrottle(d time.Duration) Option {
	return func(b *Builder) { b.throttle = d }
}

func WithParams(p llm.Params) Option {
	return func(b *Builder) { b.params = p }
}

func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) { b.progress = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.log = l }
}

func NewBuilder(oracle llm.Oracle, opts ...Option) *Builder {
	b := &Builder{
		oracle:   oracle,
		params:   llm.DefaultParams(),
		throttle: DefaultThrottle,
		log:      zap.NewNop(),
		tracer:   otel.Tracer("tree"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// pending is a queued node id with the choice text that leads to it.
type pending struct {
	id     string
	choice string
}

// GenerateTree builds a tree of at most targetNodes nodes. Queued ids left
// when the budget runs out are never materialized and stay as dangling
// choice targets. Only an unusable oracle fails the build.
func (b *Builder) GenerateTree(ctx context.Context, genreName string, targetNodes, maxDepth int) (*Tree, error) {
	name, ok := resolveGenre(genreName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenre, genreName)
	}
	seed := seeds[name]

	ctx = llm.WithStoryContext(ctx, map[string]any{
		"genre":        name,
		"target_nodes": targetNodes,
		"max_depth":    maxDepth,
	})
	ctx, span := b.tracer.Start(ctx, "tree.generate")
	defer span.End()
	llm.CopyStoryContextToSpan(ctx, span)

	b.log.Info("generating story tree",
		zap.String("genre", name),
		zap.Int("target_nodes", targetNodes),
		zap.Int("max_depth", maxDepth),
	)

	t := newTree(name)
	t.Title = seed.title
	t.Characters = extractCharacters(seed.opening)
	t.Locations = extractLocations(seed.opening)

	start, err := b.initialChoices(ctx, name, seed)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	t.Nodes[StartNodeID] = &Node{NodeID: StartNodeID, Text: seed.opening, Choices: start}
	metrics.TreeNodes.WithLabelValues(name).Inc()

	queue := make([]pending, 0, len(start))
	for _, c := range start {
		queue = append(queue, pending{id: c.LeadsTo, choice: c.Text})
	}

	built := 1
	for len(queue) > 0 && built < targetNodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := queue[0]
		queue = queue[1:]

		path := t.pathTo(next.id)
		depth := len(path)
		prior := t.contextFor(path)

		if depth > maxDepth {
			t.Nodes[next.id] = &Node{NodeID: next.id, Text: prior + endingSuffix, IsEnding: true, Depth: depth}
			metrics.TreeNodes.WithLabelValues(name).Inc()
			built++
			continue
		}

		if b.progress != nil {
			b.progress(built, targetNodes, next.id, depth)
		}
		ending := func(text string) bool {
			return depth >= maxDepth-1 || built >= targetNodes-3 || isNaturalEnding(text)
		}
		node, err := b.buildNode(ctx, name, next, prior, depth, ending)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		t.Nodes[node.NodeID] = node
		metrics.TreeNodes.WithLabelValues(name).Inc()
		for _, c := range node.Choices {
			if _, exists := t.Nodes[c.LeadsTo]; !exists {
				queue = append(queue, pending{id: c.LeadsTo, choice: c.Text})
			}
		}
		built++

		if err := b.pause(ctx); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.Int("tree.nodes", len(t.Nodes)),
		attribute.Int("tree.endings", t.Endings()),
	)
	b.log.Info("story tree generated",
		zap.String("title", t.Title),
		zap.Int("nodes", len(t.Nodes)),
		zap.Int("dangling", len(queue)),
	)
	return t, nil
}

func (b *Builder) buildNode(ctx context.Context, genreName string, p pending, prior string, depth int, ending func(string) bool) (*Node, error) {
	ctx, span := b.tracer.Start(ctx, "tree.node", trace.WithAttributes(
		attribute.String("tree.node_id", p.id),
		attribute.Int("tree.depth", depth),
	))
	defer span.End()

	text, err := b.nodeText(ctx, genreName, prior, p.choice)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	node := &Node{NodeID: p.id, Text: text, Depth: depth, Choices: []Choice{}}

	if ending(text) {
		node.IsEnding = true
		span.SetAttributes(attribute.Bool("tree.is_ending", true))
		return node, nil
	}

	node.Choices, err = b.nodeChoices(ctx, genreName, p.id, text, depth)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return node, nil
}

func (b *Builder) initialChoices(ctx context.Context, genreName string, seed genreSeed) ([]Choice, error) {
	prompt := fmt.Sprintf(`Based on this %s story opening, generate 3 distinct choices the protagonist could make.

Story opening:
%s

List 3 choices in this exact format:
1. [Action-focused choice]
2. [Investigation/Analysis choice]
3. [Social/Communication choice]

Keep each choice to 4-6 words.`, genreName, seed.opening)
	system := "You are generating player choices for an interactive story. Be concise and action-oriented."

	resp, err := b.ask(ctx, system, prompt, initialChoiceTokens)
	if err != nil {
		return nil, fmt.Errorf("initial choices: %w", err)
	}
	texts := parseChoices(resp, seed.defaults, 3)
	choices := make([]Choice, 0, len(texts))
	for i, text := range texts {
		choices = append(choices, Choice{
			Text:    text,
			LeadsTo: fmt.Sprintf("node_%d", i+1),
			Type:    startTypes[i],
		})
	}
	return choices, nil
}

func (b *Builder) nodeText(ctx context.Context, genreName, prior, choice string) (string, error) {
	prompt := fmt.Sprintf(`Continue this %s story based on the character's action.

Story so far:
%s

Character's action: %s

Write 2-3 short paragraphs showing what happens as a direct result of this action. Keep the same characters and setting. Focus on immediate consequences and new developments.`, genreName, prior, choice)
	system := fmt.Sprintf(`You are continuing a %s story.
- Stay with the same characters
- Keep the same setting
- Show direct results of the action
- Create tension or reveal new information
- Write 2-3 paragraphs maximum`, genreName)

	text, err := llm.GenerateClean(llm.WithOperationType(ctx, "tree.node"), b.oracle,
		llm.Prompt{System: system, User: prompt, Genre: genreName},
		b.params.WithMaxTokens(nodeTokens))
	if err != nil {
		return "", fmt.Errorf("node text: %w", err)
	}
	if text == "" {
		b.log.Debug("empty node text, using fallback")
		return emptyNodeText, nil
	}
	return text, nil
}

func (b *Builder) nodeChoices(ctx context.Context, genreName, nodeID, text string, depth int) ([]Choice, error) {
	n := 3
	if depth >= 3 {
		n = 2
	}
	list := "1. [Choice 1]\n2. [Choice 2]"
	if n == 3 {
		list += "\n3. [Choice 3]"
	}
	prompt := fmt.Sprintf(`Based on this story segment, generate %d distinct choices for what to do next.

Current situation:
%s

List %d choices in format:
%s

Each choice should be 4-6 words and action-oriented.`, n, tail(text, contextTail), n, list)

	resp, err := b.ask(ctx, "", prompt, choiceTokens)
	if err != nil {
		return nil, fmt.Errorf("node choices: %w", err)
	}
	texts := parseChoices(resp, seeds[genreName].defaults, n)
	if len(texts) > n {
		texts = texts[:n]
	}
	choices := make([]Choice, 0, len(texts))
	for i, t := range texts {
		choices = append(choices, Choice{
			Text:    t,
			LeadsTo: fmt.Sprintf("%s_%d", nodeID, i+1),
			Type:    "action",
		})
	}
	return choices, nil
}

// ask returns the raw reply. Numbered lists do not survive prose cleaning,
// so choice prompts skip llm.Clean.
func (b *Builder) ask(ctx context.Context, system, user string, maxTokens int) (string, error) {
	raw, err := b.oracle.Generate(llm.WithOperationType(ctx, "tree.choices"),
		llm.Prompt{System: system, User: user},
		b.params.WithMaxTokens(maxTokens))
	if errors.Is(err, llm.ErrEmptyResponse) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (b *Builder) pause(ctx context.Context) error {
	if b.throttle <= 0 {
		return nil
	}
	timer := time.NewTimer(b.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseChoices strips list numbering from each line and keeps the first want.
// Fewer than want usable lines means the reply is discarded in favour of
// defaults.
func parseChoices(resp string, defaults []string, want int) []string {
	var choices []string
	for _, line := range strings.Split(resp, "\n") {
		cleaned := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "0123456789.-) "))
		if cleaned != "" && len(cleaned) < maxChoiceLen {
			choices = append(choices, cleaned)
		}
	}
	if len(choices) < want {
		choices = defaults
	}
	if len(choices) > want {
		choices = choices[:want]
	}
	return append([]string(nil), choices...)
}

func isNaturalEnding(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range endingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// pathTo returns the ids from the start node down to id's parent, found by
// a depth-first walk of the choices built so far.
func (t *Tree) pathTo(id string) []string {
	if id == StartNodeID {
		return nil
	}
	visited := make(map[string]bool)
	var walk func(current string, path []string) []string
	walk = func(current string, path []string) []string {
		if current == id {
			return path
		}
		node, ok := t.Nodes[current]
		if !ok || visited[current] {
			return nil
		}
		visited[current] = true
		for _, c := range node.Choices {
			next := append(append([]string(nil), path...), current)
			if found := walk(c.LeadsTo, next); found != nil {
				return found
			}
		}
		return nil
	}
	if path := walk(StartNodeID, nil); path != nil {
		return path
	}
	return []string{StartNodeID}
}

// contextFor joins the text of the last two nodes on path.
func (t *Tree) contextFor(path []string) string {
	if len(path) > 2 {
		path = path[len(path)-2:]
	}
	parts := make([]string, 0, len(path))
	for _, id := range path {
		if n, ok := t.Nodes[id]; ok {
			parts = append(parts, n.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

var fullName = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)

func extractCharacters(text string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, name := range fullName.FindAllString(text, -1) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == 5 {
			break
		}
	}
	return out
}

var locationKeywords = []string{"room", "study", "trench", "temple", "asylum", "street", "building", "house"}

func extractLocations(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, kw := range locationKeywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}
