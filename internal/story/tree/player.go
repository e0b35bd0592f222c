package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/metrics"
)

type ResponseType string

const (
	NodeResponse          ResponseType = "tree_node"
	EndingResponse        ResponseType = "ending"
	IncompleteResponse    ResponseType = "incomplete_path"
	CreativeResponse      ResponseType = "ai_creative"
	ClarificationResponse ResponseType = "clarification"
)

const (
	storyComplete  = "**Story Complete**\n\nWould you like to play again?"
	incompletePath = "This path hasn't been fully developed yet.\n\n**Story Complete**"
	returnMarker   = "\n\n*[Story returns to main path]*"

	creativeTokens = 120
	// recentNodes is how many visited nodes anchor a creative continuation.
	recentNodes = 3
)

type Response struct {
	Text           string       `json:"text"`
	Choices        []Choice     `json:"choices"`
	IsEnding       bool         `json:"is_ending"`
	Type           ResponseType `json:"type"`
	NodeID         string       `json:"node_id,omitempty"`
	MatchedChoice  string       `json:"matched_choice,omitempty"`
	CreativeAction string       `json:"creative_action,omitempty"`
}

// State describes the player's cursor.
type State struct {
	CurrentNodeID string   `json:"current_node_id"`
	Text          string   `json:"text"`
	Choices       []Choice `json:"choices"`
	IsEnding      bool     `json:"is_ending"`
	History       []string `json:"history"`
	StoryTitle    string   `json:"story_title"`
	Genre         string   `json:"genre"`
}

type progress struct {
	TreeTitle     string   `json:"tree_title"`
	CurrentNodeID string   `json:"current_node_id"`
	History       []string `json:"history"`
}

// Player walks one tree for one reader. It is not safe for concurrent use.
type Player struct {
	tree    *Tree
	current string
	history []string

	// oracle is nil when live generation for unmatched input is off.
	oracle llm.Oracle
	params llm.Params
	log    *zap.Logger
	tracer trace.Tracer
}

type PlayerOption func(*Player)

// WithFallback enables live generation for input that matches no choice.
func WithFallback(o llm.Oracle) PlayerOption {
	return func(p *Player) { p.oracle = o }
}

func WithPlayerLogger(l *zap.Logger) PlayerOption {
	return func(p *Player) { p.log = l }
}

func NewPlayer(t *Tree, opts ...PlayerOption) *Player {
	p := &Player{
		tree:    t,
		current: t.StartNode,
		params:  llm.DefaultParams(),
		log:     zap.NewNop(),
		tracer:  otel.Tracer("tree"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) Tree() *Tree { return p.tree }

func (p *Player) FallbackEnabled() bool { return p.oracle != nil }

// Start moves to the start node with a fresh visited history and returns it.
func (p *Player) Start() Response {
	p.current = p.tree.StartNode
	p.history = []string{p.current}
	node := p.tree.Nodes[p.current]
	return nodeResponse(node)
}

// Restart starts over from the start node.
func (p *Player) Restart() Response {
	return p.Start()
}

// MakeChoice advances along the matched choice, or answers unmatched input
// with a creative continuation that keeps the current choices. The error is
// non-nil only when the fallback oracle is unusable.
func (p *Player) MakeChoice(ctx context.Context, input string) (Response, error) {
	node, ok := p.tree.Nodes[p.current]
	if !ok || len(node.Choices) == 0 {
		return p.count(Response{Text: storyComplete, Choices: []Choice{}, IsEnding: true, Type: EndingResponse}), nil
	}

	if choice, score, matched := MatchChoice(input, node.Choices); matched {
		next, exists := p.tree.Nodes[choice.LeadsTo]
		if !exists {
			p.log.Debug("choice leads to unbuilt node", zap.String("node_id", choice.LeadsTo))
			return p.count(Response{Text: incompletePath, Choices: []Choice{}, IsEnding: true, Type: IncompleteResponse}), nil
		}
		p.current = next.NodeID
		p.history = append(p.history, next.NodeID)
		p.log.Debug("choice matched",
			zap.String("choice", choice.Text),
			zap.Float64("score", score),
			zap.String("node_id", next.NodeID),
		)
		resp := nodeResponse(next)
		resp.MatchedChoice = choice.Text
		return p.count(resp), nil
	}

	if p.oracle == nil {
		lines := make([]string, 0, len(node.Choices))
		for _, c := range node.Choices {
			lines = append(lines, "- "+c.Text)
		}
		return p.count(Response{
			Text:    "I didn't understand that. Please choose from:\n\n" + strings.Join(lines, "\n"),
			Choices: node.Choices,
			Type:    ClarificationResponse,
			NodeID:  node.NodeID,
		}), nil
	}

	resp, err := p.creative(ctx, node, input)
	if err != nil {
		return Response{}, err
	}
	return p.count(resp), nil
}

func (p *Player) creative(ctx context.Context, node *Node, input string) (Response, error) {
	ctx, span := p.tracer.Start(ctx, "tree.creative", trace.WithAttributes(
		attribute.String("tree.node_id", node.NodeID),
		attribute.String("tree.input", input),
	))
	defer span.End()

	prompt := fmt.Sprintf(`Continue this story based on the character's creative action.

Story so far:
%s

Current situation:
%s

The character's action: %s

Write 2-3 short paragraphs showing what happens. Then present the same choices that were available before.`, p.recentContext(), node.Text, input)
	system := fmt.Sprintf(`You are continuing a %s story.
- Show the result of the character's action
- Keep it brief (2-3 paragraphs)
- Return to the main story path
- Stay consistent with established characters and setting`, p.tree.Genre)

	text, err := llm.GenerateClean(llm.WithOperationType(ctx, "tree.creative"), p.oracle,
		llm.Prompt{System: system, User: prompt, Genre: p.tree.Genre},
		p.params.WithMaxTokens(creativeTokens))
	if err != nil {
		span.RecordError(err)
		return Response{}, fmt.Errorf("creative continuation: %w", err)
	}
	if text == "" {
		text = emptyNodeText
	}
	return Response{
		Text:           text + returnMarker,
		Choices:        node.Choices,
		Type:           CreativeResponse,
		NodeID:         node.NodeID,
		CreativeAction: input,
	}, nil
}

func (p *Player) recentContext() string {
	recent := p.history
	if len(recent) > recentNodes {
		recent = recent[len(recent)-recentNodes:]
	}
	parts := make([]string, 0, len(recent))
	for _, id := range recent {
		if n, ok := p.tree.Nodes[id]; ok {
			parts = append(parts, n.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (p *Player) count(r Response) Response {
	metrics.TreeChoices.WithLabelValues(string(r.Type)).Inc()
	return r
}

func (p *Player) State() State {
	s := State{
		CurrentNodeID: p.current,
		Choices:       []Choice{},
		History:       append([]string{}, p.history...),
		StoryTitle:    p.tree.Title,
		Genre:         p.tree.Genre,
	}
	if s.StoryTitle == "" {
		s.StoryTitle = "Untitled"
	}
	if node, ok := p.tree.Nodes[p.current]; ok {
		s.Text = node.Text
		s.Choices = node.Choices
		s.IsEnding = node.IsEnding
	}
	return s
}

func (p *Player) SaveProgress(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(progress{TreeTitle: p.tree.Title, CurrentNodeID: p.current, History: p.history})
}

// LoadProgress restores a cursor written by SaveProgress.
func (p *Player) LoadProgress(r io.Reader) (State, error) {
	var prog progress
	if err := json.NewDecoder(r).Decode(&prog); err != nil {
		return State{}, fmt.Errorf("decode progress: %w", err)
	}
	if _, ok := p.tree.Nodes[prog.CurrentNodeID]; !ok {
		return State{}, fmt.Errorf("progress points at unknown node %q", prog.CurrentNodeID)
	}
	p.current = prog.CurrentNodeID
	p.history = prog.History
	return p.State(), nil
}

func nodeResponse(n *Node) Response {
	choices := n.Choices
	if choices == nil {
		choices = []Choice{}
	}
	return Response{
		Text:     n.Text,
		Choices:  choices,
		IsEnding: n.IsEnding,
		Type:     NodeResponse,
		NodeID:   n.NodeID,
	}
}
