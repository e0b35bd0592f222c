package tree

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivestory/internal/llm"
)

type recorded struct {
	prompts []llm.Prompt
	params  []llm.Params
}

// storyOracle answers list prompts with three choices and everything else
// with one quiet sentence.
func storyOracle(rec *recorded) llm.Oracle {
	return llm.OracleFunc(func(_ context.Context, p llm.Prompt, params llm.Params) (string, error) {
		rec.prompts = append(rec.prompts, p)
		rec.params = append(rec.params, params)
		if strings.Contains(p.User, "\nList ") {
			return "1. Open the door\n2. Read the letter\n3. Call for help", nil
		}
		return "The hall stretches on, quiet and cold.", nil
	})
}

func TestGenerateTree(t *testing.T) {
	rec := &recorded{}
	var progressed []string
	b := NewBuilder(storyOracle(rec), WithThrottle(0), WithProgress(func(_, _ int, id string, _ int) {
		progressed = append(progressed, id)
	}))

	tr, err := b.GenerateTree(context.Background(), "Mystery", 7, 3)
	require.NoError(t, err)

	assert.Equal(t, "detective", tr.Genre)
	assert.Equal(t, "The Thornton Case", tr.Title)
	assert.Equal(t, StartNodeID, tr.StartNode)
	assert.Contains(t, tr.Characters, "Marcus Thornton")
	assert.Equal(t, []string{"study"}, tr.Locations)

	require.Len(t, tr.Nodes, 7)
	for _, id := range []string{"start", "node_1", "node_2", "node_3", "node_1_1", "node_1_2", "node_1_3"} {
		assert.Contains(t, tr.Nodes, id)
	}

	start := tr.Nodes[StartNodeID]
	require.Len(t, start.Choices, 3)
	assert.Equal(t, Choice{Text: "Open the door", LeadsTo: "node_1", Type: "action"}, start.Choices[0])
	assert.Equal(t, "investigate", start.Choices[1].Type)
	assert.Equal(t, "social", start.Choices[2].Type)

	n1 := tr.Nodes["node_1"]
	assert.Equal(t, 1, n1.Depth)
	assert.False(t, n1.IsEnding)
	assert.Equal(t, "node_1_2", n1.Choices[1].LeadsTo)

	leaf := tr.Nodes["node_1_1"]
	assert.Equal(t, 2, leaf.Depth)
	assert.True(t, leaf.IsEnding)
	assert.Empty(t, leaf.Choices)

	assert.Equal(t, 3, tr.Endings())
	assert.Len(t, tr.Dangling(), 6)
	assert.Len(t, rec.prompts, 10)
	assert.Equal(t, []string{"node_1", "node_2", "node_3", "node_1_1", "node_1_2", "node_1_3"}, progressed)

	// The second prompt narrates node_1 from the choice that leads to it.
	assert.Contains(t, rec.prompts[1].User, "Character's action: Open the door")
	assert.Contains(t, rec.prompts[1].User, "Detective Sarah Chen")
	assert.Equal(t, 120, rec.params[1].MaxNewTokens)
}

func TestGenerateTreeBeyondMaxDepthEnds(t *testing.T) {
	rec := &recorded{}
	tr, err := NewBuilder(storyOracle(rec), WithThrottle(0)).GenerateTree(context.Background(), "horror", 25, 0)
	require.NoError(t, err)

	require.Len(t, tr.Nodes, 4)
	assert.Len(t, rec.prompts, 1)
	end := tr.Nodes["node_2"]
	assert.True(t, end.IsEnding)
	assert.True(t, strings.HasPrefix(end.Text, seeds["horror"].opening))
	assert.True(t, strings.HasSuffix(end.Text, "**THE END**\n\nThank you for playing!"))
}

func TestGenerateTreeNaturalEnding(t *testing.T) {
	o := llm.OracleFunc(func(_ context.Context, p llm.Prompt, _ llm.Params) (string, error) {
		if strings.Contains(p.User, "\nList ") {
			return "garbled", nil
		}
		return "The case closed at midnight.", nil
	})
	tr, err := NewBuilder(o, WithThrottle(0)).GenerateTree(context.Background(), "war", 25, 5)
	require.NoError(t, err)

	assert.Equal(t, seeds["war"].defaults[0], tr.Nodes[StartNodeID].Choices[0].Text)
	require.Len(t, tr.Nodes, 4)
	assert.True(t, tr.Nodes["node_3"].IsEnding)
}

func TestGenerateTreeErrors(t *testing.T) {
	_, err := NewBuilder(storyOracle(&recorded{})).GenerateTree(context.Background(), "cooking", 5, 3)
	assert.ErrorIs(t, err, ErrUnknownGenre)

	down := llm.OracleFunc(func(context.Context, llm.Prompt, llm.Params) (string, error) {
		return "", llm.ErrOracleUnavailable
	})
	_, err = NewBuilder(down).GenerateTree(context.Background(), "thriller", 5, 3)
	assert.ErrorIs(t, err, llm.ErrOracleUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBuilder(storyOracle(&recorded{})).GenerateTree(ctx, "adventure", 5, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseChoices(t *testing.T) {
	defaults := []string{"a", "b", "c"}

	got := parseChoices("1. Open the door\n2) Read the letter\n\n- Call for help\n4. Extra", defaults, 3)
	assert.Equal(t, []string{"Open the door", "Read the letter", "Call for help"}, got)

	long := "1. " + strings.Repeat("word ", 20) + "\n2. Run\n3. Hide"
	assert.Equal(t, defaults, parseChoices(long, defaults, 3))
	assert.Equal(t, defaults, parseChoices("", defaults, 3))

	two := "1. Open the red door\n2. Climb the rope"
	assert.Equal(t, []string{"Open the red door", "Climb the rope"}, parseChoices(two, defaults, 2))
	assert.Equal(t, defaults, parseChoices(two, defaults, 3))
	assert.Equal(t, []string{"Open the door", "Read the letter"}, parseChoices(got[0]+"\n"+got[1]+"\n"+got[2], defaults, 2))
}

func TestDeepNodesKeepTwoGeneratedChoices(t *testing.T) {
	o := llm.OracleFunc(func(context.Context, llm.Prompt, llm.Params) (string, error) {
		return "1. Open the red door\n2. Climb the rope", nil
	})
	b := NewBuilder(o, WithThrottle(0))

	deep, err := b.nodeChoices(context.Background(), "detective", "node_1_1_1", "A rope hangs down.", 3)
	require.NoError(t, err)
	require.Len(t, deep, 2)
	assert.Equal(t, Choice{Text: "Open the red door", LeadsTo: "node_1_1_1_1", Type: "action"}, deep[0])
	assert.Equal(t, "Climb the rope", deep[1].Text)

	shallow, err := b.nodeChoices(context.Background(), "detective", "node_1", "A rope hangs down.", 1)
	require.NoError(t, err)
	require.Len(t, shallow, 3)
	assert.Equal(t, seeds["detective"].defaults[0], shallow[0].Text)
}

func TestIsNaturalEnding(t *testing.T) {
	assert.True(t, isNaturalEnding("And so the war was LOST."))
	assert.True(t, isNaturalEnding("Mission complete."))
	assert.False(t, isNaturalEnding("The door creaks."))
}

func sampleTree() *Tree {
	t := newTree("detective")
	t.Title = "Sample"
	t.Nodes["start"] = &Node{NodeID: "start", Text: "Opening.", Choices: []Choice{
		{Text: "Examine the body", LeadsTo: "node_1", Type: "action"},
		{Text: "Search for clues", LeadsTo: "node_2", Type: "investigate"},
		{Text: "Question witnesses", LeadsTo: "node_3", Type: "social"},
	}}
	t.Nodes["node_1"] = &Node{NodeID: "node_1", Text: "The body is cold.", Depth: 1, Choices: []Choice{
		{Text: "Follow the trail", LeadsTo: "node_1_1", Type: "action"},
	}}
	t.Nodes["node_1_1"] = &Node{NodeID: "node_1_1", Text: "Case closed.", Depth: 2, IsEnding: true}
	t.Nodes["node_2"] = &Node{NodeID: "node_2", Text: "A smudge on the glass.", Depth: 1, Choices: []Choice{}}
	return t
}

func TestMatchChoice(t *testing.T) {
	choices := sampleTree().Nodes["start"].Choices

	c, score, ok := MatchChoice("  EXAMINE the Body ", choices)
	require.True(t, ok)
	assert.Equal(t, "node_1", c.LeadsTo)
	assert.Equal(t, 1.0, score)

	c, score, ok = MatchChoice("examine body", choices)
	require.True(t, ok)
	assert.Equal(t, "node_1", c.LeadsTo)
	assert.Greater(t, score, MatchThreshold)

	_, score, ok = MatchChoice("xyzzy", choices)
	assert.False(t, ok)
	assert.LessOrEqual(t, score, MatchThreshold)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("search for clues", "search for clues"))
	assert.InDelta(t, 2.0/3.0, wordOverlap("clues for me", "search for clues"), 1e-9)
	assert.InDelta(t, 0.75, sequenceRatio("abcd", "abce"), 1e-9)
}

func TestPlayerFollowsTree(t *testing.T) {
	p := NewPlayer(sampleTree())

	resp := p.Start()
	assert.Equal(t, NodeResponse, resp.Type)
	assert.Equal(t, "Opening.", resp.Text)
	assert.Len(t, resp.Choices, 3)

	resp, err := p.MakeChoice(context.Background(), "examine body")
	require.NoError(t, err)
	assert.Equal(t, NodeResponse, resp.Type)
	assert.Equal(t, "Examine the body", resp.MatchedChoice)
	assert.Equal(t, "The body is cold.", resp.Text)

	resp, err = p.MakeChoice(context.Background(), "follow the trail")
	require.NoError(t, err)
	assert.True(t, resp.IsEnding)
	assert.Equal(t, "node_1_1", resp.NodeID)

	resp, err = p.MakeChoice(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, EndingResponse, resp.Type)
	assert.True(t, resp.IsEnding)

	assert.Equal(t, []string{"start", "node_1", "node_1_1"}, p.State().History)

	resp = p.Restart()
	assert.Equal(t, "Opening.", resp.Text)
	assert.Equal(t, []string{"start"}, p.State().History)
}

func TestPlayerStartTwiceKeepsOneVisit(t *testing.T) {
	p := NewPlayer(sampleTree())
	p.Start()
	_, err := p.MakeChoice(context.Background(), "examine body")
	require.NoError(t, err)

	p.Start()
	p.Start()
	assert.Equal(t, []string{"start"}, p.State().History)
	assert.Equal(t, StartNodeID, p.State().CurrentNodeID)
}

func TestPlayerDanglingChoice(t *testing.T) {
	p := NewPlayer(sampleTree())
	p.Start()

	resp, err := p.MakeChoice(context.Background(), "Question witnesses")
	require.NoError(t, err)
	assert.Equal(t, IncompleteResponse, resp.Type)
	assert.True(t, resp.IsEnding)
	assert.Equal(t, "start", p.State().CurrentNodeID)
}

func TestPlayerClarifiesWithoutFallback(t *testing.T) {
	p := NewPlayer(sampleTree())
	p.Start()

	resp, err := p.MakeChoice(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.Equal(t, ClarificationResponse, resp.Type)
	assert.Contains(t, resp.Text, "- Examine the body\n- Search for clues\n- Question witnesses")
	assert.Len(t, resp.Choices, 3)
	assert.False(t, p.FallbackEnabled())
}

func TestPlayerCreativeFallback(t *testing.T) {
	var seen llm.Prompt
	o := llm.OracleFunc(func(_ context.Context, prompt llm.Prompt, _ llm.Params) (string, error) {
		seen = prompt
		return "You dance. The crowd stares.", nil
	})
	p := NewPlayer(sampleTree(), WithFallback(o))
	p.Start()

	resp, err := p.MakeChoice(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.Equal(t, CreativeResponse, resp.Type)
	assert.Equal(t, "You dance. The crowd stares.\n\n*[Story returns to main path]*", resp.Text)
	assert.Equal(t, "xyzzy", resp.CreativeAction)
	assert.Len(t, resp.Choices, 3)
	assert.Equal(t, "start", p.State().CurrentNodeID)

	assert.Contains(t, seen.User, "The character's action: xyzzy")
	assert.Contains(t, seen.User, "Story so far:\nOpening.")
	assert.Contains(t, seen.System, "continuing a detective story")

	down := llm.OracleFunc(func(context.Context, llm.Prompt, llm.Params) (string, error) {
		return "", llm.ErrOracleUnavailable
	})
	p = NewPlayer(sampleTree(), WithFallback(down))
	p.Start()
	_, err = p.MakeChoice(context.Background(), "xyzzy")
	assert.ErrorIs(t, err, llm.ErrOracleUnavailable)
}

func TestTreeSaveLoad(t *testing.T) {
	tr := sampleTree()
	var buf bytes.Buffer
	require.NoError(t, tr.Save(&buf))
	assert.Contains(t, buf.String(), `"start_node": "start"`)
	assert.Contains(t, buf.String(), `"leads_to": "node_1"`)

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, tr, loaded)

	_, err = Load(strings.NewReader(`{"genre":"x","nodes":{}}`))
	assert.Error(t, err)
}

func TestPlayerProgress(t *testing.T) {
	p := NewPlayer(sampleTree())
	p.Start()
	_, err := p.MakeChoice(context.Background(), "Examine the body")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.SaveProgress(&buf))
	assert.Contains(t, buf.String(), `"tree_title": "Sample"`)

	other := NewPlayer(sampleTree())
	state, err := other.LoadProgress(&buf)
	require.NoError(t, err)
	assert.Equal(t, "node_1", state.CurrentNodeID)
	assert.Equal(t, []string{"start", "node_1"}, state.History)
	assert.Equal(t, "The body is cold.", state.Text)
	assert.Equal(t, "Sample", state.StoryTitle)

	_, err = other.LoadProgress(strings.NewReader(`{"current_node_id":"nowhere"}`))
	assert.Error(t, err)
}
