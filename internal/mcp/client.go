package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// StoryClient calls the story tools of a StoryServer.
type StoryClient struct {
	client  *mcp.Client
	session *mcp.ClientSession
	log     *zap.Logger
}

func NewStoryClient(log *zap.Logger) *StoryClient {
	if log == nil {
		log = zap.NewNop()
	}
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "adaptive-story-client",
		Version: "v1.0.0",
	}, nil)
	return &StoryClient{client: client, log: log}
}

// Launch starts the server binary at path and connects to it over stdio.
func (c *StoryClient) Launch(ctx context.Context, path string, args ...string) error {
	return c.Connect(ctx, mcp.NewCommandTransport(exec.Command(path, args...)))
}

func (c *StoryClient) Connect(ctx context.Context, t mcp.Transport) error {
	session, err := c.client.Connect(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	c.session = session
	c.log.Debug("connected to story MCP server")
	return nil
}

func (c *StoryClient) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// call runs a tool and returns its first text block. A tool-level error
// comes back as a Go error carrying the tool's message.
func (c *StoryClient) call(ctx context.Context, name string, args any) (string, error) {
	if c.session == nil {
		return "", errors.New("story client is not connected")
	}
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", name, err)
	}

	var text string
	if len(result.Content) > 0 {
		if tc, ok := result.Content[0].(*mcp.TextContent); ok {
			text = tc.Text
		}
	}
	if result.IsError {
		return "", fmt.Errorf("%s: %s", name, text)
	}
	c.log.Debug("tool result", zap.String("tool", name), zap.Int("length", len(text)))
	return text, nil
}

func (c *StoryClient) turn(ctx context.Context, name string, args any) (TurnResult, error) {
	text, err := c.call(ctx, name, args)
	if err != nil {
		return TurnResult{}, err
	}
	var res TurnResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return TurnResult{}, fmt.Errorf("failed to parse %s result: %w", name, err)
	}
	return res, nil
}

func (c *StoryClient) StartStory(ctx context.Context, genre, prompt string) (TurnResult, error) {
	return c.turn(ctx, ToolStartStory, StartArgs{Genre: genre, Prompt: prompt})
}

func (c *StoryClient) TakeAction(ctx context.Context, sessionID, action string) (TurnResult, error) {
	return c.turn(ctx, ToolTakeAction, ActionArgs{SessionID: sessionID, Action: action})
}

func (c *StoryClient) ContinueStory(ctx context.Context, sessionID string) (TurnResult, error) {
	return c.turn(ctx, ToolContinueStory, SessionArgs{SessionID: sessionID})
}

func (c *StoryClient) StorySummary(ctx context.Context, sessionID string) (string, error) {
	return c.call(ctx, ToolStorySummary, SessionArgs{SessionID: sessionID})
}

func (c *StoryClient) PlayerProfile(ctx context.Context, sessionID string) (string, error) {
	return c.call(ctx, ToolPlayerProfile, SessionArgs{SessionID: sessionID})
}

// GenreStatus returns the raw JSON status document.
func (c *StoryClient) GenreStatus(ctx context.Context, sessionID string) (string, error) {
	return c.call(ctx, ToolGenreStatus, SessionArgs{SessionID: sessionID})
}

// ListTools lists the server's tools as "- name: description" lines.
func (c *StoryClient) ListTools(ctx context.Context) ([]string, error) {
	if c.session == nil {
		return nil, errors.New("story client is not connected")
	}
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	lines := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.Name, tool.Description))
	}
	return lines, nil
}
