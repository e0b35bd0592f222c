package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/session"
	"adaptivestory/internal/story/chapter"
	"adaptivestory/internal/story/narrator"
)

// StoryServer exposes one narrator engine over MCP. Sessions are shared with
// whatever else uses the same session store.
type StoryServer struct {
	engine   *narrator.Engine
	sessions *session.Store
	model    string
	log      *zap.Logger
	server   *mcp.Server
}

func NewStoryServer(engine *narrator.Engine, sessions *session.Store, model string, log *zap.Logger) *StoryServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &StoryServer{
		engine:   engine,
		sessions: sessions,
		model:    model,
		log:      log,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "adaptive-story",
			Version: "v1.0.0",
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolStartStory,
		Description: "Start a new interactive story and return its opening and session id.",
	}, s.startStory)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolTakeAction,
		Description: "Take a player action in a story. Say \"continue\" to let the story move on by itself.",
	}, s.takeAction)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolContinueStory,
		Description: "Continue the story without a player action.",
	}, s.continueStory)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolStorySummary,
		Description: "Summarize the story so far: beat, actions, characters and recent text.",
	}, s.storySummary)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolPlayerProfile,
		Description: "Describe the personality the player has shown through their actions.",
	}, s.playerProfile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGenreStatus,
		Description: "Report the genre beat, violations and tracked genre elements.",
	}, s.genreStatus)
	return s
}

// Run serves on stdin/stdout until the client disconnects or ctx ends.
func (s *StoryServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, mcp.NewStdioTransport())
}

// Connect serves a single client on transport.
func (s *StoryServer) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t)
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	res := textResult(fmt.Sprintf(format, args...))
	res.IsError = true
	return res
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// turnError turns an engine failure into a tool error the model can read.
func (s *StoryServer) turnError(op string, err error) *mcp.CallToolResultFor[any] {
	s.log.Warn("tool failed", zap.String("tool", op), zap.Error(err))
	if errors.Is(err, llm.ErrOracleUnavailable) {
		return errorResult("the story model is unavailable: %v", err)
	}
	return errorResult("%s failed: %v", op, err)
}

func (s *StoryServer) entry(id string) (*session.Entry, *mcp.CallToolResultFor[any]) {
	e, err := s.sessions.Get(id)
	if err != nil {
		return nil, errorResult("no active story session %q", id)
	}
	if e.Story == nil {
		return nil, errorResult("session %q is playing a story tree", id)
	}
	return e, nil
}

// ensureBook gives sessions restored without chapters a fresh book.
func ensureBook(e *session.Entry) {
	if e.Book == nil {
		e.Book = chapter.NewBook(e.Story.History.Opening())
	}
}

func (s *StoryServer) startStory(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[StartArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	sess, text, err := s.engine.StartStory(ctx, args.Genre, args.Prompt)
	if err != nil {
		return s.turnError(ToolStartStory, err), nil
	}
	book := chapter.NewBook(text)
	s.sessions.Put(session.NewStoryEntry(sess, book, s.model))
	s.log.Info("story started over mcp", zap.String("session_id", sess.ID), zap.String("genre", sess.Genre))

	return jsonResult(TurnResult{
		SessionID: sess.ID,
		Status:    "started",
		Text:      text,
		Beat:      sess.Beat.String(),
		GenreBeat: sess.GenreBeat(),
		Chapter:   book.Current,
	})
}

func (s *StoryServer) takeAction(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[ActionArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.EqualFold(strings.TrimSpace(args.Action), "continue") {
		return s.continueStory(ctx, ss, &mcp.CallToolParamsFor[SessionArgs]{Arguments: SessionArgs{SessionID: args.SessionID}})
	}
	e, failed := s.entry(args.SessionID)
	if failed != nil {
		return failed, nil
	}
	e.Lock()
	defer e.Unlock()
	ensureBook(e)

	out, err := s.engine.ProcessUserAction(ctx, e.Story, args.Action)
	if err != nil {
		return s.turnError(ToolTakeAction, err), nil
	}
	res := TurnResult{
		SessionID: e.ID,
		Status:    string(out.Status),
		Beat:      out.Beat.String(),
		GenreBeat: e.Story.GenreBeat(),
		Chapter:   e.Book.Current,
	}
	if out.Rejected() {
		res.Message = out.Message
		return jsonResult(res)
	}
	res.Text = out.Text
	res.NewChapter = e.Book.AddTurn(args.Action, out.Text, e.Story.History.GetEntries())
	res.Chapter = e.Book.Current
	return jsonResult(res)
}

func (s *StoryServer) continueStory(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SessionArgs]) (*mcp.CallToolResultFor[any], error) {
	e, failed := s.entry(params.Arguments.SessionID)
	if failed != nil {
		return failed, nil
	}
	e.Lock()
	defer e.Unlock()
	ensureBook(e)

	text, err := s.engine.Continue(ctx, e.Story)
	if err != nil {
		return s.turnError(ToolContinueStory, err), nil
	}
	e.Book.AddContinuation(text)
	return jsonResult(TurnResult{
		SessionID: e.ID,
		Status:    "continued",
		Text:      text,
		Beat:      e.Story.Beat.String(),
		GenreBeat: e.Story.GenreBeat(),
		Chapter:   e.Book.Current,
	})
}

func (s *StoryServer) storySummary(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SessionArgs]) (*mcp.CallToolResultFor[any], error) {
	e, failed := s.entry(params.Arguments.SessionID)
	if failed != nil {
		return failed, nil
	}
	e.Lock()
	defer e.Unlock()
	return textResult(narrator.Summary(e.Story)), nil
}

func (s *StoryServer) playerProfile(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SessionArgs]) (*mcp.CallToolResultFor[any], error) {
	e, failed := s.entry(params.Arguments.SessionID)
	if failed != nil {
		return failed, nil
	}
	e.Lock()
	defer e.Unlock()
	return textResult(e.Story.Profile.Summary()), nil
}

func (s *StoryServer) genreStatus(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SessionArgs]) (*mcp.CallToolResultFor[any], error) {
	e, failed := s.entry(params.Arguments.SessionID)
	if failed != nil {
		return failed, nil
	}
	e.Lock()
	defer e.Unlock()
	if e.Story.GenreState == nil {
		return errorResult("no genre constraints active"), nil
	}
	return jsonResult(e.Story.GenreState.Status())
}
