package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps complete prose", "The door creaks open. A shadow moves.", "The door creaks open. A shadow moves."},
		{"drops partial sentence", "The door creaks open. A shadow moves toward", "The door creaks open."},
		{"single fragment is kept", "A shadow moves toward", "A shadow moves toward"},
		{"rejects markup", "<div>She smiled.</div>", ""},
		{"rejects code", "He typed function() fast.", ""},
		{"cuts at meta marker", "She runs.\n\nChapter 2 begins.", "She runs."},
		{"cuts at break", "He waits.\n---\nNext part.", "He waits."},
		{"empty", "   ", ""},
		{"question kept", "Who is there?", "Who is there?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestGenerateClean(t *testing.T) {
	ctx := context.Background()

	empty := OracleFunc(func(context.Context, Prompt, Params) (string, error) {
		return "", ErrEmptyResponse
	})
	out, err := GenerateClean(ctx, empty, Prompt{User: "x"}, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, out)

	down := OracleFunc(func(context.Context, Prompt, Params) (string, error) {
		return "", ErrOracleUnavailable
	})
	_, err = GenerateClean(ctx, down, Prompt{User: "x"}, DefaultParams())
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestTemplateFor(t *testing.T) {
	assert.Equal(t, "tinyllama", TemplateFor("TinyLlama/TinyLlama-1.1B-Chat-v1.0").Name())
	assert.Equal(t, "llama3", TemplateFor("meta-llama/Meta-Llama-3-8B-Instruct").Name())
	assert.Equal(t, "instruct", TemplateFor("microsoft/phi-2").Name())
	assert.Equal(t, "instruct", TemplateFor("mistral-7b").Name())
	assert.Equal(t, "plain", TemplateFor("gpt2").Name())
}

func TestTemplateRoundTrip(t *testing.T) {
	p := Prompt{System: "Be brief.", User: "The rain falls.", Genre: "horror"}

	tiny := TemplateFor("tinyllama")
	formatted := tiny.Format(p)
	assert.Contains(t, formatted, "action-driven horror story")
	assert.Contains(t, formatted, "Be brief.")
	assert.Equal(t, "Thunder.", tiny.Extract(formatted+"Thunder.</s><|user|>more"))

	noSystem := tiny.Format(Prompt{User: "hi"})
	assert.NotContains(t, noSystem, "<|system|>")

	llama := TemplateFor("llama-3")
	assert.Equal(t, "Thunder.", llama.Extract(llama.Format(p)+"Thunder.<|eot_id|>"))

	plain := TemplateFor("gpt2")
	assert.Equal(t, "The rain falls.", plain.Format(p))
	assert.Empty(t, plain.Stops())
}

func TestChainOrder(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next Oracle) Oracle {
			return OracleFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
				calls = append(calls, name)
				return next.Generate(ctx, p, params)
			})
		}
	}
	base := OracleFunc(func(context.Context, Prompt, Params) (string, error) {
		calls = append(calls, "base")
		return "ok", nil
	})

	out, err := Chain(base, tag("outer"), tag("inner")).Generate(context.Background(), Prompt{}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"outer", "inner", "base"}, calls)
}

func TestWordBudget(t *testing.T) {
	b := NewWordBudget(10)
	assert.Equal(t, 5, b.Count("a b c d e"))
	assert.Equal(t, "c d e", b.Fit("a b c d e", 3))
	assert.Equal(t, "a b", b.Fit("a b", 3))
	assert.Empty(t, b.Fit("a b", 0))

	var seen string
	base := OracleFunc(func(_ context.Context, p Prompt, _ Params) (string, error) {
		seen = p.User
		return "", nil
	})
	o := Chain(base, b.Middleware())
	_, _ = o.Generate(context.Background(), Prompt{System: "x y", User: "1 2 3 4 5 6"}, Params{MaxNewTokens: 4})
	assert.Equal(t, "3 4 5 6", seen)
}

func TestWordBudgetTrimsCrowdingSystemPrompt(t *testing.T) {
	b := NewWordBudget(10)
	assert.Equal(t, "a b", b.Head("a b c d e", 2))

	var seen Prompt
	base := OracleFunc(func(_ context.Context, p Prompt, _ Params) (string, error) {
		seen = p
		return "", nil
	})
	o := Chain(base, b.Middleware())

	_, _ = o.Generate(context.Background(), Prompt{System: "s1 s2 s3 s4 s5 s6 s7 s8", User: "u1 u2 u3 u4"}, Params{MaxNewTokens: 4})
	assert.Equal(t, "s1 s2 s3", seen.System)
	assert.Equal(t, "u2 u3 u4", seen.User)

	_, _ = o.Generate(context.Background(), Prompt{System: "s1 s2 s3 s4 s5 s6 s7 s8", User: "go"}, Params{MaxNewTokens: 4})
	assert.Equal(t, "go", seen.User)
	assert.Equal(t, "s1 s2 s3 s4 s5", seen.System)

	_, _ = o.Generate(context.Background(), Prompt{System: "s1 s2", User: "u1 u2"}, Params{MaxNewTokens: 12})
	assert.Equal(t, "u1 u2", seen.User)
	assert.Equal(t, "s1 s2", seen.System)
}

func TestRegistryBuildsOnce(t *testing.T) {
	builds := 0
	fake := func(BackendConfig, *zap.Logger) (Oracle, error) {
		builds++
		return OracleFunc(func(context.Context, Prompt, Params) (string, error) { return "told", nil }), nil
	}
	reg := NewRegistry(BackendConfig{Backend: "Fake"}, nil, WithFactory("fake", fake))

	o1, err := reg.Oracle()
	require.NoError(t, err)
	o2, err := reg.Oracle()
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	out, err := o1.Generate(context.Background(), Prompt{User: "x"}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "told", out)
	_, err = o2.Generate(context.Background(), Prompt{User: "x"}, DefaultParams())
	require.NoError(t, err)
}

func TestRegistryUnavailable(t *testing.T) {
	_, err := NewRegistry(BackendConfig{Backend: "nope"}, nil).Oracle()
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	_, err = NewRegistry(BackendConfig{Backend: "openai"}, nil).Oracle()
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	reg := NewRegistry(BackendConfig{Backend: "broken"}, nil, WithFactory("broken", func(BackendConfig, *zap.Logger) (Oracle, error) {
		return nil, errors.New("boom")
	}))
	_, err1 := reg.Oracle()
	_, err2 := reg.Oracle()
	assert.Error(t, err1)
	assert.Equal(t, err1, err2)
}

type recorderFunc func(ctx context.Context, rec CompletionRecord) error

func (f recorderFunc) RecordCompletion(ctx context.Context, rec CompletionRecord) error {
	return f(ctx, rec)
}

func TestWithRecorder(t *testing.T) {
	var got CompletionRecord
	rec := recorderFunc(func(_ context.Context, r CompletionRecord) error {
		got = r
		return errors.New("disk full")
	})
	base := OracleFunc(func(context.Context, Prompt, Params) (string, error) { return "prose", nil })

	ctx := WithOperationType(WithSessionID(context.Background(), "s-1"), "story.turn")
	out, err := Chain(base, WithRecorder(rec, "fake", "m", nil)).Generate(ctx, Prompt{User: "go"}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "prose", out)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, "story.turn", got.Operation)
	assert.Equal(t, "prose", got.Response)
}

func TestStoryContextMerge(t *testing.T) {
	ctx := WithStoryContext(context.Background(), map[string]any{"genre": "horror"})
	ctx = WithStoryContext(ctx, map[string]any{"beat": "climax"})
	assert.Equal(t, map[string]any{"genre": "horror", "beat": "climax"}, StoryContext(ctx))
	assert.Len(t, storyAttributes(ctx), 2)
}

func TestOllamaOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["raw"])
		assert.Equal(t, "The rain falls.", body["prompt"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt2","response":" Thunder rolls. ","done":true,"prompt_eval_count":3,"eval_count":2}` + "\n"))
	}))
	defer srv.Close()

	o, err := NewOllamaOracle(OllamaConfig{BaseURL: srv.URL, Model: "gpt2"}, nil)
	require.NoError(t, err)
	out, err := o.Generate(context.Background(), Prompt{User: "The rain falls."}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "Thunder rolls.", out)
}

func TestCompletionOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"text_completion","model":"tinyllama","choices":[{"index":0,"text":"The lamp flickers.</s>","finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":4,"total_tokens":14}}`))
	}))
	defer srv.Close()

	o, err := NewCompletionOracle(CompletionConfig{BaseURL: srv.URL + "/v1", Model: "tinyllama"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tinyllama", o.Template().Name())

	out, err := o.Generate(context.Background(), Prompt{User: "Go on."}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "The lamp flickers.", out)
}

func TestChatOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Smoke rises."}}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`))
	}))
	defer srv.Close()

	o, err := NewChatOracle(ChatConfig{BaseURL: srv.URL, APIKey: "test", Model: "m"}, nil)
	require.NoError(t, err)
	out, err := o.Generate(context.Background(), Prompt{System: "s", User: "u"}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "Smoke rises.", out)
}

func TestBackendsNeedModel(t *testing.T) {
	_, err := NewChatOracle(ChatConfig{APIKey: "k"}, nil)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	_, err = NewCompletionOracle(CompletionConfig{BaseURL: "http://x"}, nil)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	_, err = NewOllamaOracle(OllamaConfig{}, nil)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}
