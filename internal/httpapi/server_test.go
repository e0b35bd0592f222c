package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/session"
	"adaptivestory/internal/store"
	"adaptivestory/internal/story/narrator"
	"adaptivestory/internal/story/tree"
	"adaptivestory/internal/story/validate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const reply = "The corridor stretches ahead. What do you do?"

func fixedOracle(text string, err error) llm.Oracle {
	return llm.OracleFunc(func(context.Context, llm.Prompt, llm.Params) (string, error) {
		return text, err
	})
}

type harness struct {
	srv      *Server
	router   *gin.Engine
	sessions *session.Store
	store    *store.Store
}

func newHarness(t *testing.T, o llm.Oracle, withStore bool) *harness {
	t.Helper()
	h := &harness{sessions: session.NewStore(time.Hour, time.Hour)}
	if withStore {
		st, err := store.Open(filepath.Join(t.TempDir(), "stories.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		h.store = st
	}
	h.srv = New(Config{
		Engine:   narrator.New(o),
		Sessions: h.sessions,
		Store:    h.store,
		Fallback: o,
		Model:    "tinyllama",
	})
	h.router = h.srv.Router()
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (h *harness) start(t *testing.T) string {
	t.Helper()
	w, out := h.do(t, http.MethodPost, "/api/start", gin.H{"genre": "horror"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, out["success"])
	return out["session_id"].(string)
}

func TestStartAndAct(t *testing.T) {
	h := newHarness(t, fixedOracle(reply, nil), false)

	w, out := h.do(t, http.MethodPost, "/api/start", gin.H{"genre": "Horror", "model": "gpt2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "horror", out["genre"])
	assert.Equal(t, "tinyllama", out["model"])
	assert.Equal(t, "exposition", out["beat"])
	assert.Equal(t, float64(1), out["chapter"])
	assert.Equal(t, "Chapter 1: The Beginning", out["chapter_title"])
	assert.Contains(t, out["story"], reply)
	assert.Contains(t, out, "model_fallback")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	id := out["session_id"].(string)

	w, out = h.do(t, http.MethodPost, "/api/action", gin.H{"session_id": id, "action": "I open the door"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "accepted", out["status"])
	assert.Equal(t, reply+"\n\n"+narrator.DecisionMarker, out["story"])
	assert.Nil(t, out["new_chapter"])

	_, out = h.do(t, http.MethodPost, "/api/action", gin.H{"session_id": id, "action": "hi"})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, validate.MsgTooShort, out["error"])

	_, out = h.do(t, http.MethodPost, "/api/action", gin.H{"session_id": id, "action": "Continue"})
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out["continuation"], reply)
	assert.Contains(t, out, "database")

	_, out = h.do(t, http.MethodGet, "/api/summary?session_id="+id, nil)
	assert.Equal(t, float64(1), out["actions_taken"])
	assert.Equal(t, float64(1), out["chapters"])
	assert.Contains(t, out["summary"], "STORY STATE")

	_, out = h.do(t, http.MethodGet, "/api/chapters?session_id="+id, nil)
	chapters := out["chapters"].([]any)
	require.Len(t, chapters, 1)
	content := chapters[0].(map[string]any)["content"].([]any)
	assert.Equal(t, "[USER ACTION: I open the door]", content[1])

	_, out = h.do(t, http.MethodGet, "/api/profile?session_id="+id, nil)
	profile := out["profile"].(map[string]any)
	assert.Equal(t, float64(1), profile["action_count"])

	_, out = h.do(t, http.MethodGet, "/api/genre?session_id="+id, nil)
	status := out["genre_status"].(map[string]any)
	assert.Equal(t, "horror", status["genre"])

	_, out = h.do(t, http.MethodGet, "/api/database?session_id="+id, nil)
	events := out["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "I open the door", events[0].(map[string]any)["description"])

	_, out = h.do(t, http.MethodPost, "/api/search", gin.H{"session_id": id, "query": "open"})
	results := out["results"].(map[string]any)
	assert.Len(t, results["events"], 1)
}

func TestUnknownSession(t *testing.T) {
	h := newHarness(t, fixedOracle(reply, nil), true)

	w, out := h.do(t, http.MethodPost, "/api/action", gin.H{"session_id": "nope", "action": "I wait here"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgNoSession, out["error"])

	w, _ = h.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(t, http.MethodPost, "/api/action", gin.H{"action": "I wait"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOracleUnavailable(t *testing.T) {
	h := newHarness(t, fixedOracle("", fmt.Errorf("dial: %w", llm.ErrOracleUnavailable)), false)

	w, out := h.do(t, http.MethodPost, "/api/start", gin.H{"genre": "war"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, out["success"])
	assert.Zero(t, h.sessions.Len())
}

func TestResumeFromStore(t *testing.T) {
	h := newHarness(t, fixedOracle(reply, nil), true)
	id := h.start(t)
	_, out := h.do(t, http.MethodPost, "/api/action", gin.H{"session_id": id, "action": "I light a candle"})
	require.Equal(t, true, out["success"])

	h.sessions.Delete(id)

	w, out := h.do(t, http.MethodGet, "/api/summary?session_id="+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["actions_taken"])
	assert.Equal(t, "horror", out["genre"])
	assert.Equal(t, 1, h.sessions.Len())
}

func TestConcurrentResumeSharesEntry(t *testing.T) {
	h := newHarness(t, fixedOracle(reply, nil), true)
	id := h.start(t)
	h.sessions.Delete(id)

	const n = 8
	entries := make([]*session.Entry, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := h.srv.entry(context.Background(), id)
			assert.NoError(t, err)
			entries[i] = e
		}()
	}
	wg.Wait()

	held, err := h.sessions.Get(id)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Same(t, held, e)
	}
}

func TestTreeEndpoints(t *testing.T) {
	h := newHarness(t, fixedOracle("You improvise. It works.", nil), true)

	w, out := h.do(t, http.MethodPost, "/api/tree/start", gin.H{"genre": "horror"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, out["success"])

	tr := &tree.Tree{
		Genre: "horror",
		Title: "The House",
		Nodes: map[string]*tree.Node{
			"start": {NodeID: "start", Text: "The house waits.", Choices: []tree.Choice{
				{Text: "Enter the house", LeadsTo: "start_0", Type: "action"},
				{Text: "Walk away", LeadsTo: "start_1", Type: "action"},
			}},
			"start_0": {NodeID: "start_0", Text: "Dust everywhere.", Depth: 1, IsEnding: true},
		},
		StartNode: "start",
	}
	require.NoError(t, h.store.SaveTree(context.Background(), "house", tr))

	_, out = h.do(t, http.MethodGet, "/api/trees", nil)
	assert.Len(t, out["trees"], 1)

	w, out = h.do(t, http.MethodPost, "/api/tree/start", gin.H{"genre": "horror", "fallback": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "house", out["tree_id"])
	assert.Equal(t, false, out["fallback"])
	node := out["node"].(map[string]any)
	assert.Equal(t, "The house waits.", node["text"])
	id := out["session_id"].(string)

	_, out = h.do(t, http.MethodPost, "/api/tree/choice", gin.H{"session_id": id, "input": "xyzzy plugh"})
	resp := out["response"].(map[string]any)
	assert.Equal(t, string(tree.ClarificationResponse), resp["type"])

	_, out = h.do(t, http.MethodPost, "/api/tree/choice", gin.H{"session_id": id, "input": "enter the house"})
	resp = out["response"].(map[string]any)
	assert.Equal(t, "Dust everywhere.", resp["text"])
	assert.Equal(t, true, out["is_ending"])

	w, _ = h.do(t, http.MethodPost, "/api/action", gin.H{"session_id": id, "action": "I look around"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = h.do(t, http.MethodPost, "/api/tree/start", gin.H{"tree_id": "house"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["fallback"])
	id = out["session_id"].(string)
	_, out = h.do(t, http.MethodPost, "/api/tree/choice", gin.H{"session_id": id, "input": "I climb onto the roof"})
	resp = out["response"].(map[string]any)
	assert.Equal(t, string(tree.CreativeResponse), resp["type"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, fixedOracle(reply, nil), false)
	w, out := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])

	w, _ = h.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "adaptive_story_http_requests_total")
}
