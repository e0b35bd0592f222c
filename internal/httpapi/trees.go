package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adaptivestory/internal/session"
	"adaptivestory/internal/store"
	"adaptivestory/internal/story/tree"
)

type treeStartRequest struct {
	TreeID   string `json:"tree_id"`
	Genre    string `json:"genre"`
	Fallback *bool  `json:"fallback"`
}

type treeChoiceRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Input     string `json:"input"`
}

func (s *Server) listTrees(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "trees": []store.TreeInfo{}})
		return
	}
	infos, err := s.store.ListTrees(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Could not list story trees.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trees": infos})
}

func (s *Server) startTree(c *gin.Context) {
	var req treeStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TreeID == "" && req.Genre == "" {
		fail(c, http.StatusBadRequest, "Provide a tree_id or a genre. Genres: "+strings.Join(tree.Genres(), ", "))
		return
	}
	if s.store == nil {
		fail(c, http.StatusNotFound, "No story trees are available.")
		return
	}

	ctx := c.Request.Context()
	var (
		t   *tree.Tree
		id  = req.TreeID
		err error
	)
	if id != "" {
		t, err = s.store.LoadTree(ctx, id)
	} else {
		t, id, err = s.store.LatestTree(ctx, req.Genre)
	}
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "No story tree found. Generate one with treegen first.")
		return
	}
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Could not load the story tree.")
		return
	}

	var opts []tree.PlayerOption
	useFallback := req.Fallback == nil || *req.Fallback
	if useFallback && s.fallback != nil {
		opts = append(opts, tree.WithFallback(s.fallback))
	}
	opts = append(opts, tree.WithPlayerLogger(s.log.Named("tree")))
	player := tree.NewPlayer(t, opts...)
	node := player.Start()

	e := session.NewTreeEntry(uuid.NewString(), player, s.model)
	s.sessions.Put(e)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": e.ID,
		"tree_id":    id,
		"title":      t.Title,
		"genre":      t.Genre,
		"fallback":   player.FallbackEnabled(),
		"node":       node,
	})
}

func (s *Server) treeChoice(c *gin.Context) {
	var req treeChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgNoSession)
		return
	}
	e, err := s.sessions.Get(req.SessionID)
	if err != nil {
		fail(c, http.StatusNotFound, msgNoSession)
		return
	}
	if e.Tree == nil {
		fail(c, http.StatusBadRequest, "This session is not playing a story tree.")
		return
	}
	e.Lock()
	defer e.Unlock()

	if strings.EqualFold(strings.TrimSpace(req.Input), "restart") {
		c.JSON(http.StatusOK, gin.H{"success": true, "response": e.Tree.Restart()})
		return
	}
	resp, err := e.Tree.MakeChoice(c.Request.Context(), req.Input)
	if err != nil {
		failTurn(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  resp,
		"is_ending": resp.IsEnding,
		"state":     e.Tree.State(),
	})
}
