package httpapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adaptivestory/internal/session"
	"adaptivestory/internal/story/chapter"
	"adaptivestory/internal/story/narrator"
)

type startRequest struct {
	Genre  string `json:"genre"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type actionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Action    string `json:"action"`
}

type searchRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query"`
}

func (s *Server) startStory(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, text, err := s.engine.StartStory(c.Request.Context(), req.Genre, req.Prompt)
	if err != nil {
		failTurn(c, err)
		return
	}
	book := chapter.NewBook(text)
	e := session.NewStoryEntry(sess, book, s.model)
	s.sessions.Put(e)
	s.persist(c.Request.Context(), e)

	resp := gin.H{
		"success":       true,
		"session_id":    sess.ID,
		"story":         text,
		"chapter":       book.Current,
		"chapter_title": book.CurrentChapter().Title,
		"beat":          sess.Beat,
		"model":         s.model,
		"genre":         sess.Genre,
	}
	if req.Model != "" && !strings.EqualFold(req.Model, s.model) {
		resp["model_fallback"] = gin.H{
			"occurred":        true,
			"requested_model": req.Model,
			"actual_model":    s.model,
			"message":         "The requested model is not loaded on this server; the story uses " + s.model + " instead.",
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) takeAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgNoSession)
		return
	}
	e, ok := s.storyEntry(c, req.SessionID)
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	if e.Book == nil {
		e.Book = chapter.NewBook(e.Story.History.Opening())
	}

	ctx := c.Request.Context()
	if strings.EqualFold(strings.TrimSpace(req.Action), "continue") {
		text, err := s.engine.Continue(ctx, e.Story)
		if err != nil {
			failTurn(c, err)
			return
		}
		e.Book.AddContinuation(text)
		s.persist(ctx, e)
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"continuation": text,
			"database":     e.Book.DB,
		})
		return
	}

	out, err := s.engine.ProcessUserAction(ctx, e.Story, req.Action)
	if err != nil {
		failTurn(c, err)
		return
	}
	if out.Rejected() {
		fail(c, http.StatusOK, out.Message)
		return
	}

	brk := e.Book.AddTurn(req.Action, out.Text, e.Story.History.GetEntries())
	s.persist(ctx, e)
	if brk != nil {
		s.log.Info("new chapter", zap.String("session_id", e.ID), zap.Int("chapter", brk.Number))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status":      out.Status,
		"story":       out.Text,
		"chapter":     e.Book.Current,
		"beat":        out.Beat,
		"new_chapter": brk,
	})
}

func (s *Server) chapters(c *gin.Context) {
	e, ok := s.storyEntry(c, c.Query("session_id"))
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	if e.Book == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "chapters": []*chapter.Chapter{}, "current_chapter": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"chapters":        e.Book.Chapters,
		"current_chapter": e.Book.Current,
	})
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgNoSession)
		return
	}
	e, ok := s.storyEntry(c, req.SessionID)
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	results := chapter.NewDatabase().Search(req.Query)
	if e.Book != nil {
		results = e.Book.DB.Search(req.Query)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "query": req.Query, "results": results})
}

func (s *Server) profile(c *gin.Context) {
	e, ok := s.storyEntry(c, c.Query("session_id"))
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": e.Story.Profile.ToMap()})
}

func (s *Server) database(c *gin.Context) {
	e, ok := s.storyEntry(c, c.Query("session_id"))
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()

	characters := []chapter.CharacterEntry{}
	locations := []chapter.LocationEntry{}
	events := []chapter.Event{}
	if e.Book != nil {
		for _, ch := range e.Book.DB.Characters {
			characters = append(characters, *ch)
		}
		for _, l := range e.Book.DB.Locations {
			locations = append(locations, *l)
		}
		events = e.Book.DB.Events
	}
	sort.Slice(characters, func(i, j int) bool { return characters[i].Name < characters[j].Name })
	sort.Slice(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"characters": characters,
		"locations":  locations,
		"events":     events,
	})
}

func (s *Server) summary(c *gin.Context) {
	e, ok := s.storyEntry(c, c.Query("session_id"))
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	chapters := 0
	if e.Book != nil {
		chapters = len(e.Book.Chapters)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"summary":       narrator.Summary(e.Story),
		"chapters":      chapters,
		"current_beat":  e.Story.Beat,
		"actions_taken": len(e.Story.UserActions),
		"model":         e.Model,
		"genre":         e.Story.Genre,
	})
}

func (s *Server) genreStatus(c *gin.Context) {
	e, ok := s.storyEntry(c, c.Query("session_id"))
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	if e.Story.GenreState == nil {
		fail(c, http.StatusOK, "No genre constraints active")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "genre_status": e.Story.GenreState.Status()})
}
