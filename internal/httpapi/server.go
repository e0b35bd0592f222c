// Package httpapi exposes story sessions and story trees over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/metrics"
	"adaptivestory/internal/session"
	"adaptivestory/internal/store"
	"adaptivestory/internal/story"
	"adaptivestory/internal/story/narrator"
)

const msgNoSession = "No active story session"

type Config struct {
	Engine   *narrator.Engine
	Sessions *session.Store
	// Store is optional. Without it sessions live only in memory and tree
	// endpoints have nothing to play.
	Store *store.Store
	// Fallback answers tree input that matches no choice. Nil disables it.
	Fallback llm.Oracle
	Model    string
	Logger   *zap.Logger
}

type Server struct {
	engine   *narrator.Engine
	sessions *session.Store
	store    *store.Store
	fallback llm.Oracle
	model    string
	log      *zap.Logger
	resuming singleflight.Group
}

func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		fallback: cfg.Fallback,
		model:    cfg.Model,
		log:      log,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), zapLogger(s.log), countRequests())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.POST("/start", s.startStory)
		api.POST("/action", s.takeAction)
		api.GET("/chapters", s.chapters)
		api.POST("/search", s.search)
		api.GET("/profile", s.profile)
		api.GET("/database", s.database)
		api.GET("/summary", s.summary)
		api.GET("/genre", s.genreStatus)

		api.GET("/trees", s.listTrees)
		api.POST("/tree/start", s.startTree)
		api.POST("/tree/choice", s.treeChoice)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// failTurn maps an engine error to a response and records it on the context.
func failTurn(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, llm.ErrOracleUnavailable) {
		fail(c, http.StatusServiceUnavailable, "The story model is unavailable. Please try again shortly.")
		return
	}
	fail(c, http.StatusInternalServerError, "Story generation failed.")
}

// entry finds a live session, resuming it from the store when it has
// expired from memory.
func (s *Server) entry(ctx context.Context, id string) (*session.Entry, error) {
	if id == "" {
		return nil, session.ErrNotFound
	}
	e, err := s.sessions.Get(id)
	if err == nil || s.store == nil {
		return e, err
	}

	// Concurrent requests for one expired session share a single resume.
	v, err, _ := s.resuming.Do(id, func() (any, error) {
		saved, err := s.store.LoadSession(context.WithoutCancel(ctx), id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, session.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		sess := story.Restore(saved.Snapshot, s.engine.Catalog(), s.engine.Analyzer())
		held := s.sessions.Add(session.NewStoryEntry(sess, saved.Book, saved.Model))
		s.log.Info("session resumed from store", zap.String("session_id", id))
		return held, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Entry), nil
}

// storyEntry is entry for endpoints that need a free-text story.
func (s *Server) storyEntry(c *gin.Context, id string) (*session.Entry, bool) {
	e, err := s.entry(c.Request.Context(), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		fail(c, http.StatusNotFound, msgNoSession)
		return nil, false
	case err != nil:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Could not load the story session.")
		return nil, false
	case e.Story == nil:
		fail(c, http.StatusBadRequest, "This session is playing a story tree.")
		return nil, false
	}
	return e, true
}

// persist saves the session snapshot. Failures are logged; the turn already
// happened.
func (s *Server) persist(ctx context.Context, e *session.Entry) {
	if s.store == nil || e.Story == nil {
		return
	}
	if err := s.store.SaveSession(context.WithoutCancel(ctx), e.Story.Snapshot(), e.Model, e.Book); err != nil {
		s.log.Warn("failed to persist session", zap.String("session_id", e.ID), zap.Error(err))
	}
}

// PersistEntry is the session store eviction hook that keeps expired
// sessions resumable.
func (s *Server) PersistEntry(e *session.Entry) {
	e.Lock()
	defer e.Unlock()
	s.persist(context.Background(), e)
}
