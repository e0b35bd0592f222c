// Package session keeps live stories in memory and expires the idle ones.
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"adaptivestory/internal/metrics"
	"adaptivestory/internal/story"
	"adaptivestory/internal/story/chapter"
	"adaptivestory/internal/story/tree"
)

const (
	DefaultTTL     = 2 * time.Hour
	DefaultCleanup = time.Hour
)

var ErrNotFound = errors.New("session not found")

// Entry is everything a client owns under one session id. Exactly one of
// Story and Tree is set. Callers hold the entry lock for the length of a turn.
type Entry struct {
	ID    string
	Model string
	Story *story.Session
	Book  *chapter.Book
	Tree  *tree.Player

	mu         sync.Mutex
	lastAccess atomic.Int64
}

func NewStoryEntry(s *story.Session, book *chapter.Book, model string) *Entry {
	e := &Entry{ID: s.ID, Model: model, Story: s, Book: book}
	e.touch()
	return e
}

func NewTreeEntry(id string, p *tree.Player, model string) *Entry {
	e := &Entry{ID: id, Model: model, Tree: p}
	e.touch()
	return e
}

func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

// LastAccess is when the entry was last fetched from the store.
func (e *Entry) LastAccess() time.Time {
	return time.Unix(0, e.lastAccess.Load())
}

func (e *Entry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

// Store is safe for concurrent use. Entries expire ttl after their last Get.
type Store struct {
	cache   *cache.Cache
	log     *zap.Logger
	onEvict func(*Entry)
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithEvictHook runs fn for each entry that expires or is deleted. It runs
// without the store lock held.
func WithEvictHook(fn func(*Entry)) Option {
	return func(s *Store) { s.onEvict = fn }
}

func NewStore(ttl, cleanup time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanup <= 0 {
		cleanup = DefaultCleanup
	}
	s := &Store{cache: cache.New(ttl, cleanup), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.cache.OnEvicted(func(id string, v any) {
		s.log.Info("session evicted", zap.String("session_id", id))
		metrics.ActiveSessions.Set(float64(s.cache.ItemCount()))
		if e, ok := v.(*Entry); ok && s.onEvict != nil {
			s.onEvict(e)
		}
	})
	return s
}

func (s *Store) Put(e *Entry) {
	s.cache.Set(e.ID, e, cache.DefaultExpiration)
	metrics.ActiveSessions.Set(float64(s.cache.ItemCount()))
}

// Add stores e unless an unexpired entry with the same id is already held,
// and returns whichever entry the store ends up holding.
func (s *Store) Add(e *Entry) *Entry {
	for {
		if err := s.cache.Add(e.ID, e, cache.DefaultExpiration); err == nil {
			metrics.ActiveSessions.Set(float64(s.cache.ItemCount()))
			return e
		}
		if held, err := s.Get(e.ID); err == nil {
			return held
		}
	}
}

// Get returns the entry for id and pushes its expiry back.
func (s *Store) Get(id string) (*Entry, error) {
	v, found := s.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	e := v.(*Entry)
	e.touch()
	s.cache.Set(id, e, cache.DefaultExpiration)
	return e, nil
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
	metrics.ActiveSessions.Set(float64(s.cache.ItemCount()))
}

// Len counts held entries, including expired ones not yet swept.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Sweep drops expired entries now instead of waiting for the janitor.
func (s *Store) Sweep() {
	s.cache.DeleteExpired()
	metrics.ActiveSessions.Set(float64(s.cache.ItemCount()))
}

// Flush removes every entry, running the evict hook for each.
func (s *Store) Flush() {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
	metrics.ActiveSessions.Set(0)
}
