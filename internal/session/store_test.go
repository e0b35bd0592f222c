package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivestory/internal/story"
	"adaptivestory/internal/story/chapter"
	"adaptivestory/internal/story/genre"
	"adaptivestory/internal/story/profile"
)

func newEntry(id string) *Entry {
	cat := genre.DefaultCatalog()
	s := story.NewSession(id, "horror", cat.Lookup("horror"), profile.DefaultAnalyzer())
	return NewStoryEntry(s, chapter.NewBook("The house waits."), "tinyllama")
}

func TestPutGetDelete(t *testing.T) {
	st := NewStore(time.Hour, time.Hour)
	st.Put(newEntry("a"))

	e, err := st.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", e.ID)
	assert.Equal(t, "horror", e.Story.Genre)
	assert.Equal(t, 1, st.Len())

	st.Delete("a")
	_, err = st.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiryRunsEvictHook(t *testing.T) {
	var evicted []string
	st := NewStore(20*time.Millisecond, time.Hour, WithEvictHook(func(e *Entry) {
		evicted = append(evicted, e.ID)
	}))
	st.Put(newEntry("old"))

	time.Sleep(40 * time.Millisecond)
	_, err := st.Get("old")
	assert.ErrorIs(t, err, ErrNotFound)

	st.Sweep()
	assert.Equal(t, []string{"old"}, evicted)
	assert.Zero(t, st.Len())
}

func TestGetRefreshesAccess(t *testing.T) {
	st := NewStore(time.Hour, time.Hour)
	e := newEntry("a")
	before := e.LastAccess()
	st.Put(e)

	time.Sleep(2 * time.Millisecond)
	got, err := st.Get("a")
	require.NoError(t, err)
	assert.True(t, got.LastAccess().After(before))
}

func TestFlushRunsEvictHook(t *testing.T) {
	var evicted []string
	st := NewStore(time.Hour, time.Hour, WithEvictHook(func(e *Entry) {
		evicted = append(evicted, e.ID)
	}))
	st.Put(newEntry("a"))
	st.Put(newEntry("b"))

	st.Flush()
	assert.Zero(t, st.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, evicted)
}

func TestAddKeepsHeldEntry(t *testing.T) {
	st := NewStore(time.Hour, time.Hour)
	first := newEntry("a")
	assert.Same(t, first, st.Add(first))

	second := newEntry("a")
	assert.Same(t, first, st.Add(second))

	got, err := st.Get("a")
	require.NoError(t, err)
	assert.Same(t, first, got)
}
