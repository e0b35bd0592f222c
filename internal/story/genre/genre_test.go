package genre

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, "detective", c.Lookup("mystery").Name)
	assert.Equal(t, "detective", c.Lookup("Detective").Name)
	assert.Equal(t, "romcom", c.Lookup("romance").Name)
	assert.Equal(t, "horror", c.Lookup(" horror ").Name)
	assert.Equal(t, "detective", c.Lookup("space opera").Name, "unknown genres fall back")

	assert.True(t, c.Has("war"))
	assert.False(t, c.Has("space opera"))
	assert.Equal(t, []string{"adventure", "detective", "drama", "horror", "romcom", "thriller", "war"}, c.Names())
}

func TestValidateConsistency(t *testing.T) {
	cfg := DefaultCatalog().Lookup("detective")

	ok, violations := ValidateConsistency(cfg, "The detective found a clue near the window.")
	assert.True(t, ok)
	assert.Empty(t, violations)

	ok, violations = ValidateConsistency(cfg, "A WIZARD appeared and cast a magic spell.")
	assert.False(t, ok)
	assert.Equal(t, []string{"wizard", "magic spell"}, violations)

	ok, _ = ValidateConsistency(cfg, "She walked home in the rain.")
	assert.True(t, ok, "missing tone keywords never block")
	assert.False(t, HasTone(cfg, "She walked home in the rain."))

	ok, _ = ValidateConsistency(nil, "anything with a wizard")
	assert.True(t, ok)
}

func TestStrongerConstraintPrompt(t *testing.T) {
	cfg := DefaultCatalog().Lookup("horror")
	got := StrongerConstraintPrompt(cfg, "The door creaked.", "first_warning")

	assert.True(t, strings.HasPrefix(got, "The door creaked.\n\n"))
	assert.Contains(t, got, "CRITICAL: This is a HORROR story.")
	assert.Contains(t, got, "Focus on: fear, terror, shadow, darkness, scream.")
	assert.Contains(t, got, "FORBIDDEN: romance, wedding, date, love, cute.")
	assert.True(t, strings.HasSuffix(got, "Current story beat: first_warning."))
}

func TestStateCheckRecordsViolations(t *testing.T) {
	s := NewState("romance", DefaultCatalog().Lookup("romance"))

	assert.True(t, s.Check("They shared an awkward, sweet kiss."))
	assert.False(t, s.Check("There was blood on the floor and a corpse."))
	assert.Equal(t, []string{"corpse", "blood"}, s.Violations)
}

func TestStateBeatAdvancesEveryTwoActions(t *testing.T) {
	cfg := &Config{Name: "short", Beats: []string{"a", "b", "c"}}
	s := NewState("short", cfg)

	assert.Equal(t, "a", s.Beat())
	s.RecordAction()
	assert.Equal(t, "a", s.Beat())
	s.RecordAction()
	assert.Equal(t, "b", s.Beat())

	for range 10 {
		s.RecordAction()
	}
	assert.Equal(t, "c", s.Beat(), "beat index stops at the last beat")
	assert.Equal(t, "3/3", s.Status().BeatProgress)
	assert.Equal(t, 12, s.ActionCount())
}

func TestExtractElements(t *testing.T) {
	s := NewState("mystery", DefaultCatalog().Lookup("mystery"))
	assert.Contains(t, s.Elements, "clues")
	assert.Empty(t, s.Elements["clues"])

	long := "The evidence was clear: the suspect had lied. " + strings.Repeat("x", 200)
	s.ExtractElements(long)
	s.ExtractElements("Nothing of note happened.")

	require.Len(t, s.Elements["clues"], 1)
	require.Len(t, s.Elements["suspects"], 1)
	assert.Len(t, []rune(s.Elements["clues"][0]), 100)
	assert.Empty(t, s.Elements["red_herrings"])
}

func TestExtractElementsPerGenre(t *testing.T) {
	c := DefaultCatalog()

	h := NewState("horror", c.Lookup("horror"))
	h.ExtractElements("A scream tore through the night.")
	assert.Len(t, h.Elements["scares"], 1)

	a := NewState("adventure", c.Lookup("adventure"))
	a.ExtractElements("They found a golden idol.")
	assert.Len(t, a.Elements["discoveries"], 1)
}

func TestStatus(t *testing.T) {
	s := NewState("mystery", DefaultCatalog().Lookup("mystery"))
	st := s.Status()
	assert.Equal(t, "mystery", st.Genre)
	assert.Equal(t, "crime_discovered", st.CurrentBeat)
	assert.Equal(t, "1/9", st.BeatProgress)
}

func TestFallback(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, "The horror intensifies.", c.Lookup("horror").Fallback("escalation"))
	assert.Equal(t, "The story continues in an unexpected direction...", c.Lookup("drama").Fallback("status_quo"))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genres.yaml")
	doc := `
genres:
  - name: western
    aliases: [frontier]
    beats: [arrival, showdown]
    tone_keywords: [saloon, sheriff]
    forbidden_keywords: [laser]
    elements: [duels]
    element_rules:
      - slot: duels
        triggers: [draw]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	w := c.Lookup("frontier")
	assert.Equal(t, "western", w.Name)
	assert.Equal(t, []string{"arrival", "showdown"}, w.Beats)
	assert.True(t, c.Has("detective"), "defaults are kept")

	ok, _ := ValidateConsistency(w, "He pulled a laser pistol.")
	assert.False(t, ok)

	s := NewState("western", w)
	s.ExtractElements("Both men reached to draw.")
	assert.Len(t, s.Elements["duels"], 1)
}

func TestLoadCatalogReplaceRequiresDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genres.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replace: true\ngenres:\n  - name: western\n    beats: [a]\n"), 0o644))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}
