package chapter

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldBreak(t *testing.T) {
	tests := []struct {
		name       string
		history    []string
		actions    int
		want       bool
		transition string
	}{
		{"too early", []string{"Later that night."}, 2, false, ""},
		{"forced", nil, 8, true, ForcedTransition},
		{"time skip", []string{"x", "It was later that night."}, 5, true, TimeTransition},
		{"time skip too early", []string{"Meanwhile, the rain."}, 4, false, ""},
		{"no marker", []string{"The rain."}, 7, false, ""},
		{"marker outside window", []string{"Eventually.", "a", "b"}, 6, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, transition := ShouldBreak(tt.history, tt.actions)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.transition, transition)
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Chapter 1: The Beginning", Title(1))
	assert.Equal(t, "Chapter 3: Developments", Title(3))
	assert.Equal(t, "Chapter 4: Complications", Title(4))
	assert.Equal(t, "Chapter 6: Complications", Title(6))
	assert.Equal(t, "Chapter 7: The Conclusion", Title(7))
	assert.Equal(t, "Chapter 12: The Conclusion", Title(12))
}

func TestBookBreaksAfterEightActions(t *testing.T) {
	b := NewBook("The rain fell on the city.")
	require.Len(t, b.Chapters, 1)
	assert.Equal(t, "Chapter 1: The Beginning", b.CurrentChapter().Title)

	history := []string{"Quiet streets."}
	for i := 1; i <= 7; i++ {
		assert.Nil(t, b.AddTurn(fmt.Sprintf("action %d", i), "Nothing stirs.", history))
	}
	brk := b.AddTurn("action 8", "Nothing stirs.", history)
	require.NotNil(t, brk)
	assert.Equal(t, Break{Number: 2, Title: "Chapter 2: Developments", Transition: ForcedTransition}, *brk)

	assert.Equal(t, 2, b.Current)
	assert.Zero(t, b.ActionsSince)
	first := b.Chapters[0]
	assert.Len(t, first.Content, 17)
	assert.Equal(t, "[USER ACTION: action 1]", first.Content[1])
	assert.Empty(t, b.CurrentChapter().Content)
	assert.Len(t, b.DB.Events, 8)
	assert.Equal(t, 1, b.DB.Events[7].Chapter)

	b.AddContinuation("The wind rises.")
	assert.Equal(t, []string{"The wind rises."}, b.CurrentChapter().Content)
}

func TestBookTimeSkip(t *testing.T) {
	b := NewBook("Opening.")
	for i := 0; i < 4; i++ {
		assert.Nil(t, b.AddTurn("wait", "Hours passed slowly.", []string{"Hours passed slowly."}))
	}
	brk := b.AddTurn("wait", "Hours passed slowly.", []string{"Hours passed slowly."})
	require.NotNil(t, brk)
	assert.Equal(t, TimeTransition, brk.Transition)
}

func TestDatabaseExtract(t *testing.T) {
	db := NewDatabase()
	db.Extract("Detective Sarah Chen walked into the Grand Hotel. She met Marcus at the Harbor.", 1)
	db.Extract("Marcus lit a cigarette.", 2)

	require.Contains(t, db.Characters, "Marcus")
	marcus := db.Characters["Marcus"]
	assert.Equal(t, 2, marcus.Mentions)
	assert.Equal(t, 1, marcus.FirstAppearance)
	assert.Len(t, marcus.History, 2)
	assert.Contains(t, marcus.Description, "Marcus at the Harbor")

	assert.NotContains(t, db.Characters, "She")
	assert.Contains(t, db.Characters, "Detective Sarah")

	require.Contains(t, db.Locations, "Grand Hotel")
	assert.Equal(t, "Location mentioned in chapter 1", db.Locations["Grand Hotel"].Description)
	assert.Equal(t, 1, db.Locations["Harbor"].Visits)
}

func TestDatabaseSearch(t *testing.T) {
	db := NewDatabase()
	db.AddCharacter("Marcus", "a banker", 1)
	db.AddCharacter("Mara", "a thief", 1)
	db.AddLocation("Marble Hall", "a hall")
	db.AddEvent("I follow MARCUS outside", 1)
	db.AddEvent("I wait", 1)

	res := db.Search("MAR")
	require.Len(t, res.Characters, 2)
	assert.Equal(t, "Mara", res.Characters[0].Name)
	assert.Equal(t, "Marcus", res.Characters[1].Name)
	assert.Len(t, res.Locations, 1)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "I follow MARCUS outside", res.Events[0].Description)

	empty := db.Search("zzz")
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"characters":[],"locations":[],"events":[]}`, string(data))
}

func TestAroundKeepsRunes(t *testing.T) {
	text := "“Quiet,” she said. Marcus nodded."
	assert.Equal(t, "“", around(text, 1, 0, 1))
	assert.Equal(t, "“Quie", around(text, 3, 50, 4))
}
