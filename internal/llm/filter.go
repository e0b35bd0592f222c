package llm

import (
	"context"
	"errors"
	"strings"
)

// Filter strips model artifacts from generated prose.
type Filter struct {
	// Garbage markers make the whole output unusable.
	Garbage []string
	// MetaMarkers and Breaks truncate the output at their first occurrence.
	MetaMarkers []string
	Breaks      []string
}

func DefaultFilter() Filter {
	return Filter{
		Garbage: []string{
			"<div", "<html", "<script", "<!--", "function(", "document.",
			".getElementById", "padding:", "margin:", "class=", "style=",
			"{", "}", "=>",
		},
		MetaMarkers: []string{"[edit]", "**[User", "[User response", "Chapter ", "[Story context"},
		Breaks:      []string{"---"},
	}
}

// Clean returns the usable part of text, or "" when text is code or markup.
func (f Filter) Clean(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = dropPartialSentence(text)

	for _, g := range f.Garbage {
		if strings.Contains(text, g) {
			return ""
		}
	}
	for _, m := range f.MetaMarkers {
		if i := strings.Index(text, m); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
	}
	for _, b := range f.Breaks {
		if i := strings.Index(text, b); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
	}
	return text
}

// dropPartialSentence removes a trailing fragment cut off by the token limit.
func dropPartialSentence(text string) string {
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?") || strings.HasSuffix(text, `"`) {
		return text
	}
	sentences := strings.Split(text, ". ")
	if len(sentences) < 2 {
		return text
	}
	return strings.Join(sentences[:len(sentences)-1], ". ") + "."
}

var defaultFilter = DefaultFilter()

// Clean applies DefaultFilter.
func Clean(text string) string {
	return defaultFilter.Clean(text)
}

// GenerateClean calls o and cleans the result. Empty or unusable output is
// returned as "" with a nil error; other errors are passed through.
func GenerateClean(ctx context.Context, o Oracle, prompt Prompt, params Params) (string, error) {
	raw, err := o.Generate(ctx, prompt, params)
	if errors.Is(err, ErrEmptyResponse) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return Clean(raw), nil
}
