// Package llm wraps the text models that write the story.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrOracleUnavailable means the backend could not be constructed or
	// could not be reached. It is fatal for the turn.
	ErrOracleUnavailable = errors.New("text oracle unavailable")

	// ErrEmptyResponse is returned when a backend answers with no text.
	ErrEmptyResponse = errors.New("empty completion")
)

// Prompt is what the story layer hands to an oracle. Genre is optional and
// only used by templates that mention it in their system block.
type Prompt struct {
	System string
	User   string
	Genre  string
}

type Params struct {
	MaxNewTokens      int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	NoRepeatNgramSize int
}

const (
	DefaultMaxNewTokens      = 100
	DefaultTemperature       = 0.85
	DefaultTopP              = 0.92
	DefaultTopK              = 50
	DefaultRepetitionPenalty = 1.15
	DefaultNoRepeatNgramSize = 4
	DefaultMaxContextTokens  = 2048
)

func DefaultParams() Params {
	return Params{
		MaxNewTokens:      DefaultMaxNewTokens,
		Temperature:       DefaultTemperature,
		TopP:              DefaultTopP,
		TopK:              DefaultTopK,
		RepetitionPenalty: DefaultRepetitionPenalty,
		NoRepeatNgramSize: DefaultNoRepeatNgramSize,
	}
}

func (p Params) WithMaxTokens(n int) Params {
	p.MaxNewTokens = n
	return p
}

func (p Params) WithTemperature(t float64) Params {
	p.Temperature = t
	return p
}

// Oracle generates a continuation for a prompt. Implementations return the
// raw model text; callers run it through Clean.
type Oracle interface {
	Generate(ctx context.Context, prompt Prompt, params Params) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, prompt Prompt, params Params) (string, error)

func (f OracleFunc) Generate(ctx context.Context, prompt Prompt, params Params) (string, error) {
	return f(ctx, prompt, params)
}

// Middleware decorates an Oracle.
type Middleware func(Oracle) Oracle

// Chain applies middlewares so that the first one is outermost.
func Chain(o Oracle, mws ...Middleware) Oracle {
	for i := len(mws) - 1; i >= 0; i-- {
		o = mws[i](o)
	}
	return o
}
