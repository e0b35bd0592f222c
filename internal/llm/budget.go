package llm

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Budget keeps prompts inside a model's context window. When a prompt is too
// long its beginning is dropped so the most recent story survives.
type Budget struct {
	max int
	enc *tiktoken.Tiktoken
}

// NewBudget uses the named tiktoken encoding. If the encoding cannot be
// loaded the budget counts whitespace-separated words instead.
func NewBudget(maxTokens int, encoding string) *Budget {
	b := &Budget{max: maxTokens}
	if encoding != "" {
		if enc, err := tiktoken.GetEncoding(encoding); err == nil {
			b.enc = enc
		}
	}
	return b
}

// NewWordBudget counts words and never touches the tokenizer files.
func NewWordBudget(maxTokens int) *Budget {
	return &Budget{max: maxTokens}
}

func (b *Budget) Count(text string) int {
	if b.enc != nil {
		return len(b.enc.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}

// Fit returns the tail of text that fits within limit tokens.
func (b *Budget) Fit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if b.enc != nil {
		tokens := b.enc.Encode(text, nil, nil)
		if len(tokens) <= limit {
			return text
		}
		return b.enc.Decode(tokens[len(tokens)-limit:])
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[len(words)-limit:], " ")
}

// Head returns the beginning of text that fits within limit tokens.
func (b *Budget) Head(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if b.enc != nil {
		tokens := b.enc.Encode(text, nil, nil)
		if len(tokens) <= limit {
			return text
		}
		return b.enc.Decode(tokens[:limit])
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}

// Middleware trims the prompt so that system, user and the requested
// completion stay within the context window. The user prompt keeps at least
// half of the input room; a system prompt that would crowd it out loses its
// end. A window smaller than the completion is passed through untouched.
func (b *Budget) Middleware() Middleware {
	return func(next Oracle) Oracle {
		return OracleFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
			input := b.max - params.MaxNewTokens
			if input <= 0 {
				return next.Generate(ctx, p, params)
			}
			userFloor := min(b.Count(p.User), max(input/2, 1))
			if b.Count(p.System) > input-userFloor {
				p.System = b.Head(p.System, input-userFloor)
			}
			room := input - b.Count(p.System)
			if b.Count(p.User) > room {
				p.User = b.Fit(p.User, room)
			}
			return next.Generate(ctx, p, params)
		})
	}
}
