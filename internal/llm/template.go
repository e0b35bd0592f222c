package llm

import (
	"fmt"
	"strings"
)

// Template renders a Prompt into the raw text a completion model expects and
// recovers the assistant turn from what comes back. One template is picked
// per backend when it is built.
type Template interface {
	Name() string
	Format(p Prompt) string
	Extract(raw string) string
	Stops() []string
}

// TemplateFor picks the prompt family for a model identifier.
func TemplateFor(model string) Template {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "tinyllama"):
		return tinyLlamaTemplate{}
	case strings.Contains(m, "llama"):
		return llama3Template{}
	case containsAnyOf(m, "phi", "mistral", "qwen", "instruct", "chat"):
		return instructTemplate{}
	default:
		return plainTemplate{}
	}
}

func containsAnyOf(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// cutAt truncates s at the first occurrence of any marker.
func cutAt(s string, markers ...string) string {
	for _, m := range markers {
		if i := strings.Index(s, m); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// afterLast returns the text after the final occurrence of marker, or s.
func afterLast(s, marker string) string {
	if i := strings.LastIndex(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return s
}

type tinyLlamaTemplate struct{}

func (tinyLlamaTemplate) Name() string { return "tinyllama" }

func (tinyLlamaTemplate) Format(p Prompt) string {
	if p.System == "" {
		return fmt.Sprintf("<|user|>\n%s</s>\n<|assistant|>\n", p.User)
	}
	genre := p.Genre
	if genre == "" {
		genre = "mystery"
	}
	return fmt.Sprintf(`<|system|>
You are writing an action-driven %s story. Keep it punchy and plot-focused.

RULES:
- Write 2-3 short paragraphs maximum
- Focus on actions, dialogue, and immediate events
- Avoid lengthy descriptions or exposition
- Drive the plot forward
- End with tension or a decision point

%s</s>
<|user|>
%s</s>
<|assistant|>
`, genre, p.System, p.User)
}

func (tinyLlamaTemplate) Extract(raw string) string {
	return cutAt(afterLast(raw, "<|assistant|>"), "</s>", "<|user|>")
}

func (tinyLlamaTemplate) Stops() []string { return []string{"</s>", "<|user|>"} }

type llama3Template struct{}

const llamaAssistantHeader = "<|start_header_id|>assistant<|end_header_id|>"

func (llama3Template) Name() string { return "llama3" }

func (llama3Template) Format(p Prompt) string {
	if p.System == "" {
		return fmt.Sprintf("<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n\n%s<|eot_id|>%s\n\n", p.User, llamaAssistantHeader)
	}
	return fmt.Sprintf("<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n\n"+
		"You are a creative storytelling AI. Write compelling, coherent narrative prose in the specified genre.\n"+
		"%s<|eot_id|><|start_header_id|>user<|end_header_id|>\n\n%s<|eot_id|>%s\n\n",
		p.System, p.User, llamaAssistantHeader)
}

func (llama3Template) Extract(raw string) string {
	return cutAt(afterLast(raw, llamaAssistantHeader), "<|eot_id|>", "<|end_of_text|>")
}

func (llama3Template) Stops() []string { return []string{"<|eot_id|>", "<|end_of_text|>"} }

// instructTemplate covers Phi, Mistral and other generic instruction models.
// Without a system block they are prompted like a plain continuation model.
type instructTemplate struct{}

func (instructTemplate) Name() string { return "instruct" }

func (instructTemplate) Format(p Prompt) string {
	if p.System == "" {
		return p.User
	}
	return fmt.Sprintf("<|system|>\nYou are a creative storytelling AI. Write compelling, coherent narrative prose.\n%s<|end|>\n<|user|>\n%s<|end|>\n<|assistant|>\n",
		p.System, p.User)
}

func (instructTemplate) Extract(raw string) string {
	return cutAt(afterLast(raw, "<|assistant|>"), "<|end|>")
}

func (instructTemplate) Stops() []string { return []string{"<|end|>", "<|user|>"} }

// plainTemplate is for GPT-2 style models, which continue text and do not
// follow instructions. The system block is dropped.
type plainTemplate struct{}

func (plainTemplate) Name() string { return "plain" }

func (plainTemplate) Format(p Prompt) string { return p.User }

func (plainTemplate) Extract(raw string) string { return strings.TrimSpace(raw) }

func (plainTemplate) Stops() []string { return nil }
