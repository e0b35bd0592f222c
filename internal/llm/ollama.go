package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adaptivestory/internal/observability"
)

// OllamaOracle runs a local model through Ollama's generate endpoint in raw
// mode. Ollama's own chat template is bypassed and ours is applied instead,
// which keeps sampling options like top_k and repeat_penalty available.
type OllamaOracle struct {
	client   *api.Client
	model    string
	template Template
	log      *zap.Logger
	tracer   trace.Tracer
}

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

const DefaultOllamaURL = "http://localhost:11434"

func NewOllamaOracle(cfg OllamaConfig, log *zap.Logger) (*OllamaOracle, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: ollama backend needs a model", ErrOracleUnavailable)
	}
	if log == nil {
		log = zap.NewNop()
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	base = strings.TrimSuffix(strings.TrimSuffix(base, "/"), "/v1")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ollama url %q: %v", ErrOracleUnavailable, base, err)
	}

	return &OllamaOracle{
		client:   api.NewClient(parsed, &http.Client{Timeout: cfg.Timeout}),
		model:    cfg.Model,
		template: TemplateFor(cfg.Model),
		log:      log.Named("ollama"),
		tracer:   otel.Tracer("llm-ollama"),
	}, nil
}

func (o *OllamaOracle) Template() Template { return o.template }

func (o *OllamaOracle) Generate(ctx context.Context, p Prompt, params Params) (string, error) {
	spanName := "llm.ollama"
	if opType := OperationType(ctx); opType != "" {
		spanName = opType
	}
	ctx, span := o.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.CreateGenAIAttributes("ollama", "text_completion", o.model, params.Temperature)...),
	)
	defer span.End()

	raw := o.template.Format(p)
	span.SetAttributes(append(storyAttributes(ctx),
		attribute.Int("gen_ai.request.max_tokens", params.MaxNewTokens),
		attribute.String("llm.template", o.template.Name()),
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("langfuse.observation.input", raw),
	)...)

	options := map[string]any{
		"temperature":    params.Temperature,
		"top_p":          params.TopP,
		"top_k":          params.TopK,
		"repeat_penalty": params.RepetitionPenalty,
		"num_predict":    params.MaxNewTokens,
	}
	if stops := o.template.Stops(); len(stops) > 0 {
		options["stop"] = stops
	}
	req := &api.GenerateRequest{
		Model:   o.model,
		Prompt:  raw,
		Raw:     true,
		Stream:  func(b bool) *bool { return &b }(false),
		Options: options,
	}

	start := time.Now()
	var resp api.GenerateResponse
	err := o.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			o.log.Warn("ollama timed out", zap.String("model", o.model), zap.Duration("after", time.Since(start)))
		} else {
			o.log.Warn("ollama generate failed", zap.String("model", o.model), zap.Error(err))
		}
		return "", fmt.Errorf("%w: ollama generate failed: %v", ErrOracleUnavailable, err)
	}

	text := o.template.Extract(resp.Response)
	if text == "" {
		span.RecordError(ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", resp.PromptEvalCount),
		attribute.Int("gen_ai.usage.output_tokens", resp.EvalCount),
		attribute.Int64("response_time_ms", time.Since(start).Milliseconds()),
		attribute.String("langfuse.observation.output", text),
		attribute.String("langfuse.observation.model.name", o.model),
	)
	o.log.Debug("ollama generate",
		zap.String("model", o.model),
		zap.String("done_reason", resp.DoneReason),
		zap.Int("prompt_tokens", resp.PromptEvalCount),
		zap.Int("completion_tokens", resp.EvalCount),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}
