package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adaptivestory/internal/observability"
)

// CompletionOracle sends a single templated prompt to a legacy completions
// endpoint, as served by vLLM, llama.cpp or text-generation-inference behind
// an OpenAI-compatible API. It is the home of base and small chat models that
// need their own prompt format.
type CompletionOracle struct {
	client   *openaigo.Client
	model    string
	template Template
	log      *zap.Logger
	tracer   trace.Tracer
}

type CompletionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewCompletionOracle(cfg CompletionConfig, log *zap.Logger) (*CompletionOracle, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: completion backend needs a model", ErrOracleUnavailable)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: completion backend needs a base URL", ErrOracleUnavailable)
	}
	if log == nil {
		log = zap.NewNop()
	}

	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &CompletionOracle{
		client:   openaigo.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		template: TemplateFor(cfg.Model),
		log:      log.Named("completion"),
		tracer:   otel.Tracer("llm-completion"),
	}, nil
}

func (c *CompletionOracle) Template() Template { return c.template }

func (c *CompletionOracle) Generate(ctx context.Context, p Prompt, params Params) (string, error) {
	spanName := "llm.completion"
	if opType := OperationType(ctx); opType != "" {
		spanName = opType
	}
	ctx, span := c.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.CreateGenAIAttributes("openai_compatible", "text_completion", c.model, params.Temperature)...),
	)
	defer span.End()

	raw := c.template.Format(p)
	span.SetAttributes(append(storyAttributes(ctx),
		attribute.Int("gen_ai.request.max_tokens", params.MaxNewTokens),
		attribute.String("llm.template", c.template.Name()),
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("langfuse.observation.input", raw),
	)...)

	req := openaigo.CompletionRequest{
		Model:       c.model,
		Prompt:      raw,
		MaxTokens:   params.MaxNewTokens,
		Temperature: float32(params.Temperature),
		TopP:        float32(params.TopP),
		Stop:        c.template.Stops(),
	}
	if params.RepetitionPenalty > 1 {
		req.FrequencyPenalty = float32(params.RepetitionPenalty - 1)
	}

	start := time.Now()
	resp, err := c.client.CreateCompletion(ctx, req)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		c.log.Warn("completion failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: completion failed: %v", ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		span.RecordError(ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	text := c.template.Extract(resp.Choices[0].Text)
	if text == "" {
		return "", ErrEmptyResponse
	}

	span.SetAttributes(
		attribute.Int64("response_time_ms", time.Since(start).Milliseconds()),
		attribute.String("langfuse.observation.output", text),
		attribute.String("langfuse.observation.model.name", c.model),
	)
	c.log.Debug("completion",
		zap.String("model", c.model),
		zap.String("template", c.template.Name()),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
		zap.Int("output_len", len(text)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}
