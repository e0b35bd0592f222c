package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adaptivestory/internal/observability"
)

// ChatOracle talks to a chat-completions endpoint. System and user text are
// sent as separate messages, so no prompt template is applied.
type ChatOracle struct {
	client *openai.Client
	model  string
	log    *zap.Logger
	tracer trace.Tracer
}

type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewChatOracle(cfg ChatConfig, log *zap.Logger) (*ChatOracle, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: chat backend needs a model", ErrOracleUnavailable)
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: chat backend needs an API key or a base URL", ErrOracleUnavailable)
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	return &ChatOracle{
		client: &client,
		model:  cfg.Model,
		log:    log.Named("chat"),
		tracer: otel.Tracer("llm-chat"),
	}, nil
}

func (c *ChatOracle) Generate(ctx context.Context, p Prompt, params Params) (string, error) {
	operationType := "llm.chat"
	if opType := OperationType(ctx); opType != "" {
		operationType = opType
	}

	ctx, span := c.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.CreateGenAIAttributes("openai", "chat", c.model, params.Temperature)...),
	)
	defer span.End()

	span.SetAttributes(append(storyAttributes(ctx),
		attribute.Int("gen_ai.request.max_tokens", params.MaxNewTokens),
		attribute.Float64("gen_ai.request.top_p", params.TopP),
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("story.operation_type", operationType),
	)...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.User))

	req := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(params.MaxNewTokens)),
		Temperature:         openai.Float(params.Temperature),
		TopP:                openai.Float(params.TopP),
	}
	// The chat API has no repetition penalty; map the excess over 1.0 onto
	// the frequency penalty.
	if params.RepetitionPenalty > 1 {
		req.FrequencyPenalty = openai.Float(params.RepetitionPenalty - 1)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		c.log.Warn("chat completion failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: chat completion failed: %v", ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.RecordError(ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.input", p.System+"\n\n"+p.User),
		attribute.String("langfuse.observation.output", content),
		attribute.String("langfuse.observation.model.name", c.model),
	)

	c.log.Debug("chat completion",
		zap.String("model", c.model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", duration),
	)
	return content, nil
}
