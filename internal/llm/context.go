package llm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adaptivestory/internal/observability"
)

type contextKey string

const (
	operationTypeKey contextKey = "operation_type"
	storyContextKey  contextKey = "story_context"
)

func WithOperationType(ctx context.Context, opType string) context.Context {
	return context.WithValue(ctx, operationTypeKey, opType)
}

// WithStoryContext merges storyCtx into any story context already on ctx.
func WithStoryContext(ctx context.Context, storyCtx map[string]any) context.Context {
	if existing, ok := ctx.Value(storyContextKey).(map[string]any); ok && existing != nil {
		merged := make(map[string]any, len(existing)+len(storyCtx))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range storyCtx {
			merged[k] = v
		}
		return context.WithValue(ctx, storyContextKey, merged)
	}
	return context.WithValue(ctx, storyContextKey, storyCtx)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return observability.WithSessionID(ctx, sessionID)
}

func OperationType(ctx context.Context) string {
	if opType, ok := ctx.Value(operationTypeKey).(string); ok {
		return opType
	}
	return ""
}

func StoryContext(ctx context.Context) map[string]any {
	if storyCtx, ok := ctx.Value(storyContextKey).(map[string]any); ok {
		return storyCtx
	}
	return nil
}

func SessionID(ctx context.Context) string {
	return observability.GetSessionIDFromContext(ctx)
}

// storyAttributes turns the session id and story context on ctx into span attributes.
func storyAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if sid := SessionID(ctx); sid != "" {
		attrs = append(attrs,
			attribute.String("langfuse.session.id", sid),
			attribute.String("session.id", sid),
		)
	}
	for k, v := range StoryContext(ctx) {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String("story."+k, val))
		case int:
			attrs = append(attrs, attribute.Int("story."+k, val))
		case float64:
			attrs = append(attrs, attribute.Float64("story."+k, val))
		case []string:
			attrs = append(attrs, attribute.StringSlice("story."+k, val))
		}
	}
	return attrs
}

// CopyStoryContextToSpan attaches story context and session id attributes to an existing span.
func CopyStoryContextToSpan(ctx context.Context, span trace.Span) {
	if span == nil {
		return
	}
	span.SetAttributes(storyAttributes(ctx)...)
}
