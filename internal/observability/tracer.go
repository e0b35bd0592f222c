package observability

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const DefaultServiceName = "adaptive-story"

// Config holds the configuration for OpenTelemetry tracing
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	LangfuseHost   string
	PublicKey      string
	SecretKey      string
	// Insecure allows a plain-HTTP collector, e.g. a local Langfuse.
	Insecure bool
}

// TracerProvider wraps the OpenTelemetry tracer provider with cleanup
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	enabled  bool
}

// InitTracing initializes OpenTelemetry tracing with Langfuse export
func InitTracing(ctx context.Context, config Config) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{enabled: false}, nil
	}
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}

	exporter, err := createLangfuseExporter(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Langfuse exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(100),
		),
		sdktrace.WithResource(createResource(config)),
		sdktrace.WithSpanProcessor(sessionInjector{}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{
		provider: tp,
		enabled:  true,
	}, nil
}

// GetTracer returns a tracer for the given name
func (tp *TracerProvider) GetTracer(name string, options ...trace.TracerOption) trace.Tracer {
	if tp == nil || !tp.enabled {
		return noop.NewTracerProvider().Tracer(name, options...)
	}
	return otel.Tracer(name, options...)
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || !tp.enabled || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) IsEnabled() bool {
	return tp != nil && tp.enabled
}

func createLangfuseExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(config.PublicKey + ":" + config.SecretKey))

	host := strings.TrimSuffix(config.LangfuseHost, "/")
	endpoint := fmt.Sprintf("%s/api/public/otel/v1/traces", host)

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(endpoint),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + auth,
		}),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithTimeout(30 * time.Second),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	return exporter, nil
}

func createResource(config Config) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		attribute.String("deployment.environment", config.Environment),
	)
}

// CreateLangfuseAttributes creates Langfuse-specific span attributes
func CreateLangfuseAttributes(traceName, sessionID, userID string, tags []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("langfuse.trace.name", traceName),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String("langfuse.session.id", sessionID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String("langfuse.user.id", userID))
	}
	if len(tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("langfuse.trace.tags", tags))
	}
	return attrs
}

// CreateGenAIAttributes creates GenAI semantic convention attributes for LLM
// spans. operation is "chat" or "text_completion".
func CreateGenAIAttributes(system, operation, model string, temperature float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", operation),
		attribute.String("gen_ai.system", system),
		attribute.String("gen_ai.request.model", model),
	}
	if temperature >= 0 {
		attrs = append(attrs, attribute.Float64("gen_ai.request.temperature", temperature))
	}
	return attrs
}

// sessionInjector stamps the session id from the start context on every span,
// so child spans of a turn group under the same Langfuse session.
type sessionInjector struct{}

func (sessionInjector) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if sid := GetSessionIDFromContext(ctx); sid != "" {
		s.SetAttributes(
			attribute.String("langfuse.session.id", sid),
			attribute.String("session.id", sid),
		)
	}
}

func (sessionInjector) OnEnd(sdktrace.ReadOnlySpan)      {}
func (sessionInjector) Shutdown(context.Context) error   { return nil }
func (sessionInjector) ForceFlush(context.Context) error { return nil }

type contextKey string

const sessionIDKey contextKey = "session_id"

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func GetSessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
