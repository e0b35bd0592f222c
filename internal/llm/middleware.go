package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"adaptivestory/internal/metrics"
)

// WithMetrics records call counts, latency and output size per backend.
func WithMetrics(backend string) Middleware {
	return func(next Oracle) Oracle {
		return OracleFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
			start := time.Now()
			out, err := next.Generate(ctx, p, params)
			metrics.OracleDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())

			status := "success"
			switch {
			case errors.Is(err, ErrEmptyResponse):
				status = "empty"
			case err != nil:
				status = "error"
			default:
				metrics.OracleOutputChars.WithLabelValues(backend).Observe(float64(len(out)))
			}
			metrics.OracleRequests.WithLabelValues(backend, status).Inc()
			return out, err
		})
	}
}

// WithTimeout bounds each call. Zero leaves the context untouched.
func WithTimeout(d time.Duration) Middleware {
	return func(next Oracle) Oracle {
		if d <= 0 {
			return next
		}
		return OracleFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Generate(ctx, p, params)
		})
	}
}

// CompletionRecord is one oracle exchange, as handed to a Recorder.
type CompletionRecord struct {
	SessionID string
	Operation string
	Backend   string
	Model     string
	Prompt    Prompt
	Params    Params
	Response  string
	Duration  time.Duration
	Err       error
}

// Recorder persists completions for later review.
type Recorder interface {
	RecordCompletion(ctx context.Context, rec CompletionRecord) error
}

// WithRecorder hands every exchange to r. Recorder failures are logged and
// never fail the call.
func WithRecorder(r Recorder, backend, model string, log *zap.Logger) Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next Oracle) Oracle {
		if r == nil {
			return next
		}
		return OracleFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
			start := time.Now()
			out, err := next.Generate(ctx, p, params)
			rec := CompletionRecord{
				SessionID: SessionID(ctx),
				Operation: OperationType(ctx),
				Backend:   backend,
				Model:     model,
				Prompt:    p,
				Params:    params,
				Response:  out,
				Duration:  time.Since(start),
				Err:       err,
			}
			if rerr := r.RecordCompletion(context.WithoutCancel(ctx), rec); rerr != nil {
				log.Warn("failed to record completion", zap.Error(rerr))
			}
			return out, err
		})
	}
}

// WithLogging writes one debug line per call.
func WithLogging(log *zap.Logger) Middleware {
	return func(next Oracle) Oracle {
		if log == nil {
			return next
		}
		return OracleFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
			start := time.Now()
			out, err := next.Generate(ctx, p, params)
			log.Debug("oracle call",
				zap.String("operation", OperationType(ctx)),
				zap.String("session_id", SessionID(ctx)),
				zap.Int("max_tokens", params.MaxNewTokens),
				zap.Float64("temperature", params.Temperature),
				zap.Int("output_len", len(out)),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return out, err
		})
	}
}
