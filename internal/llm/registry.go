package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackendConfig selects and configures one oracle backend.
type BackendConfig struct {
	Backend          string
	Model            string
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxContextTokens int
	// Encoding is the tiktoken encoding used for the context budget. Empty
	// means count words.
	Encoding string
}

// Factory builds a bare backend.
type Factory func(cfg BackendConfig, log *zap.Logger) (Oracle, error)

var builtinFactories = map[string]Factory{
	"openai": func(cfg BackendConfig, log *zap.Logger) (Oracle, error) {
		return NewChatOracle(ChatConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout}, log)
	},
	"completion": func(cfg BackendConfig, log *zap.Logger) (Oracle, error) {
		return NewCompletionOracle(CompletionConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout}, log)
	},
	"ollama": func(cfg BackendConfig, log *zap.Logger) (Oracle, error) {
		return NewOllamaOracle(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout}, log)
	},
}

// Registry builds the configured oracle on first use and hands the same
// instance out afterwards. A failed build is remembered and returned again.
type Registry struct {
	cfg       BackendConfig
	log       *zap.Logger
	recorder  Recorder
	factories map[string]Factory

	mu     sync.Mutex
	built  bool
	oracle Oracle
	err    error
}

type RegistryOption func(*Registry)

func WithCompletionRecorder(r Recorder) RegistryOption {
	return func(reg *Registry) { reg.recorder = r }
}

// WithFactory adds or replaces a backend.
func WithFactory(name string, f Factory) RegistryOption {
	return func(reg *Registry) { reg.factories[strings.ToLower(name)] = f }
}

func NewRegistry(cfg BackendConfig, log *zap.Logger, opts ...RegistryOption) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		cfg:       cfg,
		log:       log,
		factories: make(map[string]Factory, len(builtinFactories)),
	}
	for name, f := range builtinFactories {
		r.factories[name] = f
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Oracle returns the shared oracle, building it on the first call.
func (r *Registry) Oracle() (Oracle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.built {
		r.oracle, r.err = r.build()
		r.built = true
	}
	return r.oracle, r.err
}

func (r *Registry) build() (Oracle, error) {
	name := strings.ToLower(strings.TrimSpace(r.cfg.Backend))
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q (have %s)", ErrOracleUnavailable, r.cfg.Backend, strings.Join(r.Backends(), ", "))
	}
	base, err := factory(r.cfg, r.log)
	if err != nil {
		r.log.Error("oracle backend unavailable", zap.String("backend", name), zap.Error(err))
		return nil, err
	}

	mws := []Middleware{
		WithMetrics(name),
		WithLogging(r.log.Named("oracle")),
		WithRecorder(r.recorder, name, r.cfg.Model, r.log),
	}
	if r.cfg.MaxContextTokens > 0 {
		mws = append(mws, NewBudget(r.cfg.MaxContextTokens, r.cfg.Encoding).Middleware())
	}
	r.log.Info("oracle ready", zap.String("backend", name), zap.String("model", r.cfg.Model))
	return Chain(base, mws...), nil
}

// Backends lists the registered backend names.
func (r *Registry) Backends() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Config() BackendConfig { return r.cfg }
