package llm

import (
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
)

// Deps carries the optional collaborators of the completer chain.
type Deps struct {
	Cache    ResponseCache
	Recorder Recorder
	Logger   logging.Logger
}

// NewFromConfig assembles provider → retry → cache → instrumentation.
// Cache and recorder layers are skipped when their dependency is nil.
func NewFromConfig(cfg config.LLMConfig, deps Deps) (Completer, error) {
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	base, err := NewOpenAICompleter(cfg, log)
	if err != nil {
		return nil, err
	}
	return Wrap(base, cfg, deps), nil
}

// Wrap layers the configured decorators over an existing completer.
func Wrap(base Completer, cfg config.LLMConfig, deps Deps) Completer {
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := base
	if cfg.MaxRetries > 0 {
		c = NewRetryingCompleter(c, cfg.MaxRetries, log, WithBaseBackoff(cfg.RetryBackoff))
	}
	if cfg.CacheEnabled && deps.Cache != nil {
		c = NewCachingCompleter(c, deps.Cache, cfg.CacheTTL, log)
	}
	if deps.Recorder != nil {
		c = NewInstrumentedCompleter(c, deps.Recorder, cfg.Model)
	}
	return c
}

//Personal.AI order the ending
