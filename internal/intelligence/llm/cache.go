package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// ResponseCache is the subset of the redis cache the caching completer needs.
// A miss is reported as a not-found AppError.
type ResponseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LoadingCache is a ResponseCache that collapses concurrent loads of one key.
// When the configured cache implements it, identical in-flight prompts reach
// the model once.
type LoadingCache interface {
	ResponseCache
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

var errEmptyCompletion = errors.New(errors.ErrCodeLLMInvalidResponse, "empty completion not cached")

// CachingCompleter memoises successful completions keyed by request content.
// Cache failures never fail a call.
type CachingCompleter struct {
	next   Completer
	cache  ResponseCache
	ttl    time.Duration
	logger logging.Logger
}

// NewCachingCompleter wraps next with cache.
func NewCachingCompleter(next Completer, cache ResponseCache, ttl time.Duration, log logging.Logger) *CachingCompleter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachingCompleter{next: next, cache: cache, ttl: ttl, logger: log}
}

// CacheKey derives a stable key from every request field that affects the
// model output.
func CacheKey(req *CompletionRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return "llm:" + hex.EncodeToString(sum[:])
}

// Complete implements Completer.
func (c *CachingCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	key := CacheKey(req)
	if lc, ok := c.cache.(LoadingCache); ok {
		return c.completeLoading(ctx, lc, key, req)
	}

	var hit CompletionResponse
	err := c.cache.Get(ctx, key, &hit)
	switch {
	case err == nil:
		hit.Cached = true
		return &hit, nil
	case errors.IsNotFound(err):
	default:
		c.logger.Warn("llm cache read failed", logging.String("key", key), logging.Err(err))
	}

	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content != "" {
		if err := c.cache.Set(ctx, key, resp, c.ttl); err != nil {
			c.logger.Warn("llm cache write failed", logging.String("key", key), logging.Err(err))
		}
	}
	return resp, nil
}

func (c *CachingCompleter) completeLoading(ctx context.Context, lc LoadingCache, key string, req *CompletionRequest) (*CompletionResponse, error) {
	var (
		fresh   *CompletionResponse
		callErr error
		out     CompletionResponse
	)
	err := lc.GetOrSet(ctx, key, &out, c.ttl, func(ctx context.Context) (interface{}, error) {
		fresh, callErr = c.next.Complete(ctx, req)
		if callErr != nil {
			return nil, callErr
		}
		if fresh.Content == "" {
			return nil, errEmptyCompletion
		}
		return fresh, nil
	})
	switch {
	case callErr != nil:
		return nil, callErr
	case fresh != nil:
		return fresh, nil
	case err == nil:
		out.Cached = true
		return &out, nil
	}

	// Either the cache read failed or a concurrent loader for the same key
	// failed; call through once on our own.
	c.logger.Warn("llm cache read failed", logging.String("key", key), logging.Err(err))
	return c.next.Complete(ctx, req)
}

//Personal.AI order the ending
