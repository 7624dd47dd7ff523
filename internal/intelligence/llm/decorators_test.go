package llm

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/testutil"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type countingCompleter struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*CompletionResponse, error)
}

func (c *countingCompleter) Complete(_ context.Context, _ *CompletionRequest) (*CompletionResponse, error) {
	c.mu.Lock()
	n := c.calls
	c.calls++
	c.mu.Unlock()
	return c.fn(n)
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "cache miss")
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

type recordedCall struct {
	op, model, status string
}

type fakeRecorder struct {
	mu     sync.Mutex
	calls  []recordedCall
	tokens map[string]int
}

func (f *fakeRecorder) ObserveLLMRequest(op, model, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{op, model, status})
}

func (f *fakeRecorder) AddLLMTokens(op, direction string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = make(map[string]int)
	}
	f.tokens[op+"/"+direction] += n
}

func okResp(content string) *CompletionResponse {
	return &CompletionResponse{Content: content, Usage: Usage{PromptTokens: 7, CompletionTokens: 2}}
}

// ---------------------------------------------------------------------------
// Retry
// ---------------------------------------------------------------------------

func TestRetryingCompleter_RetriesTransientFailures(t *testing.T) {
	next := &countingCompleter{fn: func(call int) (*CompletionResponse, error) {
		if call < 2 {
			return nil, &RetryableError{Err: errors.New(errors.ErrCodeLLMRateLimited, "429")}
		}
		return okResp("{}"), nil
	}}
	log := testutil.NewMockLogger()
	r := NewRetryingCompleter(next, 3, log, WithBackoffFunc(func(int) time.Duration { return 0 }))

	resp, err := r.Complete(context.Background(), &CompletionRequest{Operation: OpSegment})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, 2, log.CountLevel("warn"))
}

func TestRetryingCompleter_GivesUp(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) {
		return nil, &RetryableError{Err: errors.New(errors.ErrCodeLLMRequestFailed, "503")}
	}}
	r := NewRetryingCompleter(next, 2, nil, WithBackoffFunc(func(int) time.Duration { return 0 }))

	_, err := r.Complete(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestRetryingCompleter_PermanentErrorNotRetried(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) {
		return nil, errors.New(errors.ErrCodeLLMRequestFailed, "400")
	}}
	r := NewRetryingCompleter(next, 5, nil, WithBackoffFunc(func(int) time.Duration { return 0 }))

	_, err := r.Complete(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestRetryingCompleter_ContextCancelledDuringBackoff(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) {
		return nil, &RetryableError{Err: errors.New(errors.ErrCodeLLMRequestFailed, "503")}
	}}
	r := NewRetryingCompleter(next, 5, nil, WithBackoffFunc(func(int) time.Duration { return time.Hour }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Complete(ctx, &CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
	assert.Equal(t, 1, next.calls)
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.Duration(0), Backoff(0, 3))
	for attempt := 0; attempt < 4; attempt++ {
		base := time.Second << uint(attempt)
		d := Backoff(time.Second, attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2)
	}
	assert.Less(t, Backoff(time.Second, 20), 46*time.Second)
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func TestCachingCompleter_HitAfterMiss(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) { return okResp(`{"a":1}`), nil }}
	c := NewCachingCompleter(next, newMemCache(), time.Hour, nil)
	req := &CompletionRequest{SystemPrompt: "s", UserPrompt: "u", MaxTokens: 10}

	first, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, next.calls)
}

func TestCachingCompleter_DistinctRequestsDistinctKeys(t *testing.T) {
	a := &CompletionRequest{UserPrompt: "a"}
	b := &CompletionRequest{UserPrompt: "b"}
	assert.NotEqual(t, CacheKey(a), CacheKey(b))
	assert.Equal(t, CacheKey(a), CacheKey(&CompletionRequest{UserPrompt: "a", Operation: OpMerge}))
}

func TestCachingCompleter_CacheErrorsBypassed(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New(errors.ErrCodeCacheError, "redis down")
	cache.setErr = errors.New(errors.ErrCodeCacheError, "redis down")
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) { return okResp("x"), nil }}
	log := testutil.NewMockLogger()
	c := NewCachingCompleter(next, cache, time.Hour, log)

	resp, err := c.Complete(context.Background(), &CompletionRequest{UserPrompt: "u"})
	require.NoError(t, err)
	assert.Equal(t, "x", resp.Content)
	assert.True(t, log.HasMessage("warn", "llm cache read failed"))
	assert.True(t, log.HasMessage("warn", "llm cache write failed"))
}

func TestCachingCompleter_ErrorsNotCached(t *testing.T) {
	cache := newMemCache()
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) {
		return nil, errors.New(errors.ErrCodeLLMRequestFailed, "boom")
	}}
	c := NewCachingCompleter(next, cache, time.Hour, nil)

	_, err := c.Complete(context.Background(), &CompletionRequest{UserPrompt: "u"})
	require.Error(t, err)
	assert.Empty(t, cache.data)
}

// ---------------------------------------------------------------------------
// Instrumentation and chain
// ---------------------------------------------------------------------------

func TestInstrumentedCompleter_RecordsStatusAndTokens(t *testing.T) {
	rec := &fakeRecorder{}
	next := &countingCompleter{fn: func(call int) (*CompletionResponse, error) {
		switch call {
		case 0:
			return okResp("{}"), nil
		case 1:
			return &CompletionResponse{Content: "{}", Cached: true}, nil
		default:
			return nil, errors.New(errors.ErrCodeLLMRequestFailed, "boom")
		}
	}}
	c := NewInstrumentedCompleter(next, rec, "gpt-test")
	ctx := context.Background()

	_, _ = c.Complete(ctx, &CompletionRequest{Operation: OpSegment})
	_, _ = c.Complete(ctx, &CompletionRequest{Operation: OpSegment})
	_, _ = c.Complete(ctx, &CompletionRequest{})

	require.Len(t, rec.calls, 3)
	assert.Equal(t, recordedCall{"segment", "gpt-test", "ok"}, rec.calls[0])
	assert.Equal(t, recordedCall{"segment", "gpt-test", "cached"}, rec.calls[1])
	assert.Equal(t, recordedCall{"other", "gpt-test", "error"}, rec.calls[2])
	assert.Equal(t, 7, rec.tokens["segment/input"])
	assert.Equal(t, 2, rec.tokens["segment/output"])
}

func TestWrap_LayersFromConfig(t *testing.T) {
	base := CompleterFunc(func(context.Context, *CompletionRequest) (*CompletionResponse, error) { return okResp("{}"), nil })

	plain := Wrap(base, config.LLMConfig{}, Deps{})
	_, isFunc := plain.(CompleterFunc)
	assert.True(t, isFunc)

	full := Wrap(base, config.LLMConfig{MaxRetries: 2, CacheEnabled: true, Model: "m"}, Deps{
		Cache:    newMemCache(),
		Recorder: &fakeRecorder{},
	})
	inst, isInst := full.(*InstrumentedCompleter)
	require.True(t, isInst)
	cache, isCache := inst.next.(*CachingCompleter)
	require.True(t, isCache)
	_, isRetry := cache.next.(*RetryingCompleter)
	assert.True(t, isRetry)
}

// loadingCache adds a naive GetOrSet on top of memCache.
type loadingCache struct {
	*memCache
	loads int
}

func (l *loadingCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if err := l.Get(ctx, key, dest); err == nil || !errors.IsNotFound(err) {
		return err
	}
	l.loads++
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	if err := l.Set(ctx, key, v, ttl); err != nil {
		return err
	}
	b, _ := json.Marshal(v)
	return json.Unmarshal(b, dest)
}

func TestCachingCompleter_LoadingCache(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) { return okResp(`{"a":1}`), nil }}
	cache := &loadingCache{memCache: newMemCache()}
	c := NewCachingCompleter(next, cache, time.Hour, nil)
	req := &CompletionRequest{UserPrompt: "same"}

	first, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, `{"a":1}`, second.Content)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, cache.loads)
}

func TestCachingCompleter_LoadingCacheEmptyContentNotStored(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) { return okResp(""), nil }}
	cache := &loadingCache{memCache: newMemCache()}
	c := NewCachingCompleter(next, cache, time.Hour, nil)

	for i := 0; i < 2; i++ {
		resp, err := c.Complete(context.Background(), &CompletionRequest{UserPrompt: "x"})
		require.NoError(t, err)
		assert.False(t, resp.Cached)
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, cache.data)
}

func TestCachingCompleter_LoadingCacheReadFailureCallsThrough(t *testing.T) {
	next := &countingCompleter{fn: func(int) (*CompletionResponse, error) { return okResp("{}"), nil }}
	cache := &loadingCache{memCache: newMemCache()}
	cache.getErr = errors.New(errors.ErrCodeCacheError, "down")
	log := testutil.NewMockLogger()
	c := NewCachingCompleter(next, cache, time.Hour, log)

	resp, err := c.Complete(context.Background(), &CompletionRequest{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, 1, next.calls)
	assert.True(t, log.HasMessage("warn", "llm cache read failed"))
}

//Personal.AI order the ending
