package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeJobLocked, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// DistributedLock guards a job so that one worker processes it at a time.
// The key holds a random owner token and expires unless renewed.
type DistributedLock interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

// LockFactory hands out locks by name.
type LockFactory interface {
	NewMutex(name string, opts ...LockOption) DistributedLock
}

type LockOption func(*lockConfig)

type lockConfig struct {
	ttl        time.Duration
	retryDelay time.Duration
	attempts   int
	renew      bool
	renewEvery time.Duration
}

func defaultLockConfig() lockConfig {
	return lockConfig{ttl: 30 * time.Second, retryDelay: 100 * time.Millisecond, attempts: 30}
}

func WithLockTTL(ttl time.Duration) LockOption { return func(c *lockConfig) { c.ttl = ttl } }

func WithRetryDelay(d time.Duration) LockOption { return func(c *lockConfig) { c.retryDelay = d } }

// WithRetryCount bounds how many times Lock tries before ErrLockNotAcquired.
func WithRetryCount(n int) LockOption { return func(c *lockConfig) { c.attempts = n } }

// WithWatchdog renews a held lock in the background until Unlock, so a long
// LLM run does not lose its job to another worker.
func WithWatchdog(enabled bool) LockOption { return func(c *lockConfig) { c.renew = enabled } }

func WithWatchdogInterval(d time.Duration) LockOption {
	return func(c *lockConfig) { c.renewEvery = d }
}

// compare-and-delete / compare-and-expire on the owner token
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then return 0 end
return redis.call("DEL", KEYS[1])`)
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then return 0 end
return redis.call("PEXPIRE", KEYS[1], ARGV[2])`)
)

type lockFactory struct {
	client *Client
	log    logging.Logger
}

// NewLockFactory stores locks under <prefix>lock:<name>.
func NewLockFactory(client *Client, log logging.Logger) LockFactory {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &lockFactory{client: client, log: log}
}

func (f *lockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := defaultLockConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.attempts = max(cfg.attempts, 1)
	if cfg.renew && cfg.renewEvery <= 0 {
		cfg.renewEvery = cfg.ttl / 3
	}
	return &jobLock{
		client: f.client,
		key:    f.client.Key("lock", name),
		token:  uuid.NewString(),
		cfg:    cfg,
		log:    f.log.With(logging.String("lock", name)),
	}
}

type jobLock struct {
	client *Client
	key    string
	token  string
	cfg    lockConfig
	log    logging.Logger

	mu      sync.Mutex
	stopRen func()
}

func (l *jobLock) Lock(ctx context.Context) error {
	wait := time.NewTimer(0)
	defer wait.Stop()
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait.C:
		}
		ok, err := l.TryLock(ctx)
		switch {
		case err != nil:
			return err
		case ok:
			return nil
		case attempt >= l.cfg.attempts:
			return ErrLockNotAcquired
		}
		wait.Reset(l.cfg.retryDelay)
	}
}

func (l *jobLock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.token, l.cfg.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	if acquired && l.cfg.renew {
		l.startRenewal()
	}
	return acquired, nil
}

func (l *jobLock) Unlock(ctx context.Context) error {
	l.stopRenewal()
	n, err := releaseScript.Run(ctx, l.client.Underlying(), []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *jobLock) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, l.client.Underlying(), []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to extend lock")
	}
	return n == 1, nil
}

func (l *jobLock) TTL(ctx context.Context) (time.Duration, error) {
	return l.client.PTTL(ctx, l.key).Result()
}

func (l *jobLock) startRenewal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopRen != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.stopRen = func() {
		cancel()
		<-done
	}
	go func() {
		defer close(done)
		l.renewLoop(ctx)
	}()
}

func (l *jobLock) stopRenewal() {
	l.mu.Lock()
	stop := l.stopRen
	l.stopRen = nil
	l.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (l *jobLock) renewLoop(ctx context.Context) {
	tick := time.NewTicker(l.cfg.renewEvery)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		held, err := l.Extend(ctx, l.cfg.ttl)
		if err != nil {
			if ctx.Err() == nil {
				l.log.Error("lock renewal failed", logging.Err(err))
			}
			return
		}
		if !held {
			l.log.Warn("lock lost before release")
			return
		}
	}
}

//Personal.AI order the ending
