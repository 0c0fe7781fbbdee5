// Package auth owns the process-wide session credential: one cached
// token, refreshed on a timer and reactively after rejections. Every
// caller that needs a token goes through CredentialCache instead of
// holding its own copy.
package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/slatedata/querykit/pkg/tableau"
)

// DefaultRefreshInterval matches the platform session behavior: the token
// is unconditionally renewed every 30 minutes whether or not a rejection
// was observed.
const DefaultRefreshInterval = 30 * time.Minute

// SignInFunc performs a fresh sign-in against the gateway.
type SignInFunc func(ctx context.Context) (tableau.Credentials, error)

// CredentialCache caches the session credential in memory. The cached
// value is replaced atomically under the lock; readers never observe a
// partially written credential. Concurrent stale readers share a single
// in-flight sign-in through the singleflight group rather than issuing N
// redundant ones. The timer-based and reactive refresh paths may race;
// last writer wins.
type CredentialCache struct {
	mu     sync.RWMutex
	creds  tableau.Credentials
	valid  bool
	signIn SignInFunc
	group  singleflight.Group

	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a CredentialCache.
type Option func(*CredentialCache)

// WithRefreshInterval overrides the background refresh cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *CredentialCache) {
		if d > 0 {
			c.interval = d
		}
	}
}

func NewCredentialCache(signIn SignInFunc, logger *zap.Logger, opts ...Option) *CredentialCache {
	c := &CredentialCache{
		signIn:   signIn,
		interval: DefaultRefreshInterval,
		stop:     make(chan struct{}),
		logger:   logger.Named("auth"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetValid returns the cached credential, signing in first if none is
// cached or the cache was invalidated.
func (c *CredentialCache) GetValid(ctx context.Context) (tableau.Credentials, error) {
	c.mu.RLock()
	if c.valid {
		creds := c.creds
		c.mu.RUnlock()
		return creds, nil
	}
	c.mu.RUnlock()

	return c.refresh(ctx)
}

// Invalidate drops the cached credential. The next GetValid signs in
// again. Called by request paths that observe an authentication
// rejection.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// refresh performs one sign-in, deduplicated across concurrent callers.
func (c *CredentialCache) refresh(ctx context.Context) (tableau.Credentials, error) {
	v, err, _ := c.group.Do("sign-in", func() (any, error) {
		creds, err := c.signIn(ctx)
		if err != nil {
			return tableau.Credentials{}, err
		}
		c.mu.Lock()
		c.creds = creds
		c.valid = true
		c.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		return tableau.Credentials{}, err
	}
	return v.(tableau.Credentials), nil
}

// Start launches the background goroutine that re-signs-in every
// interval, independent of any reactive refresh.
func (c *CredentialCache) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if _, err := c.refresh(ctx); err != nil {
					c.logger.Warn("scheduled re-authentication failed", zap.Error(err))
				}
				cancel()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop terminates the background refresh goroutine.
func (c *CredentialCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
