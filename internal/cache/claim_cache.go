package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/chain/stream"
)

// claimKey is the composite index key: a claimant's record is scoped to
// one distributor (mirrors internal/distributor.claimKey).
type claimKey struct {
	Distributor chain.Address
	Claimant    chain.Address
}

// ClaimCache is a live, in-memory index of every claim-status account this
// process has observed, kept current by a streaming subscription. Unlike
// ProofCache, this index changes continuously: every observed account
// update stores a newer record for its key. Records are never removed, so
// a claim status closed by close_claim_status stays in the index.
type ClaimCache struct {
	store AccountStore
	sub   stream.AccountSubscriptionClient
	redis *RedisClaimStore

	records sync.Map // claimKey -> chain.ClaimRecord

	mu             sync.Mutex
	connected      bool
	lastUpdateTime time.Time

	logger *slog.Logger
}

// AccountStore is the bulk-query side the cache reconciles against at
// startup and after every reconnect; it is the same interface
// chain.AccountStore defines, restated here to avoid a cyclic import and
// to name it for what this package uses it for.
type AccountStore = chain.AccountStore

// NewClaimCache builds a cache backed by store for bulk reconciliation and
// sub for live updates. redis may be nil, in which case the cache holds
// state only in this process's memory.
func NewClaimCache(store AccountStore, sub stream.AccountSubscriptionClient, redis *RedisClaimStore) *ClaimCache {
	return &ClaimCache{
		store:  store,
		sub:    sub,
		redis:  redis,
		logger: slog.Default().With("component", "cache.claim_cache"),
	}
}

// Bootstrap performs the initial bulk load. Callers must call this once
// before Run.
func (c *ClaimCache) Bootstrap(ctx context.Context) error {
	records, err := c.store.ListClaimRecords(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		c.absorb(ctx, r)
	}
	c.logger.Info("claim cache bootstrapped", "records", len(records))
	return nil
}

func (c *ClaimCache) absorb(ctx context.Context, r chain.ClaimRecord) {
	key := claimKey{Distributor: r.Distributor, Claimant: r.Claimant}
	c.records.Store(key, r)
	c.mu.Lock()
	c.lastUpdateTime = time.Now()
	c.mu.Unlock()
	if c.redis != nil {
		if err := c.redis.Save(ctx, r); err != nil {
			c.logger.Warn("redis mirror write failed", "error", err, "claimant", r.Claimant.String())
		}
	}
}

// Lookup returns the cached claim record for (distributor, claimant), if
// this process has observed one.
func (c *ClaimCache) Lookup(distributor, claimant chain.Address) (chain.ClaimRecord, bool) {
	v, ok := c.records.Load(claimKey{Distributor: distributor, Claimant: claimant})
	if !ok {
		return chain.ClaimRecord{}, false
	}
	return v.(chain.ClaimRecord), true
}

// Connected reports whether the live subscription is currently established.
func (c *ClaimCache) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// StalenessSeconds reports how long it has been since the cache last
// absorbed an update, for C9's staleness gauge.
func (c *ClaimCache) StalenessSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUpdateTime.IsZero() {
		return 0
	}
	return time.Since(c.lastUpdateTime).Seconds()
}

// reconnectBackoff bounds how long Run waits between subscription attempts,
// doubling from an initial delay up to a 60s ceiling.
var reconnectBackoff = []time.Duration{
	1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	16 * time.Second, 32 * time.Second, 60 * time.Second,
}

// Run subscribes to account updates and applies them to the cache until
// ctx is canceled. On a stream error it reconciles against the bulk store
// (in case updates were missed while disconnected) and resubscribes with
// backoff. Run blocks; callers should invoke it in its own goroutine.
func (c *ClaimCache) Run(ctx context.Context, req *stream.SubscribeRequest) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		sub, err := c.sub.Subscribe(ctx, req)
		if err != nil {
			c.logger.Warn("subscribe failed, backing off", "error", err, "attempt", attempt)
			c.sleepBackoff(ctx, attempt)
			attempt++
			continue
		}

		c.setConnected(true)
		c.logger.Info("account subscription established")
		attempt = 0

		c.drain(ctx, sub)

		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("account subscription dropped, reconciling before resubscribe")
		if err := c.Bootstrap(ctx); err != nil {
			c.logger.Warn("post-disconnect reconciliation failed", "error", err)
		}
		c.sleepBackoff(ctx, attempt)
		attempt++
	}
}

func (c *ClaimCache) drain(ctx context.Context, sub stream.AccountSubscription_SubscribeClient) {
	for {
		update, err := sub.Recv()
		if err != nil {
			c.logger.Warn("account stream recv error", "error", err)
			return
		}
		if update.Kind != stream.UpdateKindClaimStatus || update.Claim == nil {
			continue
		}
		c.absorb(ctx, *update.Claim)
	}
}

func (c *ClaimCache) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *ClaimCache) sleepBackoff(ctx context.Context, attempt int) {
	idx := attempt
	if idx >= len(reconnectBackoff) {
		idx = len(reconnectBackoff) - 1
	}
	select {
	case <-time.After(reconnectBackoff[idx]):
	case <-ctx.Done():
	}
}
