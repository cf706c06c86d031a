package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tokendrop/distributor/internal/chain"
)

// RedisClient is a minimal interface any Redis library can satisfy. The
// claim cache doesn't import a concrete driver; cmd/api wires the real
// client (github.com/redis/go-redis/v9) and injects it here.
type RedisClient interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// RedisClaimStore mirrors the claim-status cache into Redis so that API
// replicas that didn't observe a given account update directly (because
// only one replica holds the live gRPC subscription, or because each
// replica subscribes independently but started at different times) still
// see a consistent view.
type RedisClaimStore struct {
	client    RedisClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClaimStore creates a Redis-backed mirror. keyPrefix namespaces
// every key this store writes; ttl bounds how long a claim record survives
// without being refreshed by a new account update.
func NewRedisClaimStore(client RedisClient, keyPrefix string, ttl time.Duration) *RedisClaimStore {
	if keyPrefix == "" {
		keyPrefix = "distributor:claims:"
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisClaimStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

type claimRecordJSON struct {
	Distributor           string `json:"distributor"`
	Claimant               string `json:"claimant"`
	LockedAmount           uint64 `json:"locked_amount"`
	LockedAmountWithdrawn  uint64 `json:"locked_amount_withdrawn"`
	UnlockedAmount         uint64 `json:"unlocked_amount"`
	UnlockedAmountClaimed  uint64 `json:"unlocked_amount_claimed"`
	Closable               bool   `json:"closable"`
	Admin                  string `json:"admin"`
}

func toClaimJSON(r chain.ClaimRecord) (*claimRecordJSON, error) {
	return &claimRecordJSON{
		Distributor:           r.Distributor.String(),
		Claimant:              r.Claimant.String(),
		LockedAmount:          r.LockedAmount,
		LockedAmountWithdrawn: r.LockedAmountWithdrawn,
		UnlockedAmount:        r.UnlockedAmount,
		UnlockedAmountClaimed: r.UnlockedAmountClaimed,
		Closable:              r.Closable,
		Admin:                 r.Admin.String(),
	}, nil
}

func fromClaimJSON(j *claimRecordJSON) (chain.ClaimRecord, error) {
	distributor, err := chain.ParseAddress(j.Distributor)
	if err != nil {
		return chain.ClaimRecord{}, err
	}
	claimant, err := chain.ParseAddress(j.Claimant)
	if err != nil {
		return chain.ClaimRecord{}, err
	}
	admin, err := chain.ParseAddress(j.Admin)
	if err != nil {
		return chain.ClaimRecord{}, err
	}
	return chain.ClaimRecord{
		Distributor:           distributor,
		Claimant:              claimant,
		LockedAmount:          j.LockedAmount,
		LockedAmountWithdrawn: j.LockedAmountWithdrawn,
		UnlockedAmount:        j.UnlockedAmount,
		UnlockedAmountClaimed: j.UnlockedAmountClaimed,
		Closable:              j.Closable,
		Admin:                 admin,
	}, nil
}

func (s *RedisClaimStore) key(distributor, claimant chain.Address) string {
	return s.keyPrefix + distributor.String() + ":" + claimant.String()
}

func (s *RedisClaimStore) indexKey(claimant chain.Address) string {
	return s.keyPrefix + "by_claimant:" + claimant.String()
}

// Save persists a claim record and indexes it by claimant, so a later
// DistributorsClaimedBy call can find every distributor a wallet has claimed
// from without scanning.
func (s *RedisClaimStore) Save(ctx context.Context, r chain.ClaimRecord) error {
	j, err := toClaimJSON(r)
	if err != nil {
		return err
	}
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("cache: marshaling claim record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(r.Distributor, r.Claimant), data, s.ttl); err != nil {
		return fmt.Errorf("cache: redis SET claim record: %w", err)
	}
	if err := s.client.SAdd(ctx, s.indexKey(r.Claimant), r.Distributor.String()); err != nil {
		return fmt.Errorf("cache: redis SADD claimant index: %w", err)
	}
	return nil
}

// Load retrieves one claim record by (distributor, claimant).
func (s *RedisClaimStore) Load(ctx context.Context, distributor, claimant chain.Address) (chain.ClaimRecord, error) {
	data, err := s.client.Get(ctx, s.key(distributor, claimant))
	if err != nil {
		return chain.ClaimRecord{}, fmt.Errorf("cache: redis GET claim record: %w", err)
	}
	var j claimRecordJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return chain.ClaimRecord{}, fmt.Errorf("cache: unmarshaling claim record: %w", err)
	}
	return fromClaimJSON(&j)
}

// Delete removes one claim record. It leaves the distributor in the
// claimant's index set, and ClaimCache never calls it.
func (s *RedisClaimStore) Delete(ctx context.Context, distributor, claimant chain.Address) error {
	return s.client.Del(ctx, s.key(distributor, claimant))
}

// DistributorsClaimedBy lists every distributor a claimant has a record in,
// from the claimant index.
func (s *RedisClaimStore) DistributorsClaimedBy(ctx context.Context, claimant chain.Address) ([]chain.Address, error) {
	members, err := s.client.SMembers(ctx, s.indexKey(claimant))
	if err != nil {
		return nil, fmt.Errorf("cache: redis SMEMBERS claimant index: %w", err)
	}
	addrs := make([]chain.Address, 0, len(members))
	for _, m := range members {
		a, err := chain.ParseAddress(m)
		if err != nil {
			continue
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}
