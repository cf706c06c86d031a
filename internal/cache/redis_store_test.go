package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokendrop/distributor/internal/chain"
)

// memRedis is an in-process RedisClient fake for tests — enough of the
// Redis command surface to exercise RedisClaimStore's read/write paths.
type memRedis struct {
	mu   sync.Mutex
	kv   map[string][]byte
	sets map[string]map[string]bool
}

func newMemRedis() *memRedis {
	return &memRedis{kv: make(map[string][]byte), sets: make(map[string]map[string]bool)}
}

func (m *memRedis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memRedis) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, assertNotFound
	}
	return v, nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
	}
	return nil
}

func (m *memRedis) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]bool)
	}
	for _, mem := range members {
		m.sets[key][mem] = true
	}
	return nil
}

func (m *memRedis) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for mem := range m.sets[key] {
		out = append(out, mem)
	}
	return out, nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var assertNotFound error = notFoundErr{}

func TestRedisClaimStore_SaveAndLoadRoundTrips(t *testing.T) {
	client := newMemRedis()
	store := NewRedisClaimStore(client, "test:", time.Hour)

	distributor := chain.Address{1}
	claimant := chain.Address{2}
	record := chain.ClaimRecord{
		Distributor: distributor, Claimant: claimant,
		UnlockedAmount: 1000, UnlockedAmountClaimed: 1000,
		LockedAmount: 9000, LockedAmountWithdrawn: 4500,
		Closable: true, Admin: chain.Address{9},
	}

	require.NoError(t, store.Save(context.Background(), record))

	loaded, err := store.Load(context.Background(), distributor, claimant)
	require.NoError(t, err)
	assert.Equal(t, record, loaded)

	dists, err := store.DistributorsClaimedBy(context.Background(), claimant)
	require.NoError(t, err)
	assert.Equal(t, []chain.Address{distributor}, dists)
}

func TestRedisClaimStore_DeleteRemovesRecord(t *testing.T) {
	client := newMemRedis()
	store := NewRedisClaimStore(client, "test:", time.Hour)

	distributor := chain.Address{1}
	claimant := chain.Address{2}
	require.NoError(t, store.Save(context.Background(), chain.ClaimRecord{Distributor: distributor, Claimant: claimant}))
	require.NoError(t, store.Delete(context.Background(), distributor, claimant))

	_, err := store.Load(context.Background(), distributor, claimant)
	assert.Error(t, err)
}
