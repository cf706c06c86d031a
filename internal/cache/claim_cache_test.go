package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/chain/stream"
)

type fakeAccountStore struct {
	records []chain.ClaimRecord
}

func (f *fakeAccountStore) ListClaimRecords(ctx context.Context) ([]chain.ClaimRecord, error) {
	return f.records, nil
}

func TestBootstrap_IndexesExistingRecords(t *testing.T) {
	distributor := chain.Address{1}
	claimant := chain.Address{2}
	store := &fakeAccountStore{records: []chain.ClaimRecord{
		{Distributor: distributor, Claimant: claimant, UnlockedAmount: 1000, LockedAmount: 9000},
	}}
	mock := stream.NewMockClient()
	c := NewClaimCache(store, mock, nil)

	require.NoError(t, c.Bootstrap(context.Background()))

	r, ok := c.Lookup(distributor, claimant)
	require.True(t, ok)
	assert.EqualValues(t, 1000, r.UnlockedAmount)
}

func TestRun_AbsorbsLiveUpdates(t *testing.T) {
	distributor := chain.Address{1}
	claimant := chain.Address{3}
	store := &fakeAccountStore{}
	mock := stream.NewMockClient()
	c := NewClaimCache(store, mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, &stream.SubscribeRequest{ProgramID: "test"})

	// Give Run a moment to establish the mock subscription.
	require.Eventually(t, func() bool { return c.Connected() }, time.Second, 5*time.Millisecond)

	mock.Push(&stream.AccountUpdate{
		Kind: stream.UpdateKindClaimStatus,
		Claim: &chain.ClaimRecord{
			Distributor: distributor, Claimant: claimant, LockedAmountWithdrawn: 4500,
		},
	})

	require.Eventually(t, func() bool {
		r, ok := c.Lookup(distributor, claimant)
		return ok && r.LockedAmountWithdrawn == 4500
	}, time.Second, 5*time.Millisecond)
}

func TestRun_ReconnectsAfterStreamBreak(t *testing.T) {
	store := &fakeAccountStore{}
	mock := stream.NewMockClient()
	reconnectBackoffOriginal := reconnectBackoff
	reconnectBackoff = []time.Duration{5 * time.Millisecond}
	defer func() { reconnectBackoff = reconnectBackoffOriginal }()

	c := NewClaimCache(store, mock, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, &stream.SubscribeRequest{ProgramID: "test"})

	require.Eventually(t, func() bool { return c.Connected() }, time.Second, 5*time.Millisecond)
	mock.Break()
	require.Eventually(t, func() bool { return !c.Connected() }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.Connected() }, time.Second, 5*time.Millisecond)
}
