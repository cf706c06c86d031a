package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tokendrop/distributor/internal/cache"
	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/chain/stream"
	"github.com/tokendrop/distributor/internal/distributor"
	"github.com/tokendrop/distributor/internal/events"
	"github.com/tokendrop/distributor/internal/metrics"
	"github.com/tokendrop/distributor/internal/shard"
)

type fakeAccountStore struct {
	records []chain.ClaimRecord
}

func (f fakeAccountStore) ListClaimRecords(ctx context.Context) ([]chain.ClaimRecord, error) {
	return f.records, nil
}

// testFixture builds a one-shard, one-claimant deployment: a shard
// artifact loaded into a proof cache, a matching Distributor created in
// the program, and (optionally) a claim record seeded into the claim
// cache.
type testFixture struct {
	server    *Server
	mint      chain.Address
	claimant  chain.Address
	unlocked  uint64
	locked    uint64
	startTs   int64
	endTs     int64
	program   *distributor.Program
	claimRecs []chain.ClaimRecord
}

func newTestFixture(t *testing.T, now int64, seedClaim bool) *testFixture {
	t.Helper()

	dir := t.TempDir()
	mint := chain.Address{0x10}
	claimant := chain.Address{0x01}
	unlocked, locked := uint64(1_000), uint64(9_000)

	rows := []shard.Row{{Claimant: claimant, Unlocked: unlocked, Locked: locked}}
	artifact, err := shard.BuildArtifact(0, rows, shard.Metadata{Mint: mint})
	require.NoError(t, err)

	f, err := os.Create(filepath.Join(dir, "shard-00000.json"))
	require.NoError(t, err)
	require.NoError(t, artifact.WriteJSON(f))
	f.Close()

	proofCache, err := cache.Load(context.Background(), dir, nil)
	require.NoError(t, err)

	clock := chain.FixedClock(0)
	vault := chain.Address{0x20}
	admin := chain.Address{0x30}
	clawbackReceiver := chain.Address{0x40}
	startTs, endTs := int64(100), int64(200)

	prog := distributor.NewProgram(&clock, chain.AlwaysValidSigner{}, nil)
	prog.RegisterVault(vault, chain.NewMemoryVault(unlocked+locked))
	_, err = prog.CreateDistributor(distributor.CreateDistributorParams{
		Version:               0,
		Root:                  artifact.MerkleRoot,
		Mint:                  mint,
		Vault:                 vault,
		Admin:                 admin,
		ClawbackReceiver:      clawbackReceiver,
		ClawbackReceiverOwner: admin,
		MaxTotalClaim:         unlocked + locked,
		MaxNumNodes:           1,
		StartTs:               startTs,
		EndTs:                 endTs,
		ClawbackStartTs:       endTs + distributor.MinClawbackDelay,
		Closable:              true,
	})
	require.NoError(t, err)
	clock = chain.FixedClock(now)

	var seeded []chain.ClaimRecord
	if seedClaim {
		distAddr := chain.DeriveDistributorAddress(mint, 0)
		seeded = []chain.ClaimRecord{{
			Distributor:           distAddr,
			Claimant:               claimant,
			LockedAmount:           locked,
			LockedAmountWithdrawn:  4_500,
			UnlockedAmount:         unlocked,
			UnlockedAmountClaimed:  unlocked,
			Closable:               true,
			Admin:                  admin,
		}}
	}

	claimCache := cache.NewClaimCache(fakeAccountStore{records: seeded}, stream.NewMockClient(), nil)
	require.NoError(t, claimCache.Bootstrap(context.Background()))

	bus := events.NewEventBus()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	srv := NewServer(prog, proofCache, claimCache, bus, m, time.Second)

	return &testFixture{
		server: srv, mint: mint, claimant: claimant,
		unlocked: unlocked, locked: locked, startTs: startTs, endTs: endTs,
		program: prog, claimRecs: seeded,
	}
}

func doGet(t *testing.T, r *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleListDistributors(t *testing.T) {
	fx := newTestFixture(t, 250, false)
	rec := doGet(t, fx.server.Router(), "/distributors")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []distributorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, fx.mint.String(), body[0].Mint)
	require.Equal(t, uint64(0), body[0].Version)
}

func TestHandleUser_ReturnsProofAndAmounts(t *testing.T) {
	fx := newTestFixture(t, 250, false)
	rec := doGet(t, fx.server.Router(), "/user/"+fx.claimant.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, fx.unlocked, body["unlocked_amount"])
	require.EqualValues(t, fx.locked, body["locked_amount"])
	require.NotEmpty(t, body["proof"])
}

func TestHandleUser_UnknownClaimantNotFound(t *testing.T) {
	fx := newTestFixture(t, 250, false)
	unknown := chain.Address{0xFF}
	rec := doGet(t, fx.server.Router(), "/user/"+unknown.String())
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleClaim_NoClaimYetNotFound(t *testing.T) {
	fx := newTestFixture(t, 250, false)
	rec := doGet(t, fx.server.Router(), "/claim/"+fx.claimant.String())
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleClaim_ReturnsSeededRecord(t *testing.T) {
	fx := newTestFixture(t, 250, true)
	rec := doGet(t, fx.server.Router(), "/claim/"+fx.claimant.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 4_500, body["locked_amount_withdrawn"])
}

func TestHandleEligibility_BeforeClaim_StartAmountIsVestedPortion(t *testing.T) {
	// now=150 is halfway through [100,200): 9000 locked vests to 4500.
	fx := newTestFixture(t, 150, false)
	rec := doGet(t, fx.server.Router(), "/eligibility/"+fx.claimant.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body eligibilityPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.HasClaimed)
	require.EqualValues(t, fx.unlocked+4_500, body.StartAmount)
	require.EqualValues(t, fx.unlocked+fx.locked, body.EndAmount)
	require.Equal(t, fx.startTs, body.StartTs)
	require.Equal(t, fx.endTs, body.EndTs)
}

func TestHandleEligibility_AfterClaim_ReflectsRemainingVesting(t *testing.T) {
	fx := newTestFixture(t, 150, true)
	rec := doGet(t, fx.server.Router(), "/eligibility/"+fx.claimant.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body eligibilityPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.HasClaimed)
	require.EqualValues(t, fx.unlocked+4_500, body.ClaimedAmount)
}

func TestHandleListClaimsForDistributor_WithMintQueryParam(t *testing.T) {
	fx := newTestFixture(t, 250, false)
	rec := doGet(t, fx.server.Router(), fmt.Sprintf("/distributors/0/claims?mint=%s", fx.mint.String()))
	require.Equal(t, http.StatusOK, rec.Code)
}
