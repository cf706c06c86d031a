package distributor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/merkle"
)

func addr(b byte) chain.Address {
	var a chain.Address
	a[0] = b
	return a
}

// newTestDistributor builds a single-leaf shard for claimant U1 and a
// Program with a distributor already created against it, funded for
// exactly the leaf's total. Returns the program, the tree (for proofs),
// the mint/vault/admin addresses, and a settable clock.
func newTestDistributor(t *testing.T, clock *chain.FixedClock, unlocked, locked uint64, startTs, endTs, clawbackTs, enableTs int64) (*Program, *merkle.Tree, chain.Address) {
	t.Helper()

	u1 := addr(1)
	mint := addr(0x10)
	vault := addr(0x20)
	admin := addr(0x30)
	clawbackReceiver := addr(0x40)

	leaves := []merkle.Leaf{{Claimant: u1, Unlocked: unlocked, Locked: locked}}
	tree := merkle.Build(leaves)

	prog := NewProgram(clock, chain.AlwaysValidSigner{}, nil)
	prog.RegisterVault(vault, chain.NewMemoryVault(unlocked+locked))

	_, err := prog.CreateDistributor(CreateDistributorParams{
		Version:               1,
		Root:                  [32]byte(tree.Root()),
		Mint:                  mint,
		Vault:                 vault,
		Admin:                 admin,
		ClawbackReceiver:      clawbackReceiver,
		ClawbackReceiverOwner: admin,
		MaxTotalClaim:         unlocked + locked,
		MaxNumNodes:           1,
		StartTs:               startTs,
		EndTs:                 endTs,
		ClawbackStartTs:       clawbackTs,
		EnableTs:              enableTs,
		Closable:              true,
	})
	require.NoError(t, err)

	return prog, tree, mint
}

// Scenario 1: happy path, fully vested.
func TestScenario_HappyPathFullyVested(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, tree, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 0)

	clock = chain.FixedClock(250)
	leaf := tree.Leaves[0]
	cr, err := prog.NewClaim(mint, 1, leaf, tree.Proof(0))
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), cr.UnlockedAmountClaimed)
	require.Equal(t, uint64(9_000), cr.LockedAmountWithdrawn)

	d, ok := prog.Distributor(mint, 1)
	require.True(t, ok)
	require.Equal(t, uint64(10_000), d.TotalClaimed)
}

// Scenario 2: mid-vest claim then top-up.
func TestScenario_MidVestClaimThenTopUp(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, tree, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 0)

	clock = chain.FixedClock(150)
	leaf := tree.Leaves[0]
	cr, err := prog.NewClaim(mint, 1, leaf, tree.Proof(0))
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), cr.UnlockedAmountClaimed)
	require.Equal(t, uint64(4_500), cr.LockedAmountWithdrawn) // 9000*50/100

	clock = chain.FixedClock(180)
	cr, err = prog.ClaimLocked(mint, 1, leaf.Claimant)
	require.NoError(t, err)
	require.Equal(t, uint64(7_200), cr.LockedAmountWithdrawn) // 9000*80/100

	clock = chain.FixedClock(200)
	cr, err = prog.ClaimLocked(mint, 1, leaf.Claimant)
	require.NoError(t, err)
	require.Equal(t, uint64(9_000), cr.LockedAmountWithdrawn)
}

// Scenario 3: invalid proof rejected.
func TestScenario_InvalidProofRejected(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, tree, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 0)
	clock = chain.FixedClock(250)

	tampered := tree.Leaves[0]
	tampered.Unlocked = 1_001

	_, err := prog.NewClaim(mint, 1, tampered, tree.Proof(0))
	require.ErrorIs(t, err, ErrInvalidProof)

	d, ok := prog.Distributor(mint, 1)
	require.True(t, ok)
	require.Equal(t, uint64(0), d.TotalClaimed)
}

// Scenario 4: double claim rejected.
func TestScenario_DoubleClaimRejected(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, tree, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 0)
	clock = chain.FixedClock(250)

	leaf := tree.Leaves[0]
	_, err := prog.NewClaim(mint, 1, leaf, tree.Proof(0))
	require.NoError(t, err)

	_, err = prog.NewClaim(mint, 1, leaf, tree.Proof(0))
	require.ErrorIs(t, err, ErrClaimAlreadyExists)
}

// Scenario 5: clawback timing.
func TestScenario_ClawbackTiming(t *testing.T) {
	clock := chain.FixedClock(0)
	start, end := int64(100), int64(200)
	clawbackTs := end + MinClawbackDelay
	prog, tree, mint := newTestDistributor(t, &clock, 1_000, 9_000, start, end, clawbackTs, 0)

	clock = chain.FixedClock(clawbackTs - 1)
	_, err := prog.Clawback(mint, 1)
	require.ErrorIs(t, err, ErrClawbackBeforeStart)

	clock = chain.FixedClock(clawbackTs)
	_, err = prog.Clawback(mint, 1)
	require.NoError(t, err)

	d, ok := prog.Distributor(mint, 1)
	require.True(t, ok)
	require.True(t, d.ClawedBack)

	leaf := tree.Leaves[0]
	_, err = prog.NewClaim(mint, 1, leaf, tree.Proof(0))
	require.ErrorIs(t, err, ErrClawbackAlreadyClaimed)

	_, err = prog.Clawback(mint, 1)
	require.ErrorIs(t, err, ErrClawbackAlreadyClaimed)
}

// Scenario 6: shard isolation — two distributors, each with its own
// claimant, claimable independently with no shared state.
func TestScenario_ShardIsolation(t *testing.T) {
	clockA := chain.FixedClock(50)
	clockB := chain.FixedClock(50)

	u1 := addr(1)
	u2 := addr(2)
	mintA := addr(0xA0)
	mintB := addr(0xB0)
	vaultA := addr(0xA1)
	vaultB := addr(0xB1)

	leavesA := []merkle.Leaf{{Claimant: u1, Unlocked: 1_000, Locked: 0}}
	leavesB := []merkle.Leaf{{Claimant: u2, Unlocked: 2_000, Locked: 0}}
	treeA := merkle.Build(leavesA)
	treeB := merkle.Build(leavesB)

	progA := NewProgram(&clockA, chain.AlwaysValidSigner{}, nil)
	progA.RegisterVault(vaultA, chain.NewMemoryVault(1_000))
	_, err := progA.CreateDistributor(CreateDistributorParams{
		Version: 1, Root: [32]byte(treeA.Root()), Mint: mintA, Vault: vaultA,
		Admin: addr(0x30), ClawbackReceiver: addr(0x40), ClawbackReceiverOwner: addr(0x30),
		MaxTotalClaim: 1_000, MaxNumNodes: 1,
		StartTs: 100, EndTs: 200, ClawbackStartTs: 200 + MinClawbackDelay,
		Closable: true,
	})
	require.NoError(t, err)

	progB := NewProgram(&clockB, chain.AlwaysValidSigner{}, nil)
	progB.RegisterVault(vaultB, chain.NewMemoryVault(2_000))
	_, err = progB.CreateDistributor(CreateDistributorParams{
		Version: 1, Root: [32]byte(treeB.Root()), Mint: mintB, Vault: vaultB,
		Admin: addr(0x31), ClawbackReceiver: addr(0x41), ClawbackReceiverOwner: addr(0x31),
		MaxTotalClaim: 2_000, MaxNumNodes: 1,
		StartTs: 100, EndTs: 200, ClawbackStartTs: 200 + MinClawbackDelay,
		Closable: true,
	})
	require.NoError(t, err)

	clockA = chain.FixedClock(250)
	clockB = chain.FixedClock(250)
	_, errA := progA.NewClaim(mintA, 1, treeA.Leaves[0], treeA.Proof(0))
	_, errB := progB.NewClaim(mintB, 1, treeB.Leaves[0], treeB.Proof(0))
	require.NoError(t, errA)
	require.NoError(t, errB)

	dA, _ := progA.Distributor(mintA, 1)
	dB, _ := progB.Distributor(mintB, 1)
	require.Equal(t, uint64(1_000), dA.TotalClaimed)
	require.Equal(t, uint64(2_000), dB.TotalClaimed)
}

func TestCreateDistributor_RejectsClawbackReceiverOwnerMismatch(t *testing.T) {
	clock := chain.FixedClock(0)
	prog := NewProgram(&clock, chain.AlwaysValidSigner{}, nil)
	vault := addr(0x20)
	prog.RegisterVault(vault, chain.NewMemoryVault(0))

	_, err := prog.CreateDistributor(CreateDistributorParams{
		Version: 1, Mint: addr(0x10), Vault: vault, Admin: addr(0x30),
		ClawbackReceiver: addr(0x40), ClawbackReceiverOwner: addr(0x99),
		StartTs: 100, EndTs: 200, ClawbackStartTs: 200 + MinClawbackDelay,
	})
	require.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestCreateDistributor_RejectsBadTimestampOrdering(t *testing.T) {
	clock := chain.FixedClock(0)
	prog := NewProgram(&clock, chain.AlwaysValidSigner{}, nil)
	vault := addr(0x20)
	prog.RegisterVault(vault, chain.NewMemoryVault(0))

	_, err := prog.CreateDistributor(CreateDistributorParams{
		Version: 1, Mint: addr(0x10), Vault: vault, Admin: addr(0x30),
		ClawbackReceiver: addr(0x40), ClawbackReceiverOwner: addr(0x30),
		StartTs: 200, EndTs: 100, ClawbackStartTs: 300 + MinClawbackDelay,
	})
	require.ErrorIs(t, err, ErrStartTimestampAfterEnd)
}

func TestCreateDistributor_RejectsInsufficientClawbackDelay(t *testing.T) {
	clock := chain.FixedClock(0)
	prog := NewProgram(&clock, chain.AlwaysValidSigner{}, nil)
	vault := addr(0x20)
	prog.RegisterVault(vault, chain.NewMemoryVault(0))

	_, err := prog.CreateDistributor(CreateDistributorParams{
		Version: 1, Mint: addr(0x10), Vault: vault, Admin: addr(0x30),
		ClawbackReceiver: addr(0x40), ClawbackReceiverOwner: addr(0x30),
		StartTs: 100, EndTs: 200, ClawbackStartTs: 200,
	})
	require.ErrorIs(t, err, ErrInsufficientClawbackDelay)
}

func TestSetClawbackLimits_OverridesDefaultDelayAndHorizon(t *testing.T) {
	clock := chain.FixedClock(0)
	prog := NewProgram(&clock, chain.AlwaysValidSigner{}, nil)
	vault := addr(0x20)
	prog.RegisterVault(vault, chain.NewMemoryVault(0))

	// A one-hour delay would fail against the package default (one day),
	// so this only succeeds if SetClawbackLimits actually took effect.
	prog.SetClawbackLimits(3_600, 0)

	_, err := prog.CreateDistributor(CreateDistributorParams{
		Version: 1, Mint: addr(0x10), Vault: vault, Admin: addr(0x30),
		ClawbackReceiver: addr(0x40), ClawbackReceiverOwner: addr(0x30),
		StartTs: 100, EndTs: 200, ClawbackStartTs: 200 + 3_600,
	})
	require.NoError(t, err)
}

func TestSetClawbackLimits_ZeroValuesLeaveDefaultsInPlace(t *testing.T) {
	clock := chain.FixedClock(0)
	prog := NewProgram(&clock, chain.AlwaysValidSigner{}, nil)
	vault := addr(0x20)
	prog.RegisterVault(vault, chain.NewMemoryVault(0))

	prog.SetClawbackLimits(0, 0)

	_, err := prog.CreateDistributor(CreateDistributorParams{
		Version: 1, Mint: addr(0x10), Vault: vault, Admin: addr(0x30),
		ClawbackReceiver: addr(0x40), ClawbackReceiverOwner: addr(0x30),
		StartTs: 100, EndTs: 200, ClawbackStartTs: 200,
	})
	require.ErrorIs(t, err, ErrInsufficientClawbackDelay)
}

func TestClaimingBeforeEnableTs_Rejected(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, tree, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 1_000)

	_, err := prog.NewClaim(mint, 1, tree.Leaves[0], tree.Proof(0))
	require.ErrorIs(t, err, ErrClaimingIsNotStarted)
}

func TestSetAdmin_RotatesAuthorityAtomically(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, _, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 0)

	admin := addr(0x30)
	newAdmin := addr(0x99)
	require.NoError(t, prog.SetAdmin(mint, 1, admin, newAdmin))

	require.ErrorIs(t, prog.SetAdmin(mint, 1, admin, addr(0x55)), ErrUnauthorized)
	require.NoError(t, prog.SetAdmin(mint, 1, newAdmin, admin))
}

func TestSetClawbackReceiver_RejectsNoOp(t *testing.T) {
	clock := chain.FixedClock(50)
	prog, _, mint := newTestDistributor(t, &clock, 1_000, 9_000, 100, 200, 200+MinClawbackDelay, 0)

	admin := addr(0x30)
	current := addr(0x40)
	err := prog.SetClawbackReceiver(mint, 1, admin, current)
	require.ErrorIs(t, err, ErrSameClawbackReceiver)
}

func TestCloseDistributor_RequiresClawedBackAndClosable(t *testing.T) {
	clock := chain.FixedClock(0)
	start, end := int64(100), int64(200)
	clawbackTs := end + MinClawbackDelay
	prog, _, mint := newTestDistributor(t, &clock, 1_000, 9_000, start, end, clawbackTs, 0)
	admin := addr(0x30)

	err := prog.CloseDistributor(mint, 1, admin)
	require.ErrorIs(t, err, ErrCannotCloseDistributor)

	clock = chain.FixedClock(clawbackTs)
	_, err = prog.Clawback(mint, 1)
	require.NoError(t, err)

	require.NoError(t, prog.CloseDistributor(mint, 1, admin))
	_, ok := prog.Distributor(mint, 1)
	require.False(t, ok)
}
