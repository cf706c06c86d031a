package distributor

import (
	"fmt"
	"sync"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/events"
	"github.com/tokendrop/distributor/internal/merkle"
)

// distributorKey identifies one distributor shard by its (mint, version)
// pair.
type distributorKey struct {
	Mint    chain.Address
	Version uint64
}

// claimKey identifies one claimant's record within one distributor.
type claimKey struct {
	distributorKey
	Claimant chain.Address
}

// Program is the in-process implementation of the on-chain distributor
// state machine (C4). It holds every Distributor and ClaimRecord the way
// a validator's account store would, behind the narrow chain interfaces,
// so the business logic in this package can run — and be tested — without
// a real runtime underneath it.
//
// Program is safe for concurrent use.
type Program struct {
	mu sync.Mutex

	clock  chain.Clock
	signer chain.Signer
	events events.EventEmitter

	distributors map[distributorKey]*Distributor
	claims       map[claimKey]*ClaimRecord
	vaults       map[chain.Address]chain.Vault // vault address -> backing vault

	minClawbackDelay   int64
	maxClawbackHorizon int64
}

// NewProgram constructs a Program. signer and eventEmitter may be nil:
// a nil signer rejects every create_distributor call with
// ErrInvalidSignature, so callers that don't need signature verification
// should pass chain.AlwaysValidSigner{} instead. A
// nil eventEmitter silently drops every emission. The clawback delay and
// horizon default to MinClawbackDelay/MaxClawbackHorizon; call
// SetClawbackLimits to override them from configuration.
func NewProgram(clock chain.Clock, signer chain.Signer, emitter events.EventEmitter) *Program {
	return &Program{
		clock:              clock,
		signer:             signer,
		events:             emitter,
		distributors:       make(map[distributorKey]*Distributor),
		claims:             make(map[claimKey]*ClaimRecord),
		vaults:             make(map[chain.Address]chain.Vault),
		minClawbackDelay:   MinClawbackDelay,
		maxClawbackHorizon: MaxClawbackHorizon,
	}
}

// SetClawbackLimits overrides the minimum clawback delay and maximum
// clawback horizon create_distributor enforces. Zero values are ignored,
// so a partially-populated configuration leaves the corresponding default
// in place.
func (p *Program) SetClawbackLimits(minDelay, maxHorizon int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if minDelay > 0 {
		p.minClawbackDelay = minDelay
	}
	if maxHorizon > 0 {
		p.maxClawbackHorizon = maxHorizon
	}
}

// RegisterVault associates a vault address with its backing chain.Vault.
// create_distributor requires the vault to already be registered.
func (p *Program) RegisterVault(addr chain.Address, v chain.Vault) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vaults[addr] = v
}

func (p *Program) emit(eventType string, d *Distributor, data map[string]interface{}) {
	p.emitSubject(eventType, d, "", data)
}

func (p *Program) emitSubject(eventType string, d *Distributor, subject string, data map[string]interface{}) {
	if p.events == nil {
		return
	}
	source := fmt.Sprintf("distributor/%s/%d", d.Mint.String(), d.Version)
	p.events.Emit(eventType, source, subject, data)
}

// CreateDistributorParams carries create_distributor's arguments.
// Signature must verify over chain.CreationMessage(Version, Root, Mint)
// under Admin's key.
type CreateDistributorParams struct {
	Version          uint64
	Root             [32]byte
	Mint             chain.Address
	Vault            chain.Address
	Admin            chain.Address
	ClawbackReceiver chain.Address
	// ClawbackReceiverOwner is the token account's owner field for
	// ClawbackReceiver. It must equal Admin: the caller creating the
	// distributor must own the account it names to receive a future
	// clawback, the same way a real token program would reject an
	// initializer pointing clawback proceeds at an account it doesn't
	// control.
	ClawbackReceiverOwner chain.Address
	MaxTotalClaim         uint64
	MaxNumNodes           uint64
	StartTs               int64
	EndTs                 int64
	ClawbackStartTs       int64
	EnableTs              int64
	Closable              bool
	Signature             []byte
}

// CreateDistributor initializes a new distributor shard. It is the only
// operation that does not require an existing Distributor record.
func (p *Program) CreateDistributor(params CreateDistributorParams) (*Distributor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := distributorKey{Mint: params.Mint, Version: params.Version}
	if _, exists := p.distributors[key]; exists {
		return nil, ErrInvalidVersion
	}

	if _, ok := p.vaults[params.Vault]; !ok {
		return nil, fmt.Errorf("distributor: vault %s is not registered", params.Vault.String())
	}

	if params.ClawbackReceiverOwner != params.Admin {
		return nil, ErrOwnerMismatch
	}

	now := p.clock.Now()
	if params.StartTs >= params.EndTs {
		return nil, ErrStartTimestampAfterEnd
	}
	if params.StartTs <= now || params.EndTs <= now {
		return nil, ErrTimestampsNotInFuture
	}
	if params.ClawbackStartTs < params.EndTs+p.minClawbackDelay {
		return nil, ErrInsufficientClawbackDelay
	}
	if params.ClawbackStartTs-now > p.maxClawbackHorizon {
		return nil, ErrStartTooFarInFuture
	}

	msg := chain.CreationMessage(params.Version, params.Root, params.Mint)
	if p.signer == nil || !p.signer.Verify(params.Admin, msg, params.Signature) {
		return nil, ErrInvalidSignature
	}

	d := &Distributor{
		Version:          params.Version,
		Root:             params.Root,
		Mint:             params.Mint,
		Vault:            params.Vault,
		MaxTotalClaim:    params.MaxTotalClaim,
		MaxNumNodes:      params.MaxNumNodes,
		StartTs:          params.StartTs,
		EndTs:            params.EndTs,
		ClawbackStartTs:  params.ClawbackStartTs,
		ClawbackReceiver: params.ClawbackReceiver,
		Admin:            params.Admin,
		EnableTs:         params.EnableTs,
		Closable:         params.Closable,
	}
	p.distributors[key] = d
	p.emit(events.TypeDistributorCreated, d, map[string]interface{}{
		"max_total_claim": d.MaxTotalClaim,
		"max_num_nodes":   d.MaxNumNodes,
	})
	return d, nil
}

func (p *Program) lookup(mint chain.Address, version uint64) (*Distributor, error) {
	d, ok := p.distributors[distributorKey{Mint: mint, Version: version}]
	if !ok {
		return nil, ErrInvalidVersion
	}
	return d, nil
}

// NewClaim verifies a claimant's Merkle proof against the distributor's
// root, opens their ClaimRecord, and immediately pays out the leaf's
// unlocked amount plus the part of its locked amount vested so far.
func (p *Program) NewClaim(mint chain.Address, version uint64, leaf merkle.Leaf, proof merkle.Proof) (*ClaimRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return nil, err
	}

	if d.ClawedBack {
		return nil, ErrClawbackAlreadyClaimed
	}
	now := p.clock.Now()
	if now < d.EnableTs {
		return nil, ErrClaimingIsNotStarted
	}
	if now > d.ClawbackStartTs {
		return nil, ErrClaimExpired
	}

	ckey := claimKey{distributorKey: distributorKey{Mint: mint, Version: version}, Claimant: leaf.Claimant}
	if _, exists := p.claims[ckey]; exists {
		return nil, ErrClaimAlreadyExists
	}

	if d.NodesClaimed >= d.MaxNumNodes {
		return nil, ErrMaxNodesExceeded
	}

	if !merkle.Verify(leaf, proof, merkle.Hash(d.Root)) {
		return nil, ErrInvalidProof
	}

	vested, err := vestedAmount(leaf.Locked, d.StartTs, d.EndTs, now)
	if err != nil {
		return nil, err
	}
	payout, err := safeAdd(leaf.Unlocked, vested)
	if err != nil {
		return nil, err
	}
	newTotalClaimed, err := safeAdd(d.TotalClaimed, payout)
	if err != nil {
		return nil, err
	}
	if newTotalClaimed > d.MaxTotalClaim {
		return nil, ErrExceededMaxClaim
	}

	if payout > 0 {
		v, ok := p.vaults[d.Vault]
		if !ok {
			return nil, fmt.Errorf("distributor: vault %s is not registered", d.Vault.String())
		}
		if err := v.Transfer(leaf.Claimant, payout); err != nil {
			return nil, fmt.Errorf("distributor: vault transfer failed: %w", err)
		}
	}

	cr := &ClaimRecord{
		Claimant:              leaf.Claimant,
		LockedAmount:          leaf.Locked,
		LockedAmountWithdrawn: vested,
		UnlockedAmount:        leaf.Unlocked,
		UnlockedAmountClaimed: leaf.Unlocked,
		Closable:              d.Closable,
		Admin:                 d.Admin,
	}
	p.claims[ckey] = cr

	d.TotalClaimed = newTotalClaimed
	d.NodesClaimed++

	p.emitSubject(events.TypeNewClaim, d, leaf.Claimant.String(), events.NewClaimData(leaf.Claimant, leaf.Unlocked, leaf.Locked))
	return cr, nil
}

// ClaimLocked withdraws whatever portion of a claimant's locked amount has
// vested since their last withdrawal.
func (p *Program) ClaimLocked(mint chain.Address, version uint64, claimant chain.Address) (*ClaimRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return nil, err
	}

	ckey := claimKey{distributorKey: distributorKey{Mint: mint, Version: version}, Claimant: claimant}
	cr, ok := p.claims[ckey]
	if !ok {
		return nil, ErrClaimNotFound
	}

	if d.ClawedBack {
		return nil, ErrClawbackAlreadyClaimed
	}
	now := p.clock.Now()
	if now > d.ClawbackStartTs {
		return nil, ErrClaimExpired
	}

	vested, err := vestedAmount(cr.LockedAmount, d.StartTs, d.EndTs, now)
	if err != nil {
		return nil, err
	}
	if vested <= cr.LockedAmountWithdrawn {
		return nil, ErrInsufficientUnlockedTokens
	}
	claimable, err := safeSub(vested, cr.LockedAmountWithdrawn)
	if err != nil {
		return nil, err
	}

	v, ok := p.vaults[d.Vault]
	if !ok {
		return nil, fmt.Errorf("distributor: vault %s is not registered", d.Vault.String())
	}
	if err := v.Transfer(claimant, claimable); err != nil {
		return nil, fmt.Errorf("distributor: vault transfer failed: %w", err)
	}

	newTotalClaimed, err := safeAdd(d.TotalClaimed, claimable)
	if err != nil {
		return nil, err
	}
	cr.LockedAmountWithdrawn += claimable
	d.TotalClaimed = newTotalClaimed

	p.emitSubject(events.TypeClaimed, d, claimant.String(), events.ClaimedData(claimant, claimable))
	return cr, nil
}

// Clawback sweeps the vault's remaining balance to the clawback receiver.
// It may only run once, and only after clawback_start_ts. Unlike the other
// mutations, any signer may invoke it — it exists to relieve the admin of
// needing to be online once vesting has expired.
func (p *Program) Clawback(mint chain.Address, version uint64) (*Distributor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return nil, err
	}
	if d.ClawedBack {
		return nil, ErrClawbackAlreadyClaimed
	}
	now := p.clock.Now()
	if now < d.ClawbackStartTs {
		return nil, ErrClawbackBeforeStart
	}

	v, ok := p.vaults[d.Vault]
	if !ok {
		return nil, fmt.Errorf("distributor: vault %s is not registered", d.Vault.String())
	}
	balance, err := v.Balance()
	if err != nil {
		return nil, fmt.Errorf("distributor: vault balance read failed: %w", err)
	}
	if balance > 0 {
		if err := v.Transfer(d.ClawbackReceiver, balance); err != nil {
			return nil, fmt.Errorf("distributor: vault transfer failed: %w", err)
		}
	}

	forgone, err := safeAdd(d.TotalForgone, balance)
	if err != nil {
		return nil, err
	}
	d.TotalForgone = forgone
	d.ClawedBack = true

	p.emit(events.TypeClawback, d, events.ClawbackData(d.ClawbackReceiver, balance, now))
	return d, nil
}

// SetClawbackReceiver updates the address clawed-back funds are sent to.
func (p *Program) SetClawbackReceiver(mint chain.Address, version uint64, caller, newReceiver chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return err
	}
	if caller != d.Admin {
		return ErrUnauthorized
	}
	if newReceiver == d.ClawbackReceiver {
		return ErrSameClawbackReceiver
	}
	old := d.ClawbackReceiver
	d.ClawbackReceiver = newReceiver
	p.emit(events.TypeClawbackReceiverSet, d, events.ClawbackReceiverChangedData(old, newReceiver))
	return nil
}

// SetAdmin transfers administrative control of the distributor.
func (p *Program) SetAdmin(mint chain.Address, version uint64, caller, newAdmin chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return err
	}
	if caller != d.Admin {
		return ErrUnauthorized
	}
	if newAdmin == d.Admin {
		return ErrSameAdmin
	}
	old := d.Admin
	d.Admin = newAdmin
	p.emit(events.TypeAdminChanged, d, events.AdminChangedData(old, newAdmin))
	return nil
}

// SetEnableSlot updates the timestamp at which claiming opens. Despite the
// name, the value is always a Unix timestamp, never a slot number.
func (p *Program) SetEnableSlot(mint chain.Address, version uint64, caller chain.Address, newEnableTs int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return err
	}
	if caller != d.Admin {
		return ErrUnauthorized
	}
	old := d.EnableTs
	d.EnableTs = newEnableTs
	p.emit(events.TypeEnableSlotSet, d, events.EnableSlotChangedData(old, newEnableTs))
	return nil
}

// CloseDistributor reclaims a distributor's account once it has been
// clawed back and marked closable at creation time.
func (p *Program) CloseDistributor(mint chain.Address, version uint64, caller chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return err
	}
	if caller != d.Admin {
		return ErrUnauthorized
	}
	if !d.Closable || !d.ClawedBack {
		return ErrCannotCloseDistributor
	}
	key := distributorKey{Mint: mint, Version: version}
	p.emit(events.TypeDistributorClosed, d, nil)
	delete(p.distributors, key)
	return nil
}

// CloseClaimStatus reclaims a claimant's ClaimRecord once every locked and
// unlocked amount has been withdrawn.
func (p *Program) CloseClaimStatus(mint chain.Address, version uint64, claimant, caller chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.lookup(mint, version)
	if err != nil {
		return err
	}
	if caller != d.Admin {
		return ErrUnauthorized
	}
	ckey := claimKey{distributorKey: distributorKey{Mint: mint, Version: version}, Claimant: claimant}
	cr, ok := p.claims[ckey]
	if !ok {
		return ErrClaimNotFound
	}
	if !cr.Closable || cr.LockedAmountWithdrawn < cr.LockedAmount || cr.UnlockedAmountClaimed < cr.UnlockedAmount {
		return ErrCannotCloseClaimStatus
	}
	p.emitSubject(events.TypeClaimStatusClosed, d, claimant.String(), events.ClaimStatusClosedData(claimant))
	delete(p.claims, ckey)
	return nil
}

// Distributor returns a copy of the distributor record for (mint,
// version), for read-only query use by the HTTP surface (C7).
func (p *Program) Distributor(mint chain.Address, version uint64) (Distributor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.distributors[distributorKey{Mint: mint, Version: version}]
	if !ok {
		return Distributor{}, false
	}
	return *d, true
}

// ClaimRecordFor returns a copy of a claimant's record within a
// distributor, for read-only query use by the HTTP surface (C7).
func (p *Program) ClaimRecordFor(mint chain.Address, version uint64, claimant chain.Address) (ClaimRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cr, ok := p.claims[claimKey{distributorKey: distributorKey{Mint: mint, Version: version}, Claimant: claimant}]
	if !ok {
		return ClaimRecord{}, false
	}
	return *cr, true
}

// ListDistributors returns a copy of every distributor record currently
// open, for GET /distributors.
func (p *Program) ListDistributors() []Distributor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Distributor, 0, len(p.distributors))
	for _, d := range p.distributors {
		out = append(out, *d)
	}
	return out
}

// ListClaimsForDistributor returns a copy of every claim record open
// against one distributor, for GET /distributors/:version/claims.
func (p *Program) ListClaimsForDistributor(mint chain.Address, version uint64) []ClaimRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	dk := distributorKey{Mint: mint, Version: version}
	var out []ClaimRecord
	for k, cr := range p.claims {
		if k.distributorKey == dk {
			out = append(out, *cr)
		}
	}
	return out
}

// Now returns the program clock's current time, so read-only callers (the
// HTTP query layer's eligibility endpoint) can interpolate vesting without
// holding their own clock reference.
func (p *Program) Now() int64 {
	return p.clock.Now()
}
