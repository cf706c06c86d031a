package chain

import (
	"fmt"
	"sync"
)

// Vault is the token account a distributor owns as its program-derived
// authority. The distributor state machine never moves tokens directly; it
// only asks the vault to transfer, so a real integration can back this with
// an actual on-chain token transfer instruction.
type Vault interface {
	// Balance returns the vault's current token balance.
	Balance() (uint64, error)
	// Transfer moves amount out of the vault to the given destination
	// address. It fails if the vault balance is insufficient.
	Transfer(to Address, amount uint64) error
}

// MemoryVault is an in-process Vault backing, used by tests and by any
// harness that exercises the state machine without a real token program.
type MemoryVault struct {
	mu      sync.Mutex
	balance uint64
	sent    map[Address]uint64
}

// NewMemoryVault creates a vault funded with the given initial balance.
func NewMemoryVault(initial uint64) *MemoryVault {
	return &MemoryVault{balance: initial, sent: make(map[Address]uint64)}
}

func (v *MemoryVault) Balance() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

func (v *MemoryVault) Transfer(to Address, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount > v.balance {
		return fmt.Errorf("chain: vault underfunded: have %d, need %d", v.balance, amount)
	}
	v.balance -= amount
	v.sent[to] += amount
	return nil
}

// Sent returns the cumulative amount transferred to an address. For test
// assertions only.
func (v *MemoryVault) Sent(to Address) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sent[to]
}
