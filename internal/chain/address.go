// Package chain defines the narrow interfaces and wire types this module
// expects of the blockchain runtime it is embedded in. The runtime itself
// (transaction dispatch, signature verification at the protocol level, rent,
// associated-token-account creation) is out of scope; this package only
// specifies what the distributor state machine requires from it.
package chain

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address is a 32-byte public key identifying a claimant, mint, vault, or
// admin account.
type Address [32]byte

// ZeroAddress is the all-zero sentinel used for "not set".
var ZeroAddress = Address{}

// String renders the address as base58, the conventional encoding for
// public keys in this ecosystem.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// MarshalJSON encodes the address as a base58 string, matching the shard
// artifact wire format ("<base58 pubkey>").
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a base58-encoded address string.
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("chain: address must be a JSON string")
	}
	decoded, err := ParseAddress(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// ParseAddress decodes a base58-encoded 32-byte address.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("chain: invalid base58 address %q: %w", s, err)
	}
	if len(raw) != 32 {
		return Address{}, fmt.Errorf("chain: address %q decodes to %d bytes, want 32", s, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// HexString renders the address as hex, used for log lines and metric
// labels where base58's variable width is inconvenient.
func (a Address) HexString() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}
