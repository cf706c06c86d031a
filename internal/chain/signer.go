package chain

import (
	"crypto/ed25519"
)

// Signer verifies that a caller genuinely controls the private key for an
// address, standing in for the signature check a real transaction runtime
// performs before a program even begins executing. create_distributor uses
// this to confirm the caller claiming to be `admin` actually signed the
// creation parameters.
type Signer interface {
	// Verify reports whether sig is a valid Ed25519 signature over message
	// under signer's public key.
	Verify(signer Address, message, sig []byte) bool
}

// Ed25519Signer verifies signatures with the standard library's Ed25519
// implementation.
type Ed25519Signer struct{}

func (Ed25519Signer) Verify(signer Address, message, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), message, sig)
}

// AlwaysValidSigner accepts every signature. Used by tests and by harnesses
// that model a caller's signing step as already having happened upstream
// (e.g. the HTTP query surface, which never signs anything).
type AlwaysValidSigner struct{}

func (AlwaysValidSigner) Verify(Address, []byte, []byte) bool { return true }

// SignCreation produces the detached signature create_distributor expects
// over its parameters, for use by callers (and tests) that hold the admin
// key. The message format is fixed so builder and verifier never drift.
func SignCreation(priv ed25519.PrivateKey, version uint64, root [32]byte, mint Address) []byte {
	return ed25519.Sign(priv, creationMessage(version, root, mint))
}

func creationMessage(version uint64, root [32]byte, mint Address) []byte {
	msg := make([]byte, 0, 8+32+32)
	var v [8]byte
	for i := 0; i < 8; i++ {
		v[i] = byte(version >> (8 * i))
	}
	msg = append(msg, v[:]...)
	msg = append(msg, root[:]...)
	msg = append(msg, mint[:]...)
	return msg
}

// CreationMessage is exported so callers assembling a create_distributor
// request can sign exactly what Verify will check.
func CreationMessage(version uint64, root [32]byte, mint Address) []byte {
	return creationMessage(version, root, mint)
}
