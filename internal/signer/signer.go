// Package signer is the boundary adapter onto the account key-management
// subsystem, which the core treats as an external collaborator. It defines
// the minimal Identity contract the core consumes and ships one concrete,
// file-backed implementation for tests and single-binary dev/test runs.
package signer

// Identity is the signing boundary the core assumes: sign bytes, verify a
// signature over bytes, and expose a stable address identifier. Production
// key custody (passphrase protection, hardware-backed storage) lives
// outside this core.
type Identity interface {
	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) bool
	Address() string
}
