package testutil

import "crypto/ed25519"

// LoopbackIdentity is a signer.Identity backed by an in-memory Ed25519 key,
// for tests that need a real signature without touching the filesystem.
type LoopbackIdentity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr string
}

// NewLoopbackIdentity generates a fresh in-memory identity. addr is an
// arbitrary label, not derived from the key, since most tests only care
// that confirmations from different validators compare unequal.
func NewLoopbackIdentity(addr string) *LoopbackIdentity {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &LoopbackIdentity{priv: priv, pub: pub, addr: addr}
}

func (l *LoopbackIdentity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(l.priv, message), nil
}

func (l *LoopbackIdentity) Verify(message, signature []byte) bool {
	return ed25519.Verify(l.pub, message, signature)
}

func (l *LoopbackIdentity) Address() string {
	return l.addr
}
