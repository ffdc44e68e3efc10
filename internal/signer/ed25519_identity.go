package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xbucks-network/diplomat-node/internal/hashutil"
)

const (
	privateKeyPEMType = "DIPLOMAT PRIVATE KEY"
	publicKeyPEMType  = "DIPLOMAT PUBLIC KEY"
)

// Ed25519FileIdentity is a file-backed Identity: an Ed25519 keypair
// persisted as PEM under keys/{name}_privatekey.pem and
// keys/{name}_publickey.pem, loaded on start or generated and persisted on
// first use. This mirrors the load-or-create-and-persist shape the P2P
// layer uses for its own node identity, applied here to the account
// signing key the specification carves out as an external collaborator.
type Ed25519FileIdentity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr string
}

// LoadOrCreateEd25519Identity loads name's keypair from keysDir, or
// generates and persists a new one if none exists.
func LoadOrCreateEd25519Identity(keysDir, name string) (*Ed25519FileIdentity, error) {
	privPath := filepath.Join(keysDir, name+"_privatekey.pem")
	pubPath := filepath.Join(keysDir, name+"_publickey.pem")

	if privRaw, err := os.ReadFile(privPath); err == nil {
		block, _ := pem.Decode(privRaw)
		if block == nil {
			return nil, fmt.Errorf("decode private key pem: empty block")
		}
		priv := ed25519.PrivateKey(block.Bytes)
		return newIdentity(priv), nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}

	if err := os.MkdirAll(keysDir, 0700); err != nil {
		return nil, fmt.Errorf("create keys dir: %w", err)
	}
	if err := writePEM(privPath, privateKeyPEMType, priv, 0600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	if err := writePEM(pubPath, publicKeyPEMType, pub, 0644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}

	return newIdentity(priv), nil
}

func newIdentity(priv ed25519.PrivateKey) *Ed25519FileIdentity {
	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519FileIdentity{
		priv: priv,
		pub:  pub,
		addr: hashutil.Sha256Hex(pub)[:40],
	}
}

func writePEM(path, typ string, bytes []byte, mode os.FileMode) error {
	block := &pem.Block{Type: typ, Bytes: bytes}
	return os.WriteFile(path, pem.EncodeToMemory(block), mode)
}

// Sign produces a detached Ed25519 signature over message.
func (e *Ed25519FileIdentity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(e.priv, message), nil
}

// Verify checks signature against message using this identity's public key.
func (e *Ed25519FileIdentity) Verify(message, signature []byte) bool {
	return ed25519.Verify(e.pub, message, signature)
}

// Address returns this identity's stable address identifier: the first 40
// hex characters of SHA-256(public key).
func (e *Ed25519FileIdentity) Address() string {
	return e.addr
}

// PublicKeyHex returns the raw public key, hex-encoded, for diagnostics.
func (e *Ed25519FileIdentity) PublicKeyHex() string {
	return hex.EncodeToString(e.pub)
}
