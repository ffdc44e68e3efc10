// Package rpcauth implements the HMAC authentication triple carried on
// every RPC: timestamp, nonce, and a keyed-hash signature over a canonical
// pre-image.
package rpcauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/xbucks-network/diplomat-node/internal/errs"
)

// DefaultTolerance is the default allowed clock skew between caller and
// callee.
const DefaultTolerance = 120 * time.Second

// Credentials is the authentication triple attached to an RPC call.
type Credentials struct {
	Timestamp string
	Nonce     string
	Signature string
}

// Signer produces signed credentials over a given payload using an
// injectable clock, so tests don't depend on wall-clock timing.
type Signer struct {
	sharedSecret []byte
	clock        clock.Clock
}

// NewSigner builds a Signer keyed on sharedSecret. A nil clock defaults to
// the real wall clock.
func NewSigner(sharedSecret []byte, c clock.Clock) *Signer {
	if c == nil {
		c = clock.New()
	}
	return &Signer{sharedSecret: sharedSecret, clock: c}
}

// Sign produces a fresh authentication triple over payload.
func (s *Signer) Sign(payload string) (Credentials, error) {
	nonce, err := randomNonce()
	if err != nil {
		return Credentials{}, fmt.Errorf("generate nonce: %w", err)
	}
	timestamp := formatTimestamp(s.clock.Now())
	sig := sign(s.sharedSecret, timestamp, nonce, payload)
	return Credentials{Timestamp: timestamp, Nonce: nonce, Signature: sig}, nil
}

func randomNonce() (string, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).SetUint64(math.MaxUint64))
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

func formatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

// preimage builds the canonical string that gets signed.
func preimage(timestamp, nonce, payload string) string {
	return timestamp + ":" + nonce + ":" + payload
}

func sign(secret []byte, timestamp, nonce, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(preimage(timestamp, nonce, payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks inbound authentication triples against a tolerance
// window and a shared secret.
type Verifier struct {
	sharedSecret []byte
	tolerance    time.Duration
	clock        clock.Clock
}

// NewVerifier builds a Verifier. A zero tolerance defaults to
// DefaultTolerance; a nil clock defaults to the real wall clock.
func NewVerifier(sharedSecret []byte, tolerance time.Duration, c clock.Clock) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if c == nil {
		c = clock.New()
	}
	return &Verifier{sharedSecret: sharedSecret, tolerance: tolerance, clock: c}
}

// Verify runs the three acceptance rules in order: parse timestamp, check
// clock skew, recompute and constant-time-compare the signature.
func (v *Verifier) Verify(creds Credentials, payload string) error {
	seconds, err := strconv.ParseFloat(creds.Timestamp, 64)
	if err != nil {
		return errs.NewAuthError(errs.AuthInvalidTimestamp, fmt.Errorf("parse timestamp %q: %w", creds.Timestamp, err))
	}

	callTime := time.Unix(0, int64(seconds*1e9))
	skew := v.clock.Now().Sub(callTime)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return errs.NewAuthError(errs.AuthTimestampOutOfRange, fmt.Errorf("clock skew %s exceeds tolerance %s", skew, v.tolerance))
	}

	expected := sign(v.sharedSecret, creds.Timestamp, creds.Nonce, payload)
	if !hmac.Equal([]byte(expected), []byte(creds.Signature)) {
		return errs.NewAuthError(errs.AuthBadSignature, fmt.Errorf("signature mismatch"))
	}
	return nil
}
