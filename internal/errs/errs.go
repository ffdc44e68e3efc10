// Package errs defines the error kinds surfaced at the core's boundaries,
// per the propagation policy in the specification's error handling design.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is against these after wrapping with
// fmt.Errorf("...: %w", err).
var (
	// ErrBadFormat marks malformed xmif, block, or config input.
	ErrBadFormat = errors.New("bad format")

	// ErrChainMismatch marks an inbound block that breaks the index/prev-hash
	// chain invariant.
	ErrChainMismatch = errors.New("chain mismatch")

	// ErrPoDInvalid marks a block whose confirmations fail verification or
	// fall short of the required count.
	ErrPoDInvalid = errors.New("proof-of-diplomacy invalid")

	// ErrConflict marks a lost ledger-append lock race; the caller should
	// retry.
	ErrConflict = errors.New("conflicting append")

	// ErrExhausted marks a puzzle loop that hit its attempt cap without a
	// solution; the caller should recompute difficulty and retry.
	ErrExhausted = errors.New("puzzle attempts exhausted")

	// ErrTransport marks a recoverable network or timeout error.
	ErrTransport = errors.New("transport error")

	// ErrFatal marks a corrupted ledger tail or unreadable database; the
	// process should log and exit nonzero.
	ErrFatal = errors.New("fatal")
)

// AuthSubkind enumerates the reasons an RPC call fails authentication.
type AuthSubkind string

const (
	AuthInvalidTimestamp    AuthSubkind = "invalid_timestamp"
	AuthTimestampOutOfRange AuthSubkind = "timestamp_out_of_range"
	AuthBadSignature        AuthSubkind = "bad_signature"
)

// AuthError is raised at the RPC boundary when the authentication triple
// (timestamp, nonce, signature) fails to verify.
type AuthError struct {
	Subkind AuthSubkind
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth failed: %s: %v", e.Subkind, e.Cause)
	}
	return fmt.Sprintf("auth failed: %s", e.Subkind)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// NewAuthError constructs an AuthError of the given subkind, wrapping cause.
func NewAuthError(sub AuthSubkind, cause error) *AuthError {
	return &AuthError{Subkind: sub, Cause: cause}
}

// IsAuthFailed reports whether err is an *AuthError, optionally of a
// specific subkind (pass "" to match any subkind).
func IsAuthFailed(err error, sub AuthSubkind) bool {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return false
	}
	return sub == "" || ae.Subkind == sub
}
