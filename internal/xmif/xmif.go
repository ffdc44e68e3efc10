// Package xmif implements the pipe-delimited transaction microformat: its
// parsing, canonical re-serialization, and the IXAN account-number
// derivation that feeds it.
package xmif

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xbucks-network/diplomat-node/internal/errs"
)

// timeLayout is the microformat's timestamp format: dd/mm/YYYY, HH:MM:SS.
const timeLayout = "02/01/2006, 15:04:05"

var digitsOnly = regexp.MustCompile(`[0-9]`)

// Money is the recognized shape of the microformat's money_json segment.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Owner    string `json:"owner"`
}

// AmountDecimal parses Amount as a base-10 float. A malformed or empty
// amount parses as zero, matching the "coerced to 1 if zero or negative"
// handling the PoD engine performs on the *sum*, not on individual parses.
func (m Money) AmountDecimal() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(m.Amount), 64)
	if err != nil {
		return 0
	}
	return f
}

// Fields holds the five pipe-delimited segments of a microformat string in
// parsed form.
type Fields struct {
	SenderIXAN      string
	ReceiverAddress string
	Money           Money
	Timestamp       time.Time
	Fees            string
}

// Xmif is the transported unit: a microformat string plus its detached
// signature, produced by the sender's SignerIdentity over the UTF-8 bytes
// of MC.
type Xmif struct {
	MC        string `json:"mc"`
	Signature []byte `json:"signature"`
}

// Build serializes f into the canonical pipe-delimited microformat string.
// The money segment is written as compact JSON with keys in the order
// amount, currency, owner. Build(Parse(s)) reproduces s byte-for-byte only
// when s's money segment is already in that form: Parse also accepts other
// key orders, whitespace and extra keys, and Build does not preserve them.
func Build(f Fields) (string, error) {
	moneyJSON, err := json.Marshal(f.Money)
	if err != nil {
		return "", fmt.Errorf("marshal money: %w", err)
	}
	return strings.Join([]string{
		f.SenderIXAN,
		f.ReceiverAddress,
		string(moneyJSON),
		f.Timestamp.UTC().Format(timeLayout),
		f.Fees,
	}, "|"), nil
}

// Parse validates and decodes a microformat string into its five segments.
// It rejects anything that isn't exactly five pipe-delimited segments, or
// whose money segment isn't JSON with amount/currency/owner.
func Parse(mc string) (Fields, error) {
	parts := strings.Split(mc, "|")
	if len(parts) != 5 {
		return Fields{}, fmt.Errorf("%w: expected 5 pipe-delimited segments, got %d", errs.ErrBadFormat, len(parts))
	}

	var money Money
	if err := json.Unmarshal([]byte(parts[2]), &money); err != nil {
		return Fields{}, fmt.Errorf("%w: money segment is not valid JSON: %v", errs.ErrBadFormat, err)
	}
	if money.Amount == "" || money.Currency == "" || money.Owner == "" {
		return Fields{}, fmt.Errorf("%w: money segment missing amount/currency/owner", errs.ErrBadFormat)
	}

	ts, err := time.Parse(timeLayout, parts[3])
	if err != nil {
		return Fields{}, fmt.Errorf("%w: bad timestamp %q: %v", errs.ErrBadFormat, parts[3], err)
	}

	if parts[0] == "" || parts[1] == "" || parts[4] == "" {
		return Fields{}, fmt.Errorf("%w: empty sender/receiver/fees segment", errs.ErrBadFormat)
	}

	return Fields{
		SenderIXAN:      parts[0],
		ReceiverAddress: parts[1],
		Money:           money,
		Timestamp:       ts.UTC(),
		Fees:            parts[4],
	}, nil
}

// DeriveIXAN derives a 12-digit IXAN from a public address by extracting
// its decimal digits and padding with random digits up to length 12.
func DeriveIXAN(address string) (string, error) {
	digits := digitsOnly.FindAllString(address, -1)
	joined := strings.Join(digits, "")
	if len(joined) >= 12 {
		return joined[:12], nil
	}

	out := []byte(joined)
	for len(out) < 12 {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("derive ixan: %w", err)
		}
		out = append(out, byte('0')+byte(n.Int64()))
	}
	return string(out), nil
}
