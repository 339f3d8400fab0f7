package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// fieldSep separates canonical fields; it cannot appear in a tokenized title.
const fieldSep = "\x1f"

// Fingerprint is the content hash identifying a transaction.
type Fingerprint [32]byte

// Canonical returns the serialization the fingerprint is computed over:
// title, amount, start date, lifetime and sorted tags. RecordedAt and Source
// are not part of a transaction's identity.
func Canonical(tx Transaction) string {
	return strings.Join([]string{
		strings.TrimSpace(tx.Title),
		FormatAmount(tx.Amount),
		tx.Since.String(),
		tx.Lifetime.String(),
		strings.Join(NormalizeTags(tx.Tags), ","),
	}, fieldSep)
}

// FingerprintOf hashes the canonical form of tx with BLAKE3-256.
func FingerprintOf(tx Transaction) Fingerprint {
	return blake3.Sum256([]byte(Canonical(tx)))
}

func (t Transaction) Fingerprint() Fingerprint {
	return FingerprintOf(t)
}

// ParseFingerprint decodes the hex form produced by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return f, fmt.Errorf("decode fingerprint: %w", err)
	}
	if len(b) != len(f) {
		return f, fmt.Errorf("decode fingerprint: want %d bytes, got %d", len(f), len(b))
	}
	copy(f[:], b)
	return f, nil
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, enough for display.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fingerprint) UnmarshalText(b []byte) error {
	parsed, err := ParseFingerprint(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
