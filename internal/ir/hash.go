package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSincTable = "mdxprep/sinctable/v1"
	DomainContent   = "mdxprep/content/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TableParams is the canonical parameter tuple that generates a sinc table.
// Field order is fixed, so its JSON encoding is canonical.
type TableParams struct {
	Denominator   int     `json:"denominator"`
	ZeroCrossings int     `json:"zero_crossings"`
	Alpha         float64 `json:"alpha"`
	Layout        string  `json:"layout"`
}

// TableKey computes the content-addressed cache key for a table.
// Two parameter tuples produce the same key only if they would produce the
// same artifact bytes.
func TableKey(p TableParams) (string, error) {
	canonical, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("TableKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSincTable, canonical), nil
}

// MustTableKey is like TableKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTableKey(p TableParams) string {
	key, err := TableKey(p)
	if err != nil {
		panic(err)
	}
	return key
}

// ContentHash returns the domain-separated hash of file contents. Run
// history stores it so an operator can tell which bytes a patch produced.
func ContentHash(content []byte) string {
	return hashWithDomain(DomainContent, content)
}
