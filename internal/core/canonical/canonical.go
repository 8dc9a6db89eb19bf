// Package canonical produces the deterministic serialization and
// fingerprints that key every cache namespace and audit trail. The byte
// layout (sorted object keys, 4-space indentation, preserved list order)
// is load-bearing: changing it is a cache-epoch break because fingerprints
// of previously cached message sets would silently diverge.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// Canonicalize serializes a message set with object keys sorted and fixed
// formatting. domain.Message declares content before role, which is the
// sorted key order, and encoding/json emits struct fields in declaration
// order, so marshaling yields sorted keys without a custom encoder.
func Canonicalize(messages []domain.Message) ([]byte, error) {
	out, err := json.MarshalIndent(messages, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("canonicalize messages: %w", err)
	}
	return out, nil
}

// Fingerprint returns the fixed-width hex digest of canonical bytes.
func Fingerprint(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// FingerprintText digests raw extracted source text.
func FingerprintText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FingerprintMessages is the common Canonicalize+Fingerprint composition.
func FingerprintMessages(messages []domain.Message) (string, []byte, error) {
	canonicalBytes, err := Canonicalize(messages)
	if err != nil {
		return "", nil, err
	}
	return Fingerprint(canonicalBytes), canonicalBytes, nil
}
