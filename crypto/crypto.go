package crypto

import (
	"fmt"
	"strings"
)

const (
	// HashAlgorithmSHA256 is the network default.
	HashAlgorithmSHA256 = "sha256"
	// HashAlgorithmKeccak256 selects legacy Keccak-256. Every node of a
	// network must agree on the algorithm.
	HashAlgorithmKeccak256 = "keccak256"
)

// Hasher binds the fields of a block together. Digest must be deterministic
// and return a lowercase hex string.
type Hasher interface {
	Digest(bz []byte) string
}

// HasherByName returns the Hasher registered under name.
func HasherByName(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case HashAlgorithmSHA256, "":
		return SHA256(), nil
	case HashAlgorithmKeccak256:
		return Keccak256(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", name)
	}
}
