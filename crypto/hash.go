package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashFunc adapts a plain function to the Hasher interface.
type HashFunc func(bz []byte) string

// Digest implements Hasher.
func (f HashFunc) Digest(bz []byte) string { return f(bz) }

// SHA256 returns the default hasher.
func SHA256() Hasher {
	return HashFunc(func(bz []byte) string {
		h := sha256.Sum256(bz)
		return hex.EncodeToString(h[:])
	})
}

// Keccak256 returns a hasher using the legacy (pre-NIST) Keccak-256.
func Keccak256() Hasher {
	return HashFunc(func(bz []byte) string {
		hasher := sha3.NewLegacyKeccak256()
		hasher.Write(bz) //nolint:errcheck // hash.Hash never fails
		return hex.EncodeToString(hasher.Sum(nil))
	})
}
