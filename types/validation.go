package types

import (
	"strconv"

	"github.com/tendermint/naivechain/crypto"
)

// ValidateNext checks that next directly extends prev: consecutive index,
// matching previous hash and a hash that covers next's own fields.
func ValidateNext(hasher crypto.Hasher, prev, next Block) error {
	if want := prev.Index + 1; next.Index != want {
		return ErrRejectedBlock{
			Reason: BadIndex,
			Index:  next.Index,
			Want:   strconv.FormatInt(want, 10),
			Got:    strconv.FormatInt(next.Index, 10),
		}
	}

	if next.PreviousHash != prev.Hash {
		return ErrRejectedBlock{
			Reason: BadPreviousHash,
			Index:  next.Index,
			Want:   prev.Hash,
			Got:    next.PreviousHash,
		}
	}

	if hash := next.ComputeHash(hasher); hash != next.Hash {
		return ErrRejectedBlock{
			Reason: BadHash,
			Index:  next.Index,
			Want:   hash,
			Got:    next.Hash,
		}
	}

	return nil
}

// ValidateChain checks that chain starts at genesis and that every block
// extends the one before it. Validation only ever looks at adjacent pairs.
func ValidateChain(hasher crypto.Hasher, chain []Block) error {
	if len(chain) == 0 {
		return ErrInvalidChain{Height: 0, Err: ErrEmptyChain}
	}
	if !IsGenesis(chain[0]) {
		return ErrInvalidChain{Height: 0, Err: ErrGenesisMismatch}
	}

	for i := 1; i < len(chain); i++ {
		if err := ValidateNext(hasher, chain[i-1], chain[i]); err != nil {
			return ErrInvalidChain{Height: i, Err: err}
		}
	}

	return nil
}
