package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tendermint/naivechain/crypto"
)

func makeChain(hasher crypto.Hasher, payloads ...string) []Block {
	now := time.Unix(1522000000, 0)
	chain := []Block{GenesisBlock(now)}
	for i, p := range payloads {
		chain = append(chain, NextBlock(hasher, chain[len(chain)-1], now.Add(time.Duration(i+1)*time.Second), p))
	}
	return chain
}

func TestValidateNext(t *testing.T) {
	hasher := crypto.SHA256()
	chain := makeChain(hasher, "a")
	prev, next := chain[0], chain[1]

	testCases := []struct {
		name     string
		malleate func(*Block)
		reason   RejectReason
	}{
		{"index too high", func(b *Block) { b.Index = 2 }, BadIndex},
		{"same index", func(b *Block) { b.Index = 0 }, BadIndex},
		{"previous hash", func(b *Block) { b.PreviousHash = "deadbeef" }, BadPreviousHash},
		{"hash", func(b *Block) { b.Hash = "deadbeef" }, BadHash},
		{"data", func(b *Block) { b.Data = "b" }, BadHash},
		{"timestamp", func(b *Block) { b.Timestamp-- }, BadHash},
	}

	require.NoError(t, ValidateNext(hasher, prev, next))

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b := next
			tc.malleate(&b)
			err := ValidateNext(hasher, prev, b)
			require.Error(t, err)

			reason, ok := RejectReasonOf(err)
			require.True(t, ok)
			require.Equal(t, tc.reason, reason)
		})
	}
}

func TestValidateChain(t *testing.T) {
	hasher := crypto.SHA256()

	require.NoError(t, ValidateChain(hasher, makeChain(hasher)))
	require.NoError(t, ValidateChain(hasher, makeChain(hasher, "a", "b", "c")))

	err := ValidateChain(hasher, nil)
	require.ErrorIs(t, err, ErrEmptyChain)

	chain := makeChain(hasher, "a")
	chain[0].Data = "Hello Fork"
	err = ValidateChain(hasher, chain)
	require.ErrorIs(t, err, ErrGenesisMismatch)

	chain = makeChain(hasher, "a", "b", "c")
	chain[2].Data = "tampered"
	err = ValidateChain(hasher, chain)
	var cerr ErrInvalidChain
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, 2, cerr.Height)
	reason, ok := RejectReasonOf(err)
	require.True(t, ok)
	require.Equal(t, BadHash, reason)
}

// Any single-field change of any non-genesis block invalidates the chain.
func TestValidateChainMutationProperty(t *testing.T) {
	hasher := crypto.SHA256()

	rapid.Check(t, func(t *rapid.T) {
		payloads := rapid.SliceOfN(rapid.String(), 1, 8).Draw(t, "payloads").([]string)
		chain := makeChain(hasher, payloads...)
		require.NoError(t, ValidateChain(hasher, chain))

		pos := rapid.IntRange(1, len(chain)-1).Draw(t, "position").(int)
		field := rapid.IntRange(0, 4).Draw(t, "field").(int)
		delta := rapid.Int64Range(1, 1000).Draw(t, "delta").(int64)

		mutated := make([]Block, len(chain))
		copy(mutated, chain)
		b := &mutated[pos]
		switch field {
		case 0:
			b.Index += delta
		case 1:
			b.PreviousHash += "0"
		case 2:
			b.Timestamp += delta
		case 3:
			b.Data += fmt.Sprint(delta)
		case 4:
			b.Hash = hasher.Digest([]byte(b.Hash))
		}

		require.Error(t, ValidateChain(hasher, mutated))
		require.NoError(t, ValidateChain(hasher, chain), "original chain must be untouched")
	})
}
