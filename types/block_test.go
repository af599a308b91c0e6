package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/naivechain/crypto"
)

func TestNewBlockHash(t *testing.T) {
	hasher := crypto.SHA256()

	b := NewBlock(hasher, 1, GenesisHash, 1522000000000, "x")
	assert.Equal(t, hasher.Digest([]byte("1"+GenesisHash+"1522000000000x")), b.Hash)
	assert.Equal(t, b.Hash, b.ComputeHash(hasher))
	require.NoError(t, b.ValidateBasic(hasher))

	// the same fields under another hasher must not validate
	require.Error(t, b.ValidateBasic(crypto.Keccak256()))
}

func TestNextBlock(t *testing.T) {
	hasher := crypto.SHA256()
	now := time.Unix(1522000000, 0)

	genesis := GenesisBlock(now)
	next := NextBlock(hasher, genesis, now.Add(time.Second), "payload")

	assert.EqualValues(t, 1, next.Index)
	assert.Equal(t, genesis.Hash, next.PreviousHash)
	assert.Equal(t, TimestampMillis(now.Add(time.Second)), next.Timestamp)
	assert.True(t, now.Add(time.Second).Equal(next.Time()))
	require.NoError(t, ValidateNext(hasher, genesis, next))
}

func TestBlockValidateBasic(t *testing.T) {
	hasher := crypto.SHA256()
	valid := NewBlock(hasher, 3, "abc", 42, "data")

	testCases := []struct {
		name      string
		malleate  func(*Block)
		expectErr bool
	}{
		{"valid", func(*Block) {}, false},
		{"negative index", func(b *Block) { b.Index = -1 }, true},
		{"empty hash", func(b *Block) { b.Hash = "" }, true},
		{"tampered data", func(b *Block) { b.Data = "other" }, true},
		{"tampered timestamp", func(b *Block) { b.Timestamp++ }, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b := valid
			tc.malleate(&b)
			err := b.ValidateBasic(hasher)
			if tc.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIsGenesis(t *testing.T) {
	a := GenesisBlock(time.Unix(1, 0))
	b := GenesisBlock(time.Unix(2, 0))

	assert.True(t, IsGenesis(a))
	assert.True(t, IsGenesis(b), "genesis timestamps differ between nodes")

	tampered := a
	tampered.Data = "Goodbye Block"
	assert.False(t, IsGenesis(tampered))

	tampered = a
	tampered.Hash = tampered.Hash[:63] + "f"
	assert.False(t, IsGenesis(tampered))
}

func TestBlockString(t *testing.T) {
	b := Block{Index: 2, PreviousHash: "0123456789abcdef", Hash: "fedcba9876543210", Timestamp: 5, Data: "d"}
	assert.Equal(t, `Block{2 fedcba987654 <- 0123456789ab @ 5 "d"}`, b.String())
}
