package types

import "time"

const (
	GenesisIndex        int64 = 0
	GenesisPreviousHash       = "0"
	GenesisData               = "Hello Block"
	GenesisHash               = "aa212344fc10ea0a2cb885078fa9bc2354e55efc81be8f56b66e4a837157662e"
)

// GenesisBlock returns the network-wide first block. The hash is a fixed
// literal; only the timestamp is node local.
func GenesisBlock(t time.Time) Block {
	return Block{
		Index:        GenesisIndex,
		PreviousHash: GenesisPreviousHash,
		Timestamp:    TimestampMillis(t),
		Data:         GenesisData,
		Hash:         GenesisHash,
	}
}

// IsGenesis reports whether b is the genesis block. The timestamp is not
// compared since every node stamps genesis at startup.
func IsGenesis(b Block) bool {
	return b.Index == GenesisIndex &&
		b.PreviousHash == GenesisPreviousHash &&
		b.Data == GenesisData &&
		b.Hash == GenesisHash
}
