package types

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tendermint/naivechain/crypto"
)

// Block is the ledger's unit of record. Blocks are passed by value; once a
// block has been built its fields are never modified in place.
type Block struct {
	Index        int64  `json:"index"`
	PreviousHash string `json:"previousHash"`
	Timestamp    int64  `json:"timestamp"`
	Data         string `json:"data"`
	Hash         string `json:"hash"`
}

// NewBlock builds a block and computes its hash.
func NewBlock(hasher crypto.Hasher, index int64, previousHash string, timestamp int64, data string) Block {
	return Block{
		Index:        index,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		Data:         data,
		Hash:         HashBlockFields(hasher, index, previousHash, timestamp, data),
	}
}

// NextBlock builds the block extending prev, stamped with t.
func NextBlock(hasher crypto.Hasher, prev Block, t time.Time, data string) Block {
	return NewBlock(hasher, prev.Index+1, prev.Hash, TimestampMillis(t), data)
}

// HashBlockFields digests the concatenation of the decimal index, the
// previous hash, the decimal timestamp and the data.
func HashBlockFields(hasher crypto.Hasher, index int64, previousHash string, timestamp int64, data string) string {
	bz := make([]byte, 0, 20+len(previousHash)+20+len(data))
	bz = strconv.AppendInt(bz, index, 10)
	bz = append(bz, previousHash...)
	bz = strconv.AppendInt(bz, timestamp, 10)
	bz = append(bz, data...)
	return hasher.Digest(bz)
}

// ComputeHash recomputes the hash over the block's fields, ignoring the
// stored Hash.
func (b Block) ComputeHash(hasher crypto.Hasher) string {
	return HashBlockFields(hasher, b.Index, b.PreviousHash, b.Timestamp, b.Data)
}

// ValidateBasic performs checks that do not depend on the block's
// predecessor.
func (b Block) ValidateBasic(hasher crypto.Hasher) error {
	if b.Index < 0 {
		return errors.New("negative Index")
	}
	if b.Hash == "" {
		return errors.New("empty Hash")
	}
	if w, g := b.ComputeHash(hasher), b.Hash; w != g {
		return fmt.Errorf("wrong Hash. Expected %s, got %s", w, g)
	}
	return nil
}

// Time returns the block timestamp as a time.Time.
func (b Block) Time() time.Time {
	return time.UnixMilli(b.Timestamp)
}

func (b Block) String() string {
	return fmt.Sprintf("Block{%d %s <- %s @ %d %q}",
		b.Index, shortHash(b.Hash), shortHash(b.PreviousHash), b.Timestamp, b.Data)
}

// MarshalZerologObject formats this object for logging purposes
func (b Block) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("index", b.Index)
	e.Str("hash", b.Hash)
	e.Str("previous_hash", b.PreviousHash)
	e.Int64("timestamp", b.Timestamp)
}

// TimestampMillis converts t to the millisecond resolution used on the wire.
func TimestampMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
