package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tendermint/naivechain/crypto"
	"github.com/tendermint/naivechain/types"
)

// ErrChainNotLonger is returned by Replace when a valid candidate is not
// strictly longer than the local chain.
var ErrChainNotLonger = errors.New("candidate chain is not longer than local chain")

/*
ChainStore owns the single authoritative in-memory chain.

The chain always holds at least the genesis block. It grows by one block at
a time through Append, or is swapped wholesale for a longer valid chain
through Replace. Every accessor returns copies, so callers never share the
underlying slice.
*/
type ChainStore struct {
	hasher crypto.Hasher
	now    func() time.Time

	mtx    sync.RWMutex
	blocks []types.Block
}

// Option configures a ChainStore.
type Option func(*ChainStore)

// WithClock sets the clock used to stamp genesis and mined blocks.
func WithClock(now func() time.Time) Option {
	return func(cs *ChainStore) { cs.now = now }
}

// NewChainStore returns a store holding only the genesis block.
func NewChainStore(hasher crypto.Hasher, opts ...Option) *ChainStore {
	cs := &ChainStore{
		hasher: hasher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cs)
	}

	cs.blocks = []types.Block{types.GenesisBlock(cs.now())}
	return cs
}

// Hasher returns the hasher blocks are validated with.
func (cs *ChainStore) Hasher() crypto.Hasher {
	return cs.hasher
}

// Latest returns the last block of the chain.
func (cs *ChainStore) Latest() types.Block {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()

	return cs.blocks[len(cs.blocks)-1]
}

// Height returns the index of the latest block.
func (cs *ChainStore) Height() int64 {
	return cs.Latest().Index
}

// Size returns the number of blocks in the chain.
func (cs *ChainStore) Size() int {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()

	return len(cs.blocks)
}

// Blocks returns a copy of the full chain, genesis first.
func (cs *ChainStore) Blocks() []types.Block {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()

	blocks := make([]types.Block, len(cs.blocks))
	copy(blocks, cs.blocks)
	return blocks
}

// LoadBlock returns the block at index, if present.
func (cs *ChainStore) LoadBlock(index int64) (types.Block, bool) {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()

	if index < 0 || index >= int64(len(cs.blocks)) {
		return types.Block{}, false
	}
	return cs.blocks[index], true
}

// Mine builds the block that would extend the current tip. It does not
// modify the store; the caller decides whether to Append it.
func (cs *ChainStore) Mine(data string) types.Block {
	return types.NextBlock(cs.hasher, cs.Latest(), cs.now(), data)
}

// Append adds b to the chain if it directly extends the latest block.
// Otherwise it returns a types.ErrRejectedBlock and leaves the chain as is.
func (cs *ChainStore) Append(b types.Block) error {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	if err := types.ValidateNext(cs.hasher, cs.blocks[len(cs.blocks)-1], b); err != nil {
		return err
	}

	cs.blocks = append(cs.blocks, b)
	return nil
}

// ValidateChain reports why chain would not be accepted by Replace, ignoring
// its length.
func (cs *ChainStore) ValidateChain(chain []types.Block) error {
	return types.ValidateChain(cs.hasher, chain)
}

// IsValidChain reports whether chain starts at genesis and is hash-linked
// throughout.
func (cs *ChainStore) IsValidChain(chain []types.Block) bool {
	return cs.ValidateChain(chain) == nil
}

// Replace swaps the local chain for chain if chain is valid and strictly
// longer. It returns nil iff the swap happened. The store keeps its own copy
// of chain.
func (cs *ChainStore) Replace(chain []types.Block) error {
	if err := cs.ValidateChain(chain); err != nil {
		return err
	}

	blocks := make([]types.Block, len(chain))
	copy(blocks, chain)

	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	if len(blocks) <= len(cs.blocks) {
		return fmt.Errorf("%w: candidate %d, local %d", ErrChainNotLonger, len(blocks), len(cs.blocks))
	}

	cs.blocks = blocks
	return nil
}
