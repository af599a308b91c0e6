package store_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tendermint/naivechain/crypto"
	"github.com/tendermint/naivechain/internal/store"
	"github.com/tendermint/naivechain/types"
)

func fixedClock() func() time.Time {
	var (
		mtx sync.Mutex
		now = time.Unix(1522000000, 0)
	)
	return func() time.Time {
		mtx.Lock()
		defer mtx.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newStore() *store.ChainStore {
	return store.NewChainStore(crypto.SHA256(), store.WithClock(fixedClock()))
}

// makeChain builds a valid chain of n blocks (genesis included) whose
// payloads are prefixed with fork.
func makeChain(t require.TestingT, fork string, n int) []types.Block {
	cs := newStore()
	for i := 1; i < n; i++ {
		require.NoError(t, cs.Append(cs.Mine(fmt.Sprintf("%s-%d", fork, i))))
	}
	return cs.Blocks()
}

func TestNewChainStore(t *testing.T) {
	cs := newStore()

	require.Equal(t, 1, cs.Size())
	require.EqualValues(t, 0, cs.Height())
	require.True(t, types.IsGenesis(cs.Latest()))

	b, ok := cs.LoadBlock(0)
	require.True(t, ok)
	require.Equal(t, cs.Latest(), b)

	_, ok = cs.LoadBlock(1)
	require.False(t, ok)
}

func TestMineThenAppend(t *testing.T) {
	cs := newStore()

	b := cs.Mine("x")
	require.Equal(t, 1, cs.Size(), "mine must not mutate the store")
	require.EqualValues(t, 1, b.Index)
	require.Equal(t, types.GenesisHash, b.PreviousHash)

	require.NoError(t, cs.Append(b))
	require.EqualValues(t, 1, cs.Latest().Index)
	require.Equal(t, b, cs.Latest())
	require.Equal(t, 2, cs.Size())
}

func TestAppendRejections(t *testing.T) {
	cs := newStore()
	require.NoError(t, cs.Append(cs.Mine("a")))
	next := cs.Mine("b")

	testCases := []struct {
		name     string
		malleate func(*types.Block)
		reason   types.RejectReason
	}{
		{"skips an index", func(b *types.Block) { b.Index++ }, types.BadIndex},
		{"wrong previous hash", func(b *types.Block) { b.PreviousHash = types.GenesisHash }, types.BadPreviousHash},
		{"forged hash", func(b *types.Block) { b.Hash = types.GenesisHash }, types.BadHash},
		{"payload changed after hashing", func(b *types.Block) { b.Data = "c" }, types.BadHash},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			before := cs.Blocks()

			b := next
			tc.malleate(&b)
			err := cs.Append(b)
			require.Error(t, err)

			reason, ok := types.RejectReasonOf(err)
			require.True(t, ok)
			require.Equal(t, tc.reason, reason)
			require.Empty(t, cmp.Diff(before, cs.Blocks()))
		})
	}

	require.NoError(t, cs.Append(next))
	require.Equal(t, 3, cs.Size())
}

func TestAppendIsNotIdempotent(t *testing.T) {
	cs := newStore()
	b := cs.Mine("x")
	require.NoError(t, cs.Append(b))

	err := cs.Append(b)
	reason, ok := types.RejectReasonOf(err)
	require.True(t, ok)
	require.Equal(t, types.BadIndex, reason)
	require.Equal(t, 2, cs.Size())
}

func TestReplace(t *testing.T) {
	invalid := makeChain(t, "bad", 5)
	invalid[3].Data = "tampered"

	testCases := []struct {
		name      string
		localLen  int
		candidate []types.Block
		replaced  bool
	}{
		{"longer valid chain", 2, makeChain(t, "fork", 4), true},
		{"shorter valid chain", 3, makeChain(t, "fork", 2), false},
		{"equal length chain", 3, makeChain(t, "fork", 3), false},
		{"longer invalid chain", 2, invalid, false},
		{"empty chain", 1, nil, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := newStore()
			for i := 1; i < tc.localLen; i++ {
				require.NoError(t, cs.Append(cs.Mine("local")))
			}
			before := cs.Blocks()

			err := cs.Replace(tc.candidate)
			if tc.replaced {
				require.NoError(t, err)
				require.Empty(t, cmp.Diff(tc.candidate, cs.Blocks()))
				return
			}

			require.Error(t, err)
			require.Empty(t, cmp.Diff(before, cs.Blocks()))
		})
	}
}

func TestReplaceErrors(t *testing.T) {
	cs := newStore()
	require.NoError(t, cs.Append(cs.Mine("a")))

	err := cs.Replace(makeChain(t, "fork", 2))
	require.ErrorIs(t, err, store.ErrChainNotLonger)

	err = cs.Replace(nil)
	require.ErrorIs(t, err, types.ErrEmptyChain)
	require.False(t, cs.IsValidChain(nil))
}

func TestReplaceCopiesCandidate(t *testing.T) {
	cs := newStore()
	candidate := makeChain(t, "fork", 3)
	require.NoError(t, cs.Replace(candidate))

	candidate[2].Data = "mutated by caller"
	assert.NotEqual(t, candidate[2], cs.Latest())
	assert.True(t, cs.IsValidChain(cs.Blocks()))
}

func TestBlocksReturnsCopy(t *testing.T) {
	cs := newStore()
	require.NoError(t, cs.Append(cs.Mine("a")))

	blocks := cs.Blocks()
	blocks[1].Data = "mutated by caller"
	assert.Equal(t, "a", cs.Latest().Data)
}

func TestConcurrentAppend(t *testing.T) {
	cs := newStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				// racing miners: only one block per index can win
				_ = cs.Append(cs.Mine(fmt.Sprintf("%d-%d", i, j)))
			}
		}(i)
	}
	wg.Wait()

	require.True(t, cs.IsValidChain(cs.Blocks()))
	require.EqualValues(t, cs.Size()-1, cs.Height())
}

func TestChainStoreProperties(t *testing.T) {
	rapid.Check(t, rapid.Run(&chainStoreModel{}))
}

// chainStoreModel drives a ChainStore with random operations and checks it
// against a plain slice.
type chainStoreModel struct {
	store *store.ChainStore
	model []types.Block
}

func (m *chainStoreModel) Init(t *rapid.T) {
	m.store = newStore()
	m.model = m.store.Blocks()
}

func (m *chainStoreModel) MineAndAppend(t *rapid.T) {
	data := rapid.String().Draw(t, "data").(string)
	b := m.store.Mine(data)
	require.NoError(t, m.store.Append(b))
	m.model = append(m.model, b)
}

func (m *chainStoreModel) AppendStale(t *rapid.T) {
	if len(m.model) < 2 {
		return
	}
	ix := rapid.IntRange(1, len(m.model)-1).Draw(t, "index").(int)
	require.Error(t, m.store.Append(m.model[ix]))
}

func (m *chainStoreModel) Replace(t *rapid.T) {
	n := rapid.IntRange(1, len(m.model)+3).Draw(t, "length").(int)
	candidate := makeChain(t, rapid.StringMatching(`[a-z]{1,4}`).Draw(t, "fork").(string), n)

	err := m.store.Replace(candidate)
	if n > len(m.model) {
		require.NoError(t, err)
		m.model = candidate
	} else {
		require.ErrorIs(t, err, store.ErrChainNotLonger)
	}
}

func (m *chainStoreModel) Check(t *rapid.T) {
	require.Equal(t, len(m.model), m.store.Size())
	require.Equal(t, m.model[len(m.model)-1], m.store.Latest())
	require.Empty(t, cmp.Diff(m.model, m.store.Blocks()))
	require.True(t, m.store.IsValidChain(m.store.Blocks()))
}
