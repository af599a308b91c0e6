package gossip

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/tendermint/naivechain/internal/p2p"
	"github.com/tendermint/naivechain/internal/store"
	"github.com/tendermint/naivechain/libs/log"
	"github.com/tendermint/naivechain/types"
)

var _ p2p.Handler = (*Reactor)(nil)

// Reactor runs the chain gossip protocol over every peer channel.
//
// On connect it asks the peer for its latest block. Queries are answered
// from the store; chain responses are reconciled against it: a block that
// extends our tip is appended and re-announced, a lone block further ahead
// triggers a full chain query to everyone, and a longer full chain replaces
// ours if it is valid.
type Reactor struct {
	logger  log.Logger
	store   *store.ChainStore
	peers   *p2p.PeerRegistry
	metrics *Metrics
}

// NewReactor returns a reactor serving store to peers.
func NewReactor(logger log.Logger, store *store.ChainStore, peers *p2p.PeerRegistry, metrics *Metrics) *Reactor {
	if metrics == nil {
		metrics = NopMetrics()
	}

	r := &Reactor{
		logger:  logger,
		store:   store,
		peers:   peers,
		metrics: metrics,
	}
	r.metrics.Height.Set(float64(store.Height()))
	return r
}

// OnConnectionOpened asks the new peer for its latest block, then starts
// including it in broadcasts.
func (r *Reactor) OnConnectionOpened(ctx context.Context, ch p2p.Channel) {
	if err := r.send(ctx, ch, &QueryLatest{}); err != nil {
		r.logger.Error("failed to query new peer", "peer", ch, "err", err)
	}
	r.peers.Add(ch)
}

// OnConnectionClosed drops the peer from broadcasts.
func (r *Reactor) OnConnectionClosed(ch p2p.Channel) {
	r.peers.Remove(ch)
}

// Receive handles one inbound payload from ch. Errors and panics are logged
// and returned; they never affect the connection.
func (r *Reactor) Receive(ctx context.Context, ch p2p.Channel, bz []byte) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("panic in processing message: %v", e)
			r.logger.Error(
				"recovering from processing message panic",
				"err", err,
				"stack", string(debug.Stack()),
			)
		}
	}()

	msg, err := Decode(bz)
	if err != nil {
		r.metrics.DecodeErrors.Add(1)
		r.logger.Error("failed to decode message", "peer", ch, "err", err)
		return err
	}

	r.metrics.MessagesReceived.With("kind", msg.Kind().String()).Add(1)
	r.logger.Debug("received message", "peer", ch, "kind", msg.Kind())

	if err = r.handleMessage(ctx, ch, msg); err != nil {
		r.logger.Error("failed to process message", "peer", ch, "kind", msg.Kind(), "err", err)
	}
	return err
}

func (r *Reactor) handleMessage(ctx context.Context, ch p2p.Channel, msg Message) error {
	switch msg := msg.(type) {
	case *QueryLatest:
		return r.send(ctx, ch, r.latestResponse())

	case *QueryAll:
		return r.send(ctx, ch, &ChainResponse{Blocks: r.store.Blocks()})

	case *ChainResponse:
		return r.reconcile(ctx, ch, msg)

	default:
		return fmt.Errorf("received unknown message: %T", msg)
	}
}

// reconcile compares the received blocks against the local chain. Only an
// append or a replacement changes state; a tie or a shorter peer is ignored.
func (r *Reactor) reconcile(ctx context.Context, ch p2p.Channel, msg *ChainResponse) error {
	msg.Sort()

	theirs := msg.Last()
	ours := r.store.Latest()
	logger := r.logger.With("peer", ch, "ours", ours.Index, "theirs", theirs.Index)

	if theirs.Index <= ours.Index {
		logger.Debug("received chain is not longer than ours; ignoring")
		return nil
	}

	switch {
	case theirs.PreviousHash == ours.Hash:
		if err := r.store.Append(theirs); err != nil {
			r.blockRejected(err)
			return fmt.Errorf("received block does not extend our chain: %w", err)
		}
		r.metrics.BlocksAppended.Add(1)
		r.metrics.Height.Set(float64(theirs.Index))
		logger.Info("appended received block", "block", theirs)

		r.broadcast(ctx, r.latestResponse())

	case len(msg.Blocks) == 1:
		logger.Info("peer is ahead by more than one block; querying full chains")
		r.broadcast(ctx, &QueryAll{})

	default:
		if err := r.store.Replace(msg.Blocks); err != nil {
			r.metrics.ChainsRejected.Add(1)
			return fmt.Errorf("received chain not adopted: %w", err)
		}
		r.metrics.ChainReplacements.Add(1)
		r.metrics.Height.Set(float64(r.store.Height()))
		logger.Info("replaced chain with received chain", "size", len(msg.Blocks))
	}

	return nil
}

// ProduceBlock builds the block that would extend the local chain, without
// adding it.
func (r *Reactor) ProduceBlock(data string) types.Block {
	return r.store.Mine(data)
}

// MineBlock builds a block carrying data, appends it to the local chain and
// announces it to every peer.
func (r *Reactor) MineBlock(ctx context.Context, data string) (types.Block, error) {
	block := r.ProduceBlock(data)
	if err := r.store.Append(block); err != nil {
		// the tip moved underneath us
		return types.Block{}, fmt.Errorf("failed to append mined block: %w", err)
	}
	r.metrics.BlocksAppended.Add(1)
	r.metrics.Height.Set(float64(block.Index))
	r.logger.Info("mined block", "block", block)

	r.broadcast(ctx, r.latestResponse())
	return block, nil
}

func (r *Reactor) latestResponse() *ChainResponse {
	return &ChainResponse{Blocks: []types.Block{r.store.Latest()}}
}

func (r *Reactor) blockRejected(err error) {
	reason := "unknown"
	if rr, ok := types.RejectReasonOf(err); ok {
		reason = rr.String()
	}
	r.metrics.BlocksRejected.With("reason", reason).Add(1)
}

func (r *Reactor) send(ctx context.Context, ch p2p.Channel, msg Message) error {
	bz, err := Encode(msg)
	if err != nil {
		return err
	}
	return r.peers.Unicast(ctx, ch, bz)
}

func (r *Reactor) broadcast(ctx context.Context, msg Message) {
	bz, err := Encode(msg)
	if err != nil {
		r.logger.Error("failed to encode broadcast", "kind", msg.Kind(), "err", err)
		return
	}
	r.peers.Broadcast(ctx, bz)
}

// IsDecodeError reports whether err was caused by a malformed payload.
func IsDecodeError(err error) bool {
	var derr *DecodeError
	return errors.As(err, &derr)
}
