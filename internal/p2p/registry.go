package p2p

import (
	"context"
	"sync"

	"github.com/tendermint/naivechain/libs/log"
)

// PeerRegistry is the set of live peer channels.
//
// Membership changes and broadcasts may race freely. Broadcast takes a
// snapshot of the members and sends outside the lock, so a slow peer never
// blocks Add or Remove.
type PeerRegistry struct {
	logger  log.Logger
	metrics *Metrics

	mtx   sync.RWMutex
	peers map[ChannelID]Channel
}

// NewPeerRegistry returns an empty registry.
func NewPeerRegistry(logger log.Logger, metrics *Metrics) *PeerRegistry {
	if metrics == nil {
		metrics = NopMetrics()
	}

	return &PeerRegistry{
		logger:  logger,
		metrics: metrics,
		peers:   make(map[ChannelID]Channel),
	}
}

// Add registers ch. It returns false if ch was already registered.
func (r *PeerRegistry) Add(ch Channel) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.peers[ch.ID()]; ok {
		return false
	}
	r.peers[ch.ID()] = ch
	r.metrics.Peers.Set(float64(len(r.peers)))

	r.logger.Debug("added peer", "peer", ch.ID(), "addr", ch.RemoteAddr(), "peers", len(r.peers))
	return true
}

// Remove deregisters ch. It returns false if ch was not registered.
func (r *PeerRegistry) Remove(ch Channel) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.peers[ch.ID()]; !ok {
		return false
	}
	delete(r.peers, ch.ID())
	r.metrics.Peers.Set(float64(len(r.peers)))

	r.logger.Debug("removed peer", "peer", ch.ID(), "addr", ch.RemoteAddr(), "peers", len(r.peers))
	return true
}

// Has reports whether a channel with id is registered.
func (r *PeerRegistry) Has(id ChannelID) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	_, ok := r.peers[id]
	return ok
}

// Peers returns a snapshot of the registered channels, in no particular
// order.
func (r *PeerRegistry) Peers() []Channel {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	peers := make([]Channel, 0, len(r.peers))
	for _, ch := range r.peers {
		peers = append(peers, ch)
	}
	return peers
}

// Size returns the number of registered channels.
func (r *PeerRegistry) Size() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return len(r.peers)
}

// Unicast sends bz to ch. The channel need not be registered.
func (r *PeerRegistry) Unicast(ctx context.Context, ch Channel, bz []byte) error {
	if err := ch.Send(ctx, bz); err != nil {
		r.metrics.SendFailures.Add(1)
		return err
	}

	r.metrics.BytesSent.Add(float64(len(bz)))
	return nil
}

// Broadcast sends bz to every registered channel. Delivery is best effort:
// a channel whose send fails is removed and closed, nothing is retried.
func (r *PeerRegistry) Broadcast(ctx context.Context, bz []byte) {
	for _, ch := range r.Peers() {
		if err := r.Unicast(ctx, ch, bz); err != nil {
			r.logger.Error("failed to broadcast to peer; dropping it",
				"peer", ch.ID(), "addr", ch.RemoteAddr(), "err", err)

			r.Remove(ch)
			if cerr := ch.Close(); cerr != nil {
				r.logger.Debug("failed to close peer channel", "peer", ch.ID(), "err", cerr)
			}
		}
	}
}
