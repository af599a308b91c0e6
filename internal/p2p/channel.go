package p2p

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrChannelClosed is returned when sending on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// ChannelID identifies a single peer connection for its lifetime.
type ChannelID string

// NewChannelID returns a random ChannelID.
func NewChannelID() ChannelID {
	return ChannelID(uuid.NewString())
}

// Channel is a bidirectional message channel to one peer.
type Channel interface {
	// ID is unique per connection; reconnecting to the same address yields a
	// new ID.
	ID() ChannelID

	// RemoteAddr returns the peer's network address, for display.
	RemoteAddr() string

	// Send queues bz for delivery, blocking while the send queue is full.
	// Returns ErrChannelClosed once the channel is closed.
	Send(ctx context.Context, bz []byte) error

	// Close closes the channel. It is safe to call more than once.
	Close() error

	// Stringer is used to display the channel, e.g. in logs.
	fmt.Stringer
}

// Handler receives the lifecycle events of every channel a Transport
// establishes. Events for one channel are delivered from a single goroutine,
// in order: opened, then every inbound message, then closed.
type Handler interface {
	OnConnectionOpened(ctx context.Context, ch Channel)
	Receive(ctx context.Context, ch Channel, bz []byte) error
	OnConnectionClosed(ch Channel)
}
