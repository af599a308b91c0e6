package p2ptest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tendermint/naivechain/internal/p2p"
)

// ErrSendFailed is returned by a MemoryChannel configured to fail.
var ErrSendFailed = errors.New("send failed")

// MemoryChannel is an in-process p2p.Channel recording everything sent on
// it to Out.
type MemoryChannel struct {
	Out chan []byte

	id     p2p.ChannelID
	remote string

	mtx    sync.Mutex
	fail   bool
	closed bool
}

var _ p2p.Channel = (*MemoryChannel)(nil)

// NewMemoryChannel returns an open channel buffering up to 128 messages.
func NewMemoryChannel(remote string) *MemoryChannel {
	return &MemoryChannel{
		Out:    make(chan []byte, 128),
		id:     p2p.NewChannelID(),
		remote: remote,
	}
}

// FailSends makes every later Send fail with ErrSendFailed.
func (c *MemoryChannel) FailSends() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.fail = true
}

// IsClosed reports whether Close was called.
func (c *MemoryChannel) IsClosed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.closed
}

func (c *MemoryChannel) ID() p2p.ChannelID  { return c.id }
func (c *MemoryChannel) RemoteAddr() string { return c.remote }
func (c *MemoryChannel) String() string     { return fmt.Sprintf("%s@%s", c.id, c.remote) }

func (c *MemoryChannel) Send(ctx context.Context, bz []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	switch {
	case c.closed:
		return p2p.ErrChannelClosed
	case c.fail:
		return ErrSendFailed
	}

	select {
	case c.Out <- bz:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("memory channel %s is full", c.id)
	}
}

func (c *MemoryChannel) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.closed = true
	return nil
}
