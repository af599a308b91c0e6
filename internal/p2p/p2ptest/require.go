package p2ptest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireEmpty requires that nothing was sent on the given channels.
func RequireEmpty(t *testing.T, channels ...*MemoryChannel) {
	t.Helper()

	for _, channel := range channels {
		select {
		case bz := <-channel.Out:
			require.Fail(t, "unexpected message", "channel %v should be empty, got %s", channel, bz)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// RequireSent requires that a message was sent on the channel and returns
// it.
func RequireSent(t *testing.T, channel *MemoryChannel) []byte {
	t.Helper()

	timer := time.NewTimer(time.Second) // not time.After due to goroutine leaks
	defer timer.Stop()

	select {
	case bz := <-channel.Out:
		return bz
	case <-timer.C:
		require.Fail(t, "timed out waiting for message", "on channel %v", channel)
		return nil
	}
}
