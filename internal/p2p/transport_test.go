package p2p_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/naivechain/internal/p2p"
	"github.com/tendermint/naivechain/libs/log"
)

type received struct {
	ch p2p.Channel
	bz []byte
}

// recordingHandler forwards every channel event to Go channels.
type recordingHandler struct {
	opened   chan p2p.Channel
	received chan received
	closed   chan p2p.Channel
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		opened:   make(chan p2p.Channel, 8),
		received: make(chan received, 8),
		closed:   make(chan p2p.Channel, 8),
	}
}

func (h *recordingHandler) OnConnectionOpened(_ context.Context, ch p2p.Channel) { h.opened <- ch }
func (h *recordingHandler) OnConnectionClosed(ch p2p.Channel)                    { h.closed <- ch }

func (h *recordingHandler) Receive(_ context.Context, ch p2p.Channel, bz []byte) error {
	h.received <- received{ch: ch, bz: bz}
	if string(bz) == "bad" {
		return errors.New("bad message")
	}
	return nil
}

func waitChannel(t *testing.T, c <-chan p2p.Channel) p2p.Channel {
	t.Helper()
	select {
	case ch := <-c:
		return ch
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for channel event")
	}
	return nil
}

func waitReceived(t *testing.T, c <-chan received) received {
	t.Helper()
	select {
	case msg := <-c:
		return msg
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for message")
	}
	return received{}
}

func testOptions() p2p.TransportOptions {
	opts := p2p.DefaultTransportOptions()
	opts.PingInterval = 50 * time.Millisecond
	opts.WriteTimeout = time.Second
	return opts
}

func TestTransportExchange(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.TestingLogger()

	serverHandler := newRecordingHandler()
	server := p2p.NewTransport(logger, serverHandler, nil, testOptions())
	require.NoError(t, server.Listen("127.0.0.1:0"))
	require.Error(t, server.Listen("127.0.0.1:0"), "listening twice must fail")

	clientHandler := newRecordingHandler()
	client := p2p.NewTransport(logger, clientHandler, nil, testOptions())

	out, err := client.Dial(ctx, server.Addr().String())
	require.NoError(t, err)
	require.Equal(t, out.ID(), waitChannel(t, clientHandler.opened).ID())
	in := waitChannel(t, serverHandler.opened)

	require.NoError(t, out.Send(ctx, []byte("hello")))
	msg := waitReceived(t, serverHandler.received)
	require.Equal(t, in.ID(), msg.ch.ID())
	require.Equal(t, "hello", string(msg.bz))

	// a rejected message leaves the connection usable
	require.NoError(t, out.Send(ctx, []byte("bad")))
	require.NoError(t, out.Send(ctx, []byte("after")))
	require.Equal(t, "bad", string(waitReceived(t, serverHandler.received).bz))
	require.Equal(t, "after", string(waitReceived(t, serverHandler.received).bz))

	require.NoError(t, in.Send(ctx, []byte("world")))
	require.Equal(t, "world", string(waitReceived(t, clientHandler.received).bz))

	// survive a few keepalive rounds
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, in.Send(ctx, []byte("still here")))
	require.Equal(t, "still here", string(waitReceived(t, clientHandler.received).bz))

	require.NoError(t, out.Close())
	require.Equal(t, in.ID(), waitChannel(t, serverHandler.closed).ID())
	require.Equal(t, out.ID(), waitChannel(t, clientHandler.closed).ID())
	require.ErrorIs(t, out.Send(ctx, []byte("late")), p2p.ErrChannelClosed)

	require.NoError(t, client.Close())
	require.NoError(t, server.Close())
	require.ErrorIs(t, server.Close(), p2p.ErrTransportClosed)
}

func TestTransportCloseDisconnectsPeers(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.TestingLogger()

	serverHandler := newRecordingHandler()
	server := p2p.NewTransport(logger, serverHandler, nil, testOptions())
	require.NoError(t, server.Listen("127.0.0.1:0"))

	clientHandler := newRecordingHandler()
	client := p2p.NewTransport(logger, clientHandler, nil, testOptions())

	_, err := client.Dial(ctx, "ws://"+server.Addr().String())
	require.NoError(t, err)
	waitChannel(t, serverHandler.opened)
	waitChannel(t, clientHandler.opened)

	require.NoError(t, server.Close())
	waitChannel(t, serverHandler.closed)
	waitChannel(t, clientHandler.closed)

	_, err = server.Dial(ctx, "127.0.0.1:1")
	require.Error(t, err)

	require.NoError(t, client.Close())
}

func TestTransportDialFailure(t *testing.T) {
	client := p2p.NewTransport(log.TestingLogger(), newRecordingHandler(), nil, testOptions())
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Dial(ctx, "127.0.0.1:1")
	require.Error(t, err)
}

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, "ws://localhost:6001", p2p.NormalizeAddress("localhost:6001"))
	require.Equal(t, "ws://localhost:6001", p2p.NormalizeAddress(" ws://localhost:6001 "))
	require.Equal(t, "wss://example.com/p2p", p2p.NormalizeAddress("wss://example.com/p2p"))
}
