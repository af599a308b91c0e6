package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/netutil"

	"github.com/tendermint/naivechain/libs/log"
)

const (
	directionInbound  = "inbound"
	directionOutbound = "outbound"

	// the read deadline is renewed on every pong; allow a missed ping
	pongWaitFactor = 2
)

// TransportOptions tunes connection handling.
type TransportOptions struct {
	// MaxConnections limits concurrently accepted inbound connections. 0
	// means unlimited.
	MaxConnections int

	// SendQueueSize is the number of outbound messages buffered per
	// connection before Send blocks.
	SendQueueSize int

	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration

	// PingInterval is how often keepalive pings are sent. 0 disables pings
	// and read deadlines.
	PingInterval time.Duration

	// HandshakeTimeout bounds the websocket upgrade in both directions.
	HandshakeTimeout time.Duration

	// MaxMessageSize is the largest inbound message accepted.
	MaxMessageSize int64
}

// DefaultTransportOptions returns the options used when none are configured.
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		MaxConnections:   64,
		SendQueueSize:    64,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxMessageSize:   32 << 20,
	}
}

// Transport carries peer channels over WebSocket connections. It both
// listens for inbound peers and dials outbound ones; the two are treated
// identically once established.
type Transport struct {
	logger  log.Logger
	handler Handler
	metrics *Metrics
	opts    TransportOptions

	upgrader websocket.Upgrader
	dialer   *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mtx      sync.Mutex
	closed   bool
	listener net.Listener
	server   *http.Server
	channels map[ChannelID]*wsChannel
}

// NewTransport creates a transport that reports channel events to handler.
func NewTransport(logger log.Logger, handler Handler, metrics *Metrics, opts TransportOptions) *Transport {
	if metrics == nil {
		metrics = NopMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		logger:  logger,
		handler: handler,
		metrics: metrics,
		opts:    opts,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: opts.HandshakeTimeout,
			CheckOrigin: func(r *http.Request) bool {
				// peers are not browsers
				return true
			},
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		ctx:      ctx,
		cancel:   cancel,
		channels: make(map[ChannelID]*wsChannel),
	}
}

// String implements fmt.Stringer.
func (t *Transport) String() string {
	return "websocket"
}

// Listen starts accepting inbound peers on addr (host:port).
func (t *Transport) Listen(addr string) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.listener != nil {
		return fmt.Errorf("transport already listening on %v", t.listener.Addr())
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if t.opts.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, t.opts.MaxConnections)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleUpgrade)

	t.listener = listener
	t.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: t.opts.HandshakeTimeout,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("p2p listener stopped", "addr", listener.Addr(), "err", err)
		}
	}()

	t.logger.Info("listening for peers", "addr", listener.Addr())
	return nil
}

// Addr returns the listening address, or nil when not listening.
func (t *Transport) Addr() net.Addr {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Dial connects to a peer. address is a ws:// URL or a bare host:port. The
// returned channel is already running; the handler sees it opened before
// any message from it is delivered.
func (t *Transport) Dial(ctx context.Context, address string) (Channel, error) {
	url := NormalizeAddress(address)

	conn, resp, err := t.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	ch := t.newChannel(conn)
	if err := t.start(ch, directionOutbound); err != nil {
		return nil, err
	}

	go t.run(ch)
	return ch, nil
}

// Close stops listening, closes every channel and waits for their
// goroutines to exit.
func (t *Transport) Close() error {
	t.mtx.Lock()
	if t.closed {
		t.mtx.Unlock()
		return ErrTransportClosed
	}
	t.closed = true

	var err error
	if t.server != nil {
		err = t.server.Close()
	}
	channels := make([]*wsChannel, 0, len(t.channels))
	for _, ch := range t.channels {
		channels = append(channels, ch)
	}
	t.mtx.Unlock()

	t.cancel()
	for _, ch := range channels {
		_ = ch.Close()
	}
	t.wg.Wait()

	return err
}

// ErrTransportClosed is returned when using a closed transport.
var ErrTransportClosed = errors.New("transport closed")

func (t *Transport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		t.logger.Debug("failed to upgrade peer connection", "remote", r.RemoteAddr, "err", err)
		return
	}

	ch := t.newChannel(conn)
	if err := t.start(ch, directionInbound); err != nil {
		return
	}

	// the hijacked connection is ours until run returns
	t.run(ch)
}

func (t *Transport) newChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{
		id:      NewChannelID(),
		conn:    conn,
		remote:  conn.RemoteAddr().String(),
		sendCh:  make(chan []byte, t.opts.SendQueueSize),
		doneCh:  make(chan struct{}),
		opts:    t.opts,
		logger:  t.logger,
		metrics: t.metrics,
	}
}

// start tracks ch and launches its writer. It fails when the transport is
// closing, in which case ch is closed.
func (t *Transport) start(ch *wsChannel, direction string) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.closed {
		_ = ch.Close()
		return ErrTransportClosed
	}
	t.channels[ch.id] = ch
	t.wg.Add(2)

	t.metrics.Connections.With("direction", direction).Add(1)
	t.logger.Info("peer connected", "peer", ch.id, "addr", ch.remote, "direction", direction)

	go func() {
		defer t.wg.Done()
		ch.writeRoutine()
	}()
	return nil
}

// run delivers the channel's lifecycle to the handler and blocks until the
// connection is gone.
func (t *Transport) run(ch *wsChannel) {
	defer t.wg.Done()

	t.handler.OnConnectionOpened(t.ctx, ch)
	ch.readRoutine(t.ctx, t.handler)
	_ = ch.Close()

	t.mtx.Lock()
	delete(t.channels, ch.id)
	t.mtx.Unlock()

	t.logger.Info("peer disconnected", "peer", ch.id, "addr", ch.remote)
	t.handler.OnConnectionClosed(ch)
}

// NormalizeAddress turns a bare host:port into a ws:// URL.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if strings.Contains(address, "://") {
		return address
	}
	return "ws://" + address
}

// wsChannel is a Channel over one websocket connection. A dedicated writer
// goroutine owns all data frames; reads happen on the goroutine running
// readRoutine.
type wsChannel struct {
	id      ChannelID
	conn    *websocket.Conn
	remote  string
	sendCh  chan []byte
	opts    TransportOptions
	logger  log.Logger
	metrics *Metrics

	closeOnce sync.Once
	doneCh    chan struct{}
	closeErr  error
}

var _ Channel = (*wsChannel)(nil)

func (c *wsChannel) ID() ChannelID      { return c.id }
func (c *wsChannel) RemoteAddr() string { return c.remote }
func (c *wsChannel) String() string     { return fmt.Sprintf("%s@%s", c.id, c.remote) }

func (c *wsChannel) Send(ctx context.Context, bz []byte) error {
	select {
	case <-c.doneCh:
		return ErrChannelClosed
	default:
	}

	select {
	case c.sendCh <- bz:
		return nil
	case <-c.doneCh:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.doneCh)

		deadline := time.Now().Add(c.opts.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsChannel) writeRoutine() {
	var pingCh <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		pingCh = ticker.C
	}

	for {
		select {
		case <-c.doneCh:
			return

		case bz := <-c.sendCh:
			if err := c.write(websocket.TextMessage, bz); err != nil {
				c.logger.Error("failed to write to peer", "peer", c.id, "err", err)
				_ = c.Close()
				return
			}

		case <-pingCh:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("failed to ping peer", "peer", c.id, "err", err)
				_ = c.Close()
				return
			}
		}
	}
}

func (c *wsChannel) write(messageType int, bz []byte) error {
	if c.opts.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(messageType, bz)
}

// readRoutine hands every inbound message to the handler, in order, until
// the connection fails. A message the handler rejects does not end the
// connection.
func (c *wsChannel) readRoutine(ctx context.Context, handler Handler) {
	if c.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	if c.opts.PingInterval > 0 {
		pongWait := pongWaitFactor * c.opts.PingInterval
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		messageType, bz, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-c.doneCh:
				default:
					c.logger.Debug("failed to read from peer", "peer", c.id, "err", err)
				}
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		c.metrics.BytesReceived.Add(float64(len(bz)))
		if err := handler.Receive(ctx, c, bz); err != nil {
			c.logger.Debug("failed to process message", "peer", c.id, "err", err)
		}
	}
}
