package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/crypto"
	"github.com/tendermint/naivechain/internal/gossip"
	"github.com/tendermint/naivechain/internal/p2p"
	"github.com/tendermint/naivechain/internal/rpc"
	"github.com/tendermint/naivechain/internal/store"
	"github.com/tendermint/naivechain/libs/log"
	"github.com/tendermint/naivechain/libs/service"
)

// Node is a naivechain node: an in-memory chain, the gossip reactor keeping
// it in sync with peers, the websocket transport carrying them and the HTTP
// control API.
type Node struct {
	service.BaseService
	logger log.Logger

	config *config.Config

	chainStore *store.ChainStore
	peers      *p2p.PeerRegistry
	reactor    *gossip.Reactor
	transport  *p2p.Transport
	rpcEnv     *rpc.Environment

	rpcListener   net.Listener
	rpcCancel     context.CancelFunc
	prometheusSrv *http.Server
}

// MetricsProvider returns the metrics of every component.
type MetricsProvider func(moniker string) (*p2p.Metrics, *gossip.Metrics)

// DefaultMetricsProvider returns Metrics build using Prometheus client library
// if Prometheus is enabled. Otherwise, it returns no-op Metrics.
func DefaultMetricsProvider(cfg *config.InstrumentationConfig) MetricsProvider {
	return func(moniker string) (*p2p.Metrics, *gossip.Metrics) {
		if cfg.Prometheus {
			return p2p.PrometheusMetrics(cfg.Namespace, "moniker", moniker),
				gossip.PrometheusMetrics(cfg.Namespace, "moniker", moniker)
		}
		return p2p.NopMetrics(), gossip.NopMetrics()
	}
}

// NewDefault constructs a node from conf, registering Prometheus metrics
// when instrumentation is enabled. It satisfies config.ServiceProvider.
func NewDefault(_ context.Context, conf *config.Config, logger log.Logger) (service.Service, error) {
	return New(conf, logger)
}

// New builds a node from conf using the default metrics provider.
func New(conf *config.Config, logger log.Logger) (*Node, error) {
	return NewWithMetrics(conf, logger, DefaultMetricsProvider(conf.Instrumentation))
}

// NewWithMetrics builds a node reporting to the metrics returned by
// metricsProvider.
func NewWithMetrics(conf *config.Config, logger log.Logger, metricsProvider MetricsProvider) (*Node, error) {
	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	hasher, err := crypto.HasherByName(conf.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	p2pMetrics, gossipMetrics := metricsProvider(conf.Moniker)

	chainStore := store.NewChainStore(hasher)
	peers := p2p.NewPeerRegistry(logger.With("module", "p2p"), p2pMetrics)
	reactor := gossip.NewReactor(logger.With("module", "gossip"), chainStore, peers, gossipMetrics)
	transport := p2p.NewTransport(logger.With("module", "p2p"), reactor, p2pMetrics, transportOptions(conf.P2P))

	n := &Node{
		logger:     logger,
		config:     conf,
		chainStore: chainStore,
		peers:      peers,
		reactor:    reactor,
		transport:  transport,
	}
	n.rpcEnv = &rpc.Environment{
		Config:     conf,
		ChainStore: chainStore,
		Reactor:    reactor,
		Peers:      peers,
		Dialer:     transport,
		Logger:     logger.With("module", "rpc"),
	}
	n.BaseService = *service.NewBaseService(logger, "Node", n)

	return n, nil
}

func transportOptions(cfg *config.P2PConfig) p2p.TransportOptions {
	opts := p2p.DefaultTransportOptions()
	opts.MaxConnections = cfg.MaxConnections
	opts.SendQueueSize = cfg.SendQueueSize
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PingInterval = cfg.PingInterval
	opts.HandshakeTimeout = cfg.HandshakeTimeout
	return opts
}

// OnStart starts the p2p listener, the HTTP API and, if enabled, the
// Prometheus server, then dials the persistent peers.
func (n *Node) OnStart(ctx context.Context) error {
	if err := n.transport.Listen(n.config.P2P.ListenAddress); err != nil {
		return err
	}

	rpcCtx, cancel := context.WithCancel(context.Background())
	listener, err := n.rpcEnv.StartService(rpcCtx)
	if err != nil {
		cancel()
		_ = n.transport.Close()
		return err
	}
	n.rpcListener = listener
	n.rpcCancel = cancel

	if n.config.Instrumentation.Prometheus && n.config.Instrumentation.PrometheusListenAddr != "" {
		n.prometheusSrv = n.startPrometheusServer(n.config.Instrumentation.PrometheusListenAddr)
	}

	n.dialPeers(ctx, n.config.P2P.PersistentPeerList())

	n.logger.Info("started node",
		"moniker", n.config.Moniker,
		"p2p", n.transport.Addr(),
		"rpc", listener.Addr(),
		"height", n.chainStore.Height())
	return nil
}

// dialPeers connects to every address concurrently. Failures are logged;
// there is no retry.
func (n *Node) dialPeers(ctx context.Context, addrs []string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(gctx, n.config.P2P.HandshakeTimeout)
			defer cancel()

			if _, err := n.transport.Dial(dctx, addr); err != nil {
				n.logger.Error("failed to dial persistent peer", "addr", addr, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// OnStop stops the servers and closes every peer channel.
func (n *Node) OnStop() {
	n.logger.Info("stopping node")

	if n.rpcCancel != nil {
		n.rpcCancel()
	}

	if n.prometheusSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := n.prometheusSrv.Shutdown(ctx); err != nil {
			// Error from closing listeners, or context timeout:
			n.logger.Error("prometheus HTTP server Shutdown", "err", err)
		}
	}

	if err := n.transport.Close(); err != nil && !errors.Is(err, p2p.ErrTransportClosed) {
		n.logger.Error("error closing transport", "err", err)
	}
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func (n *Node) startPrometheusServer(addr string) *http.Server {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: n.config.Instrumentation.MaxOpenConnections},
			),
		),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			n.logger.Error("prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}

// Dial connects to the peer at address.
func (n *Node) Dial(ctx context.Context, address string) (p2p.Channel, error) {
	return n.transport.Dial(ctx, address)
}

// ChainStore returns the node's chain.
func (n *Node) ChainStore() *store.ChainStore { return n.chainStore }

// Reactor returns the gossip reactor.
func (n *Node) Reactor() *gossip.Reactor { return n.reactor }

// Peers returns the registry of connected peers.
func (n *Node) Peers() *p2p.PeerRegistry { return n.peers }

// P2PAddr returns the address peers connect to, once started.
func (n *Node) P2PAddr() net.Addr { return n.transport.Addr() }

// RPCAddr returns the address of the HTTP API, once started.
func (n *Node) RPCAddr() net.Addr {
	if n.rpcListener == nil {
		return nil
	}
	return n.rpcListener.Addr()
}
