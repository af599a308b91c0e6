package rpc

import (
	"context"
	"net"
	"net/http"

	"github.com/rs/cors"

	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/internal/gossip"
	"github.com/tendermint/naivechain/internal/p2p"
	"github.com/tendermint/naivechain/internal/store"
	"github.com/tendermint/naivechain/libs/log"
	"github.com/tendermint/naivechain/version"
)

// PeerDialer opens an outbound peer channel.
type PeerDialer interface {
	Dial(ctx context.Context, address string) (p2p.Channel, error)
}

// Environment contains the objects the HTTP handlers read and act upon.
type Environment struct {
	Config     *config.Config
	ChainStore *store.ChainStore
	Reactor    *gossip.Reactor
	Peers      *p2p.PeerRegistry
	Dialer     PeerDialer
	Logger     log.Logger
}

// Handler returns the HTTP handler serving every route, wrapped in the CORS
// middleware when cross-origin requests are enabled.
func (env *Environment) Handler() http.Handler {
	mux := http.NewServeMux()
	for path, route := range env.routes() {
		mux.Handle(path, route)
	}

	var rootHandler http.Handler = mux
	if env.Config.RPC.IsCorsEnabled() {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: env.Config.RPC.CORSAllowedOrigins,
			AllowedMethods: env.Config.RPC.CORSAllowedMethods,
			AllowedHeaders: env.Config.RPC.CORSAllowedHeaders,
		})
		rootHandler = corsMiddleware.Handler(mux)
	}
	return rootHandler
}

// StartService listens on the configured address and serves the API until
// ctx is done. It returns the listener so callers can learn the bound
// address.
func (env *Environment) StartService(ctx context.Context) (net.Listener, error) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = env.Config.RPC.MaxBodyBytes

	listener, err := Listen(env.Config.RPC.ListenAddress, cfg.MaxOpenConnections)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := Serve(ctx, listener, env.Handler(), env.Logger, cfg); err != nil {
			env.Logger.Error("error serving server", "err", err)
		}
	}()

	return listener, nil
}

// Status summarizes the node.
func (env *Environment) Status() *ResultStatus {
	latest := env.ChainStore.Latest()
	return &ResultStatus{
		Moniker:         env.Config.Moniker,
		Version:         version.Version,
		P2PProtocol:     uint64(version.P2PProtocol),
		HashAlgorithm:   env.Config.HashAlgorithm,
		LatestHeight:    latest.Index,
		LatestBlockHash: latest.Hash,
		LatestBlockTime: latest.Timestamp,
		Peers:           env.Peers.Size(),
	}
}
