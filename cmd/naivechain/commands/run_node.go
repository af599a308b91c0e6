package commands

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/libs/log"
)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a naivechain node
func AddNodeFlags(cmd *cobra.Command, conf *config.Config) {
	// bind flags
	cmd.Flags().String("moniker", conf.Moniker, "node name")
	cmd.Flags().String("hash_algorithm", conf.HashAlgorithm, "block hash algorithm: sha256 | keccak256")

	// rpc flags
	cmd.Flags().String("rpc.laddr", conf.RPC.ListenAddress, "HTTP API listen address. Port required")

	// p2p flags
	cmd.Flags().String(
		"p2p.laddr",
		conf.P2P.ListenAddress,
		"node listen address. (0.0.0.0:0 means any interface, any port)")
	cmd.Flags().String("p2p.persistent_peers", conf.P2P.PersistentPeers, "comma-delimited ws://host:port peers")
	cmd.Flags().Int("p2p.max_connections", conf.P2P.MaxConnections, "maximum number of inbound peers")

	// instrumentation flags
	cmd.Flags().Bool("instrumentation.prometheus", conf.Instrumentation.Prometheus, "serve Prometheus metrics")
	cmd.Flags().String(
		"instrumentation.prometheus_listen_addr",
		conf.Instrumentation.PrometheusListenAddr,
		"Prometheus listen address")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
func NewRunNodeCmd(nodeProvider config.ServiceProvider, conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the naivechain node",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			n, err := nodeProvider(ctx, conf, logger)
			if err != nil {
				return errors.Wrap(err, "failed to create node")
			}

			if err := n.Start(ctx); err != nil {
				return errors.Wrap(err, "failed to start node")
			}

			logger.Info("started node", "node", n.String())

			// run until the context is canceled (SIGTERM or CTRL-C)
			<-ctx.Done()
			n.Wait()
			return nil
		},
	}

	AddNodeFlags(cmd, conf)
	return cmd
}
