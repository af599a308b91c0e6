package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/internal/rpc"
)

const remoteFlag = "remote"

func addRemoteFlag(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().String(remoteFlag, conf.RPC.ListenAddress, "address of the node's HTTP API")
}

func newClient(cmd *cobra.Command) (*rpc.Client, error) {
	remote, err := cmd.Flags().GetString(remoteFlag)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(remote), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return err
}

// MakeMineCommand returns the command that mines a block on a running node.
func MakeMineCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine <data>",
		Short: "Mine a block carrying data on a running node",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			block, err := client.MineBlock(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd, block)
		},
	}
	addRemoteFlag(cmd, conf)
	return cmd
}

// MakeAddPeerCommand returns the command that connects a running node to
// a peer.
func MakeAddPeerCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-peer <address>",
		Short: "Connect a running node to the peer at address (ws://host:port)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			peer, err := client.AddPeer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, peer)
		},
	}
	addRemoteFlag(cmd, conf)
	return cmd
}

// MakeBlocksCommand returns the command that prints a running node's chain.
func MakeBlocksCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Print the chain of a running node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			blocks, err := client.Blocks(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, blocks)
		},
	}
	addRemoteFlag(cmd, conf)
	return cmd
}

// MakeStatusCommand returns the command that prints a running node's
// status.
func MakeStatusCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of a running node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	}
	addRemoteFlag(cmd, conf)
	return cmd
}
