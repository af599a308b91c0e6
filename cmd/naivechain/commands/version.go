package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/naivechain/version"
)

const versionCmdName = "version"

// MakeVersionCommand returns the command that prints the version.
func MakeVersionCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   versionCmdName,
		Short: "Show version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return err
			}

			values, err := json.MarshalIndent(struct {
				Naivechain  string `json:"naivechain"`
				P2PProtocol uint64 `json:"p2p_protocol"`
			}{
				Naivechain:  version.Version,
				P2PProtocol: uint64(version.P2PProtocol),
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(values))
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol version")
	return cmd
}
