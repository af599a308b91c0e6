package commands

import (
	"github.com/spf13/cobra"

	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/libs/log"
)

// MakeInitFilesCommand returns the command that writes the effective
// configuration to the config file in the home directory.
func MakeInitFilesCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the configuration file to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			logger.Info("wrote config file", "path", conf.ConfigFile())
			return nil
		},
	}

	AddNodeFlags(cmd, conf)
	return cmd
}
