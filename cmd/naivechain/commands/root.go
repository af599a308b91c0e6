package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/libs/cli"
	"github.com/tendermint/naivechain/libs/log"
)

const (
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
)

// ParseConfig retrieves the default environment configuration,
// sets up the naivechain root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point for naivechain.
func RootCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "naivechain",
		Short: "A minimal peer-to-peer ledger of hash-linked blocks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == versionCmdName {
				return nil
			}

			if err := cli.BindFlagsLoadViper(cmd, args); err != nil {
				return err
			}
			// the global flags are dashed, the config keys are not
			if err := viper.BindPFlag("log_level", cmd.Flags().Lookup(logLevelFlag)); err != nil {
				return err
			}
			if err := viper.BindPFlag("log_format", cmd.Flags().Lookup(logFormatFlag)); err != nil {
				return err
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			if err := config.EnsureRoot(conf.RootDir); err != nil {
				return err
			}
			return log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel)
		},
	}
	cmd.PersistentFlags().StringP(cli.HomeFlag, "", os.ExpandEnv(filepath.Join("$HOME", config.DefaultNaivechainDir)), "directory for config and data")
	cmd.PersistentFlags().Bool(cli.TraceFlag, false, "print out full stack trace on errors")
	cmd.PersistentFlags().String(logLevelFlag, conf.LogLevel, "log level")
	cmd.PersistentFlags().String(logFormatFlag, conf.LogFormat, "log format (plain|json)")
	cobra.OnInitialize(func() { cli.InitEnv("NC") })
	return cmd
}
