package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendermint/naivechain/cmd/naivechain/commands"
	"github.com/tendermint/naivechain/config"
	"github.com/tendermint/naivechain/libs/cli"
	"github.com/tendermint/naivechain/libs/log"
	"github.com/tendermint/naivechain/node"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	conf, err := commands.ParseConfig(config.DefaultConfig())
	if err != nil {
		panic(err)
	}

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitFilesCommand(conf, logger),
		commands.MakeMineCommand(conf),
		commands.MakeAddPeerCommand(conf),
		commands.MakeBlocksCommand(conf),
		commands.MakeStatusCommand(conf),
		commands.MakeVersionCommand(),
		commands.NewRunNodeCmd(node.NewDefault, conf, logger),
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(2)
	}
}
