package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mcpforge/internal/buildinfo"
	"github.com/dmitrijs2005/mcpforge/internal/client/cli"
	"github.com/dmitrijs2005/mcpforge/internal/client/config"
	"github.com/dmitrijs2005/mcpforge/internal/flagx"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
)

func main() {

	args := flagx.Positional(os.Args[1:], config.FlagsWithValues)
	if len(args) == 0 {
		buildinfo.PrintBuildData(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx, args)

}
