package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/feedkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/feedkeeper/internal/client/cli"
	"github.com/dmitrijs2005/feedkeeper/internal/client/config"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	logger, closer := logging.NewFileLogger(logging.FileOptions{
		Path:  cfg.LogFile,
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
