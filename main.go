package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/mickamy/ormtour/internal/cli"
	"github.com/mickamy/ormtour/internal/config"
	"github.com/mickamy/ormtour/internal/logger"
)

var version = "dev"

func main() {
	if err := logger.InitLogger(&config.Default().Logger); err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		l, _ := logger.GetLogger()
		l.Error("ormtour failed", "error", err)
		os.Exit(1)
	}
}
