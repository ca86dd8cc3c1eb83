package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/memojournal/internal/buildinfo"
	"github.com/dmitrijs2005/memojournal/internal/server"
	"github.com/dmitrijs2005/memojournal/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := server.NewApp(cfg)

	if cfg.IssueFor != "" {
		if err := app.IssueToken(os.Stdout, cfg.IssueFor); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
