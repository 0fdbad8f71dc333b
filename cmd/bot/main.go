// Command bot runs the Bot process (§2, process B): the bot account
// that serves interactive search commands, renders paginated results,
// and relays files on the ingestor's behalf. Bootstrap sequence
// mirrors cmd/ingestor/main.go.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZhiShengYuan/SearchGram/internal/botapp"
	"github.com/ZhiShengYuan/SearchGram/internal/config"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("bot: load config: %v", err)
	}

	logging.Init(cfg.LogLevel)

	app, err := botapp.New(cfg)
	if err != nil {
		logging.Fatalf("bot: init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Errorf("bot: run: %v", err)
		os.Exit(1)
	}
	logging.Info("bot: shutdown complete")
}
