// Command ingestor runs the Ingestor process (§2, process I): the
// MTProto userbot that indexes live and historical messages into the
// search engine. Bootstrap sequence follows the teacher's
// cmd/userbot/main.go (flags, config, logging, signal-driven
// shutdown), adapted to the new config.Load/logging.Init APIs and the
// single internal/ingestapp.App entrypoint.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZhiShengYuan/SearchGram/internal/config"
	"github.com/ZhiShengYuan/SearchGram/internal/ingestapp"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("ingestor: load config: %v", err)
	}

	logging.Init(cfg.LogLevel)

	app, err := ingestapp.New(cfg)
	if err != nil {
		logging.Fatalf("ingestor: init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Errorf("ingestor: run: %v", err)
		os.Exit(1)
	}
	logging.Info("ingestor: shutdown complete")
}
