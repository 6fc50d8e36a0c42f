package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"corral/internal/config"
	"corral/internal/conflict"
	"corral/internal/daemon"
	"corral/internal/logging"
	"corral/internal/monitor"
	"corral/internal/notifications"
	"corral/internal/queue"
	"corral/internal/remote"
	"corral/internal/syncer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	client := remote.New(cfg)
	notifier := notifications.NewService(cfg)
	detector := conflict.NewDetector(store, client, logger)
	s := syncer.New(store, client, detector, notifier, cfg, logger)
	m := monitor.New(store, cfg, logger)

	d, err := daemon.New(cfg, store, s, m, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("corrald shutting down")
}
