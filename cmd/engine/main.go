package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"marketanalysis/internal/config"
	"marketanalysis/internal/engine"
	"marketanalysis/internal/store"
	"marketanalysis/internal/universe"
)

func main() {
	var configPath = flag.String("config", "", "Path to configuration file (optional, built-in defaults are used otherwise)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := newLogger(cfg.Logging)

	db, err := store.NewSQLite(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer db.Close()

	uni, err := universe.NewSQLiteProvider(db.Conn(), cfg.Universe.DefaultSymbols)
	if err != nil {
		log.WithError(err).Fatal("failed to open symbol universe")
	}

	eng := engine.New(cfg, db, uni, log.WithField("component", "engine"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start engine")
	}
	log.Info("engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received, draining")
	eng.Stop()
	cancel()
	log.Info("engine shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}
