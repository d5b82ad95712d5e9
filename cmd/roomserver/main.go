// Command roomserver is the reference deployment for the room host: it
// loads game definitions from disk, accepts websocket connections, and
// binds each one to a room by id, relaying client messages in as events
// and room broadcasts back out.
//
// Grounded on wfunc/gameserver's cmd/server entrypoint shape: viper config
// load, zap logger construction, then http.ListenAndServe with signal-
// driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/comalice/roomforge/internal/config"
	"github.com/comalice/roomforge/room"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		panic("roomserver: loading config: " + err.Error())
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		panic("roomserver: building logger: " + err.Error())
	}
	defer logger.Sync()

	defs, err := loadDefinitionRegistry(cfg.Definitions.Dir)
	if err != nil {
		logger.Fatal("roomserver: loading definitions", zap.Error(err))
	}

	manager := room.NewManager(logger)
	srv := newServer(manager, defs, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWebSocket)
	mux.HandleFunc("/healthz", srv.handleHealth)

	httpServer := &http.Server{Addr: cfg.Server.HTTPAddress, Handler: mux}

	go func() {
		logger.Info("roomserver: listening", zap.String("addr", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("roomserver: serve", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("roomserver: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("roomserver: shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}
