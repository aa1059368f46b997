// Command acesupd serves Aces Up and Strip Jack Naked tables over websockets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/service/internal/auth"
	"github.com/jason-s-yu/acesup/service/internal/cache"
	"github.com/jason-s-yu/acesup/service/internal/config"
	"github.com/jason-s-yu/acesup/service/internal/database"
	"github.com/jason-s-yu/acesup/service/internal/game"
	"github.com/jason-s-yu/acesup/service/internal/server"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("acesupd: %v", err)
	}
	log := cfg.Logger()
	if !log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalf("acesupd: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	if cfg.TokenSecret == config.DevTokenSecret {
		log.Warn("ACESUP_TOKEN_SECRET is unset; using the development secret.")
	}
	tokens, err := auth.NewIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	regOpts := server.RegistryOptions{
		Factories: server.Factories(
			game.AcesUpOptions{Rules: cfg.Rules(), Dwell: cfg.AcesUpDwell(), NoticeTTL: cfg.NoticeTTL()},
			game.StripJackOptions{Dwell: cfg.StripJackDwell(), NoticeTTL: cfg.NoticeTTL()},
		),
		IdleTimeout: cfg.TableIdle,
		MaxTables:   cfg.MaxTables,
		Log:         log,
	}
	srvOpts := server.Options{
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	}

	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		h := cache.NewHistorian(rdb)
		regOpts.Historian = h
		srvOpts.History = h
		log.Info("Action historian enabled.")
	} else {
		log.Info("REDIS_URL is unset; action history disabled.")
	}

	if cfg.DatabaseURL != "" {
		store, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warnf("Closing results store: %v", err)
			}
		}()
		regOpts.Results = store
		srvOpts.Results = store
		log.Info("Results store enabled.")
	} else {
		log.Info("DATABASE_URL is unset; results disabled.")
	}

	tables := server.NewRegistry(regOpts)
	defer tables.Close()
	srvOpts.Tables = tables

	return server.New(srvOpts).Run(ctx, cfg.HTTPAddr)
}
