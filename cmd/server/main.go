// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/handlers"
	"github.com/jason-s-yu/uno/internal/lobby"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if err := auth.Init(cfg.TokenTTL); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Finished rounds go to the historian queue when Redis is configured.
	var sink lobby.RoundSink
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		q := cache.NewRoundQueue(rdb, cfg.QueueName)
		sink = q
		logger.Infof("Publishing finished rounds to Redis list %q", q.Name())
	} else {
		logger.Info("REDIS_ADDR not set; finished rounds are only logged")
	}

	hub := lobby.NewHub(lobby.Options{
		MaxRooms:        cfg.MaxRooms,
		MaxPlayers:      cfg.MaxPlayers,
		MaxRoomCapacity: cfg.MaxRoomCapacity,
	}, sink, logger)
	gs := handlers.NewGameServer(cfg, hub, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gs.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from ctx so open sockets see shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("Server stopped.")
}
