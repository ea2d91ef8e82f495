// cmd/lobbyd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/cambia-lobby/internal/auth"
	"github.com/jason-s-yu/cambia-lobby/internal/config"
	"github.com/jason-s-yu/cambia-lobby/internal/database"
	"github.com/jason-s-yu/cambia-lobby/internal/federation"
	"github.com/jason-s-yu/cambia-lobby/internal/handlers"
	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
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
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("shut down cleanly")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if err := auth.Init(cfg.TokenExpiry); err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	reg := lobby.NewRegistry(database.NewUserStore(pool),
		lobby.WithLogger(logger),
		lobby.WithLastSeenReload(cfg.IdleReload),
	)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handlers.NewLobbyServer(reg, logger, cfg.PollTimeout).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		lobby.RunSweeper(gctx, reg, cfg.SweepInterval)
		return nil
	})

	if cfg.Federation.Enabled {
		node, err := newFederationNode(gctx, cfg, reg, logger)
		if err != nil {
			logger.WithError(err).Error("running without federation")
		} else {
			g.Go(func() error {
				return node.Run(gctx, cfg.Federation.Interval)
			})
		}
	}

	return g.Wait()
}

func newFederationNode(ctx context.Context, cfg *config.Config, reg *lobby.Registry, logger *logrus.Logger) (*federation.Node, error) {
	fc := cfg.Federation
	rdb, err := federation.ConnectRedis(ctx, fc.RedisAddr, fc.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("federation: %w", err)
	}
	display := fc.DisplayName
	if display == "" {
		display = fc.ServerName
	}
	self := lobby.ServerInfo{
		Name:        fc.ServerName,
		DisplayName: display,
		MinPlayers:  1,
		MinHumans:   1,
		MaxPlayers:  fc.MaxPlayers,
		Address:     fc.Address,
		Port:        strconv.Itoa(cfg.Port),
	}
	// Published game lists outlive a few missed announcements.
	return federation.NewNode(rdb, reg, self, 3*fc.Interval, logger.WithField("server", fc.ServerName)), nil
}
