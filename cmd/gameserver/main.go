// Package main provides the game server binary: the websocket lobby
// core with matchmaking, turn coordination, and session reclamation.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/config"
	"github.com/cory-johannsen/ludo/internal/frontend/ws"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/lobby"
	"github.com/cory-johannsen/ludo/internal/observability"
	"github.com/cory-johannsen/ludo/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_players", cfg.Lobby.MaxPlayers),
		zap.Duration("grace_period", cfg.Lobby.GracePeriod),
	)

	counters := observability.NewCounters()
	manager := lobby.NewManager(cfg.Lobby, dice.NewCryptoSource(), logger)
	gateway := ws.NewGateway(cfg.Server, manager, counters, logger)

	lifecycle := server.NewLifecycle(logger)
	// Registered first so it is stopped last, after the gateway has
	// drained its connections.
	lifecycle.Add("lobby", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  manager.Close,
	})
	lifecycle.Add("gateway", gateway)
	lifecycle.Add("finished-sweep", &server.TickerService{
		Interval: cfg.Lobby.SweepInterval,
		Tick: func() {
			if n := manager.SweepFinished(); n > 0 {
				logger.Info("swept finished sessions", zap.Int("count", n))
			}
		},
	})
	lifecycle.Add("stats-logger", &server.TickerService{
		Interval: cfg.Lobby.StatsLogInterval,
		Tick: func() {
			stats := manager.Stats()
			snap := counters.Snapshot()
			logger.Info("periodic stats",
				zap.Int("total_games", stats.TotalSessions),
				zap.Int("waiting_games", stats.WaitingSessions),
				zap.Int("active_games", stats.PlayingSessions),
				zap.Int("finished_games", stats.FinishedSessions),
				zap.Int("total_players", stats.TotalParticipants),
				zap.Int("connected_players", stats.ConnectedParticipants),
				zap.Int64("total_connections", snap.ConnectionsAccepted),
				zap.Int64("active_connections", snap.ActiveConnections),
				zap.Int64("messages_processed", snap.MessagesProcessed),
				zap.Int64("errors_occurred", snap.ErrorsObserved),
			)
		},
	})
	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}

	logger.Info("game server stopped",
		zap.Duration("uptime", time.Since(start)),
	)
}
