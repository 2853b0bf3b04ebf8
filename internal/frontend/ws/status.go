package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/game/lobby"
	"github.com/cory-johannsen/ludo/internal/observability"
)

// healthResponse is the /health body consumed by external health
// checkers. It is a pure read-only snapshot of the data model.
type healthResponse struct {
	Status    string                         `json:"status"`
	Timestamp string                         `json:"timestamp"`
	Server    observability.CountersSnapshot `json:"server_stats"`
	Games     lobby.Stats                    `json:"game_stats"`
}

// statsResponse is the /stats body, a richer snapshot including the
// per-session detail list.
type statsResponse struct {
	Server      observability.CountersSnapshot `json:"server_stats"`
	Games       lobby.Stats                    `json:"game_stats"`
	GamesDetail []lobby.SessionStats           `json:"games_detail"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := g.manager.Stats()
	stats.Sessions = nil // detail list lives on /stats

	g.writeJSON(w, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Server:    g.counters.Snapshot(),
		Games:     stats,
	})
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := g.manager.Stats()
	detail := stats.Sessions
	stats.Sessions = nil

	g.writeJSON(w, statsResponse{
		Server:      g.counters.Snapshot(),
		Games:       stats,
		GamesDetail: detail,
	})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("writing status response", zap.Error(err))
	}
}
