package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/config"
	"github.com/cory-johannsen/ludo/internal/game/lobby"
	"github.com/cory-johannsen/ludo/internal/observability"
	"github.com/cory-johannsen/ludo/internal/protocol"
)

// Gateway is the websocket front door. It upgrades connections on /ws,
// runs one read loop per connection, and exposes /health and /stats
// snapshots for external collectors.
type Gateway struct {
	cfg      config.ServerConfig
	manager  *lobby.Manager
	counters *observability.Counters
	logger   *zap.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
	wg         sync.WaitGroup

	mu      sync.Mutex
	clients map[string]*client
}

// NewGateway creates a Gateway serving the given lobby manager.
//
// Precondition: manager, counters, and logger must be non-nil.
func NewGateway(cfg config.ServerConfig, manager *lobby.Manager, counters *observability.Counters, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg:      cfg,
		manager:  manager,
		counters: counters,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The lobby has no origin-based auth; identity is just a
			// display name.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Handler returns the gateway's HTTP routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/stats", g.handleStats)
	return mux
}

// Start runs the HTTP listener. It blocks until Stop is called.
//
// Postcondition: Returns nil on clean shutdown, or the listener error.
func (g *Gateway) Start() error {
	g.httpServer = &http.Server{
		Addr:    g.cfg.Addr(),
		Handler: g.Handler(),
	}

	g.logger.Info("websocket gateway listening",
		zap.String("addr", g.cfg.Addr()),
	)

	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving on %s: %w", g.cfg.Addr(), err)
	}
	return nil
}

// Stop shuts the listener down, closes every live connection, and
// waits for the per-connection goroutines to drain.
func (g *Gateway) Stop() {
	if g.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = g.httpServer.Shutdown(ctx)
	}

	g.mu.Lock()
	for _, c := range g.clients {
		c.close()
	}
	g.mu.Unlock()

	g.wg.Wait()
}

// handleWS upgrades the connection and serves it until disconnect.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.counters.ErrorObserved()
		g.logger.Error("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	// Connection ids are generated at accept time and never reused.
	connectionID := uuid.NewString()
	g.counters.ConnectionAccepted()
	g.logger.Info("client connected",
		zap.String("connection_id", connectionID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	c := newClient(connectionID, conn, g.cfg.SendBufferSize, g.cfg.WriteTimeout, g.cfg.PingInterval, g.logger)

	g.mu.Lock()
	g.clients[connectionID] = c
	g.mu.Unlock()

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		c.writePump()
	}()
	go func() {
		defer g.wg.Done()
		g.readLoop(c)
	}()
}

// readLoop consumes inbound frames until the connection drops, then
// runs the disconnect path.
func (g *Gateway) readLoop(c *client) {
	start := time.Now()
	defer func() {
		c.close()
		g.mu.Lock()
		delete(g.clients, c.id)
		g.mu.Unlock()

		g.counters.ConnectionClosed()
		g.manager.Disconnect(c.id)
		g.logger.Info("client disconnected",
			zap.String("connection_id", c.id),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	pongWait := g.cfg.PingInterval + g.cfg.PongTimeout
	c.conn.SetReadLimit(g.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		g.dispatch(c, data)
	}
}

// dispatch decodes one frame and routes it to the lobby core. Every
// failure is reported back as an "error" event; nothing here closes
// the connection.
func (g *Gateway) dispatch(c *client, data []byte) {
	g.counters.MessageProcessed()

	msg, err := protocol.Decode(data)
	if err != nil {
		g.counters.ErrorObserved()
		g.logger.Warn("rejecting inbound message",
			zap.String("connection_id", c.id),
			zap.Error(err),
		)
		_ = c.Send(protocol.Error(err.Error()).Encode())
		return
	}

	switch msg := msg.(type) {
	case protocol.JoinGame:
		name := msg.PlayerName
		if name == "" {
			name = "Player " + c.id[:8]
		}
		if _, err := g.manager.Join(c.id, name, c); err != nil {
			g.reportError(c, err)
		}

	case protocol.RollDice:
		if _, err := g.manager.RollDice(msg.GameID, c.id); err != nil {
			g.reportError(c, err)
		}

	case protocol.ChatMessage:
		if err := g.manager.Chat(msg.GameID, c.id, msg.Message); err != nil {
			g.reportError(c, err)
		}

	case protocol.LeaveGame:
		// Leaving is the disconnect path; the socket itself stays open
		// so the client can join again.
		g.manager.Disconnect(c.id)

	case protocol.ClientLog:
		g.logger.Info("client log",
			zap.String("connection_id", c.id),
			zap.ByteString("payload", msg.Fields),
		)
	}
}

// reportError turns a lobby error into an error event for the caller.
func (g *Gateway) reportError(c *client, err error) {
	g.counters.ErrorObserved()
	g.logger.Debug("lobby operation rejected",
		zap.String("connection_id", c.id),
		zap.Error(err),
	)
	_ = c.Send(protocol.Error(err.Error()).Encode())
}
