package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/config"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/protocol"
)

// Manager owns the session registry and is the only way to mutate it.
// It matches arriving connections into sessions, serializes turn-taking
// per session, fans events out to session members, and reclaims
// abandoned and finished sessions.
//
// All methods are safe for concurrent use. Lock order is always the
// registry mutex before any session mutex; event delivery happens with
// no locks held.
type Manager struct {
	cfg    config.LobbyConfig
	src    dice.Source
	logger *zap.Logger
	now    func() time.Time

	mu              sync.RWMutex
	sessions        map[string]*Session
	order           []string // session ids in creation order, for deterministic first-fit
	playerToSession map[string]string
	closed          bool
}

// NewManager creates a Manager with the given configuration.
//
// Precondition: cfg must pass config validation.
// Postcondition: Returns a Manager with an empty registry. A nil src
// defaults to the crypto source; a nil logger defaults to a no-op.
func NewManager(cfg config.LobbyConfig, src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		src = dice.NewCryptoSource()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:             cfg,
		src:             src,
		logger:          logger,
		now:             time.Now,
		sessions:        make(map[string]*Session),
		playerToSession: make(map[string]string),
	}
}

// Session returns the session with the given id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// SessionFor returns the session the given connection belongs to.
func (m *Manager) SessionFor(playerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sid, ok := m.playerToSession[playerID]
	if !ok {
		return nil, false
	}
	s, ok := m.sessions[sid]
	return s, ok
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Join places a connection into a session and returns the session id.
//
// If the connection already belongs to a live session this is a
// reconnection: the send capability is swapped in, the connected flag
// is set, and identity (color, turn position) is preserved. Otherwise
// the open sessions are scanned in creation order for the first one
// still waiting with a free seat; if none fits, a new session is
// created. A full session is skipped, never an error.
//
// Side effects: the joiner receives game_joined and game_state_update
// events; when the join starts the game, a game_state_update is
// broadcast to the whole session.
//
// Precondition: playerID must be non-empty; sender must be non-nil.
// Postcondition: The connection is registered to exactly one session.
func (m *Manager) Join(playerID, name string, sender Sender) (string, error) {
	start := m.now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrManagerClosed
	}

	if sid, ok := m.playerToSession[playerID]; ok {
		if s, ok := m.sessions[sid]; ok {
			if done, err := m.reconnect(s, playerID, sender); done {
				return sid, err
			}
		}
		// Stale index entry; treat as a fresh join.
		delete(m.playerToSession, playerID)
	}

	sid, placement := m.place(playerID, name, sender)
	m.mu.Unlock()

	if placement.started {
		m.deliver(placement.session, placement.all, protocol.GameStateUpdate(placement.turnIndex, placement.phase).Encode())
	}
	joiner := []recipient{{participant: placement.participant, sender: sender}}
	m.deliver(placement.session, joiner, protocol.GameJoined(sid, playerID, placement.players).Encode())
	m.deliver(placement.session, joiner, protocol.GameStateUpdate(placement.turnIndex, placement.phase).Encode())

	m.logger.Info("player joined",
		zap.String("session_id", sid),
		zap.String("player_id", playerID),
		zap.String("player_name", name),
		zap.String("color", placement.color.String()),
		zap.Int("participants", len(placement.players)),
		zap.Bool("started", placement.started),
		zap.Bool("created", placement.created),
		zap.Duration("elapsed", m.now().Sub(start)),
	)
	return sid, nil
}

// reconnect restores a live link to an existing participant. Must be
// called with m.mu held; releases it and delivers events when the
// participant is found (done == true).
func (m *Manager) reconnect(s *Session, playerID string, sender Sender) (bool, error) {
	s.mu.Lock()
	p, ok := s.byID[playerID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}

	p.sender = sender
	p.Connected = true
	s.updatedAt = m.now()
	// A pending reclamation is superseded by the rejoin. The timer
	// callback re-checks the connected count anyway; stopping it here
	// just releases the timer early.
	if s.reclaim != nil {
		s.reclaim.Stop()
		s.reclaim = nil
	}
	players := s.playerInfos()
	turnIndex := s.turnIndex
	phase := s.phase.String()
	s.mu.Unlock()
	m.mu.Unlock()

	joiner := []recipient{{participant: p, sender: sender}}
	m.deliver(s, joiner, protocol.GameJoined(s.id, playerID, players).Encode())
	m.deliver(s, joiner, protocol.GameStateUpdate(turnIndex, phase).Encode())

	m.logger.Info("player reconnected",
		zap.String("session_id", s.id),
		zap.String("player_id", playerID),
	)
	return true, nil
}

// placement captures the outcome of seating a new participant so the
// event sends can happen after all locks are released.
type placement struct {
	session     *Session
	participant *Participant
	players     []protocol.PlayerInfo
	all         []recipient
	color       Color
	turnIndex   int
	phase       string
	started     bool
	created     bool
}

// place seats a new participant, scanning open sessions first-fit in
// creation order. Must be called with m.mu held.
func (m *Manager) place(playerID, name string, sender Sender) (string, placement) {
	now := m.now()

	for _, sid := range m.order {
		s := m.sessions[sid]
		s.mu.Lock()
		if s.phase != PhaseWaiting || len(s.participants) >= m.cfg.MaxPlayers {
			s.mu.Unlock()
			continue
		}
		out := m.seat(s, playerID, name, sender, now)
		s.mu.Unlock()
		m.playerToSession[playerID] = sid
		return sid, out
	}

	sid := uuid.NewString()
	s := newSession(sid, now)
	s.mu.Lock()
	out := m.seat(s, playerID, name, sender, now)
	out.created = true
	s.mu.Unlock()

	m.sessions[sid] = s
	m.order = append(m.order, sid)
	m.playerToSession[playerID] = sid
	return sid, out
}

// seat appends a participant and advances the phase when the minimum
// player count is reached. Must be called with s.mu held.
func (m *Manager) seat(s *Session, playerID, name string, sender Sender, now time.Time) placement {
	p := &Participant{
		ID:        playerID,
		Name:      name,
		Color:     s.lowestFreeColor(),
		Connected: true,
		JoinedAt:  now,
		sender:    sender,
	}
	s.participants = append(s.participants, p)
	s.byID[playerID] = p
	s.updatedAt = now

	started := s.phase == PhaseWaiting && len(s.participants) >= m.cfg.MinPlayersToStart
	if started {
		s.phase = PhasePlaying
	}

	out := placement{
		session:     s,
		participant: p,
		players:     s.playerInfos(),
		color:       p.Color,
		turnIndex:   s.turnIndex,
		phase:       s.phase.String(),
		started:     started,
	}
	if started {
		out.all = s.recipients("")
	}
	return out
}

// RollDice takes the caller's turn: it rolls the die, stores the value,
// advances the turn order, and broadcasts the result to the session.
//
// Postcondition: On ErrNotYourTurn or ErrSessionNotFound the session
// state is unchanged. On success the return value is in [1, 6].
func (m *Manager) RollDice(sessionID, playerID string) (int, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return 0, ErrSessionNotFound
	}

	s.mu.Lock()
	if s.phase != PhasePlaying {
		s.mu.Unlock()
		return 0, ErrNotYourTurn
	}
	current := s.participants[s.turnIndex]
	if current.ID != playerID {
		s.mu.Unlock()
		return 0, ErrNotYourTurn
	}

	value := dice.RollD6(m.src)
	s.lastRoll = value
	s.turnIndex = (s.turnIndex + 1) % len(s.participants)
	s.updatedAt = m.now()
	recips := s.recipients("")
	s.mu.Unlock()

	m.deliver(s, recips, protocol.DiceRolled(playerID, value).Encode())

	m.logger.Debug("dice rolled",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Int("value", value),
	)
	return value, nil
}

// Chat broadcasts a chat line to every connected member of the
// session, annotated with the sender's identity and a UTC timestamp.
// There is no turn restriction and no content filtering.
func (m *Manager) Chat(sessionID, playerID, text string) error {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	p, ok := s.byID[playerID]
	if !ok {
		s.mu.Unlock()
		return ErrParticipantNotFound
	}
	name := p.Name
	recips := s.recipients("")
	s.mu.Unlock()

	m.deliver(s, recips, protocol.Chat(playerID, name, text, m.now()).Encode())
	return nil
}

// Disconnect marks the connection's participant as disconnected,
// notifies the rest of the session, and schedules reclamation when no
// connected participants remain. Unknown connections are a no-op.
//
// Postcondition: At most one reclamation timer is pending per session;
// the timer re-checks the connected count when it fires, so a rejoin
// during the grace period keeps the session alive.
func (m *Manager) Disconnect(playerID string) {
	m.mu.RLock()
	sid, ok := m.playerToSession[playerID]
	var s *Session
	if ok {
		s = m.sessions[sid]
	}
	closed := m.closed
	m.mu.RUnlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	p, ok := s.byID[playerID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if !p.Connected {
		// A failed broadcast may have cleared the flag before the
		// transport close arrived. The notification already went out (or
		// could not), but reclamation still has to be armed if this left
		// the session empty.
		if s.connectedCount() == 0 && s.reclaim == nil && !closed {
			s.reclaim = time.AfterFunc(m.cfg.GracePeriod, func() {
				m.reapIfEmpty(sid)
			})
		}
		s.mu.Unlock()
		return
	}
	p.Connected = false
	s.updatedAt = m.now()
	name := p.Name
	remaining := s.connectedCount()
	if remaining == 0 && s.reclaim == nil && !closed {
		s.reclaim = time.AfterFunc(m.cfg.GracePeriod, func() {
			m.reapIfEmpty(sid)
		})
	}
	recips := s.recipients(playerID)
	s.mu.Unlock()

	m.deliver(s, recips, protocol.PlayerDisconnected(playerID, name).Encode())

	m.logger.Info("player disconnected",
		zap.String("session_id", sid),
		zap.String("player_id", playerID),
		zap.Int("connected_remaining", remaining),
	)
}

// reapIfEmpty is the grace-period timer callback. It re-validates the
// zero-connected precondition at fire time and reclaims the session
// only if it still holds. Reclaiming an already-removed session is a
// no-op.
func (m *Manager) reapIfEmpty(sessionID string) {
	m.mu.Lock()
	if m.closed {
		// Close stops pending timers, but a Disconnect racing with it
		// can arm one after the stop pass.
		m.mu.Unlock()
		return
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.reclaim = nil
	if s.connectedCount() > 0 {
		// A rejoin superseded the scheduled reclamation.
		s.mu.Unlock()
		m.mu.Unlock()
		return
	}
	ids := make([]string, len(s.participants))
	for i, p := range s.participants {
		ids[i] = p.ID
	}
	s.mu.Unlock()

	m.removeLocked(sessionID, ids)
	m.mu.Unlock()

	m.logger.Info("session reclaimed",
		zap.String("session_id", sessionID),
		zap.String("reason", "no_connected_participants"),
		zap.Int("participants", len(ids)),
	)
}

// removeLocked deletes a session and its participants' registry
// entries. Must be called with m.mu held.
func (m *Manager) removeLocked(sessionID string, participantIDs []string) {
	delete(m.sessions, sessionID)
	for i, id := range m.order {
		if id == sessionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, pid := range participantIDs {
		if m.playerToSession[pid] == sessionID {
			delete(m.playerToSession, pid)
		}
	}
}

// FinishSession transitions a playing session to finished. This is the
// hook the rule engine calls on game completion; the finished session
// is retained for the configured window and then swept.
//
// Postcondition: Phase moves PLAYING to FINISHED only; finishing an
// already finished session is a no-op.
func (m *Manager) FinishSession(sessionID string) error {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	switch s.phase {
	case PhaseFinished:
		s.mu.Unlock()
		return nil
	case PhaseWaiting:
		s.mu.Unlock()
		return ErrSessionNotPlaying
	}
	s.phase = PhaseFinished
	s.updatedAt = m.now()
	turnIndex := s.turnIndex
	recips := s.recipients("")
	s.mu.Unlock()

	m.deliver(s, recips, protocol.GameStateUpdate(turnIndex, PhaseFinished.String()).Encode())

	m.logger.Info("session finished",
		zap.String("session_id", sessionID),
	)
	return nil
}

// SweepFinished reclaims finished sessions whose last update is older
// than the retention window. It is run periodically by the lifecycle.
//
// Postcondition: Returns the number of sessions reclaimed.
func (m *Manager) SweepFinished() int {
	return m.sweepFinished(m.now())
}

func (m *Manager) sweepFinished(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	type victim struct {
		id  string
		pos []string
	}
	var victims []victim
	for _, sid := range m.order {
		s := m.sessions[sid]
		s.mu.Lock()
		if s.phase == PhaseFinished && now.Sub(s.updatedAt) > m.cfg.FinishedRetention {
			ids := make([]string, len(s.participants))
			for i, p := range s.participants {
				ids[i] = p.ID
			}
			if s.reclaim != nil {
				s.reclaim.Stop()
				s.reclaim = nil
			}
			victims = append(victims, victim{id: sid, pos: ids})
		}
		s.mu.Unlock()
	}

	for _, v := range victims {
		m.removeLocked(v.id, v.pos)
		m.logger.Info("session reclaimed",
			zap.String("session_id", v.id),
			zap.String("reason", "finished_retention_elapsed"),
		)
	}
	return len(victims)
}

// deliver sends one encoded event to each recipient independently. A
// failed send marks that participant disconnected and delivery
// continues; failures never propagate to the caller.
func (m *Manager) deliver(s *Session, recips []recipient, data []byte) {
	for _, r := range recips {
		if err := r.sender.Send(data); err != nil {
			s.mu.Lock()
			r.participant.Connected = false
			s.mu.Unlock()
			m.logger.Warn("broadcast delivery failed",
				zap.String("session_id", s.id),
				zap.String("player_id", r.participant.ID),
				zap.Error(err),
			)
		}
	}
}

// Close stops all pending reclamation timers and rejects further
// joins. Used on shutdown; session state is in-memory only and is
// discarded with the process.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.reclaim != nil {
			s.reclaim.Stop()
			s.reclaim = nil
		}
		s.mu.Unlock()
	}
}
