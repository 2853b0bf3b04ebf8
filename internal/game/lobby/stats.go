package lobby

import "time"

// SessionStats is a read-only snapshot of one session, exposed on the
// stats surface.
type SessionStats struct {
	ID           string    `json:"id"`
	Phase        string    `json:"phase"`
	Participants int       `json:"players_count"`
	Connected    int       `json:"connected_players"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stats is a read-only snapshot of the whole registry. It is produced
// on demand for the health and stats endpoints and never mutated by
// the core.
type Stats struct {
	TotalSessions         int            `json:"total_games"`
	WaitingSessions       int            `json:"waiting_games"`
	PlayingSessions       int            `json:"active_games"`
	FinishedSessions      int            `json:"finished_games"`
	TotalParticipants     int            `json:"total_players"`
	ConnectedParticipants int            `json:"connected_players"`
	Sessions              []SessionStats `json:"games"`
}

// Stats returns a point-in-time snapshot of all sessions.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		TotalSessions: len(m.sessions),
		Sessions:      make([]SessionStats, 0, len(m.sessions)),
	}
	for _, sid := range m.order {
		s := m.sessions[sid]
		s.mu.Lock()
		detail := SessionStats{
			ID:           s.id,
			Phase:        s.phase.String(),
			Participants: len(s.participants),
			Connected:    s.connectedCount(),
			CreatedAt:    s.createdAt,
			UpdatedAt:    s.updatedAt,
		}
		switch s.phase {
		case PhaseWaiting:
			stats.WaitingSessions++
		case PhasePlaying:
			stats.PlayingSessions++
		case PhaseFinished:
			stats.FinishedSessions++
		}
		s.mu.Unlock()

		stats.TotalParticipants += detail.Participants
		stats.ConnectedParticipants += detail.Connected
		stats.Sessions = append(stats.Sessions, detail)
	}
	return stats
}
