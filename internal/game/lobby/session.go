// Package lobby implements the session and matchmaking core: it tracks
// live connections, places them into game sessions, serializes
// turn-taking, fans events out to session members, and reclaims
// abandoned sessions.
package lobby

import (
	"sync"
	"time"

	"github.com/cory-johannsen/ludo/internal/protocol"
)

// Color identifies a participant within a session. Colors are unique
// per session and assigned lowest-free-first in declaration order.
type Color int

// The four player colors.
const (
	ColorRed Color = iota
	ColorGreen
	ColorBlue
	ColorYellow
)

var colorNames = [...]string{"red", "green", "blue", "yellow"}

// String returns the wire name of the color.
func (c Color) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return "unknown"
	}
	return colorNames[c]
}

// Phase is the lifecycle stage of a session. It only ever advances.
type Phase int

// Session phases, in order.
const (
	PhaseWaiting Phase = iota
	PhasePlaying
	PhaseFinished
)

var phaseNames = [...]string{"waiting", "playing", "finished"}

// String returns the wire name of the phase.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Sender pushes an encoded event to one remote peer. Send blocks only
// on enqueueing, never on network I/O; implementations serialize
// delivery per connection.
type Sender interface {
	Send(data []byte) error
}

// Participant is a connection's membership in one session. Identity
// (ID, Color, turn position) survives reconnection; only the sender
// and connected flag are replaced.
type Participant struct {
	// ID is the connection identifier, generated at accept time and
	// never reused.
	ID string
	// Name is the caller-supplied display name.
	Name string
	// Color is the assigned color, unique within the session.
	Color Color
	// Connected reports whether the participant currently has a live
	// transport link.
	Connected bool
	// JoinedAt is when the participant first entered the session.
	JoinedAt time.Time

	sender Sender
}

// Session is one game instance grouping up to four participants.
// All fields behind mu are guarded by it; the registry in Manager
// holds only the id.
type Session struct {
	mu sync.Mutex

	id           string
	participants []*Participant // insertion order = turn order
	byID         map[string]*Participant
	phase        Phase
	turnIndex    int
	lastRoll     int
	createdAt    time.Time
	updatedAt    time.Time

	// reclaim is the pending empty-session reclamation timer, nil when
	// none is scheduled. At most one is live per session.
	reclaim *time.Timer
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:        id,
		byID:      make(map[string]*Participant),
		phase:     PhaseWaiting,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// TurnIndex returns the index into the turn order of the participant
// whose turn it is. Valid only while the session is playing.
func (s *Session) TurnIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnIndex
}

// LastRoll returns the most recent roll value, zero before any roll.
func (s *Session) LastRoll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRoll
}

// ParticipantCount returns the number of participants in turn order.
func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// Participant returns a copy of the participant with the given id.
func (s *Session) Participant(id string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Participants returns copies of all participants in turn order.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Participant, len(s.participants))
	for i, p := range s.participants {
		out[i] = *p
	}
	return out
}

// connectedCount must be called with s.mu held.
func (s *Session) connectedCount() int {
	n := 0
	for _, p := range s.participants {
		if p.Connected {
			n++
		}
	}
	return n
}

// ConnectedCount returns the number of participants with a live link.
func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCount()
}

// lowestFreeColor must be called with s.mu held.
func (s *Session) lowestFreeColor() Color {
	used := make(map[Color]bool, len(s.participants))
	for _, p := range s.participants {
		used[p.Color] = true
	}
	for c := ColorRed; c <= ColorYellow; c++ {
		if !used[c] {
			return c
		}
	}
	return ColorRed
}

// playerInfos must be called with s.mu held.
func (s *Session) playerInfos() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, len(s.participants))
	for i, p := range s.participants {
		infos[i] = protocol.PlayerInfo{ID: p.ID, Name: p.Name, Color: p.Color.String()}
	}
	return infos
}

// recipient pairs a participant with its sender for lock-free delivery.
type recipient struct {
	participant *Participant
	sender      Sender
}

// recipients must be called with s.mu held. It snapshots the connected
// participants so the actual sends happen outside the session lock.
func (s *Session) recipients(exclude string) []recipient {
	out := make([]recipient, 0, len(s.participants))
	for _, p := range s.participants {
		if p.ID == exclude {
			continue
		}
		if p.Connected && p.sender != nil {
			out = append(out, recipient{participant: p, sender: p.sender})
		}
	}
	return out
}
