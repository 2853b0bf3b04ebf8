package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorString(t *testing.T) {
	assert.Equal(t, "red", ColorRed.String())
	assert.Equal(t, "green", ColorGreen.String())
	assert.Equal(t, "blue", ColorBlue.String())
	assert.Equal(t, "yellow", ColorYellow.String())
	assert.Equal(t, "unknown", Color(7).String())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "waiting", PhaseWaiting.String())
	assert.Equal(t, "playing", PhasePlaying.String())
	assert.Equal(t, "finished", PhaseFinished.String())
	assert.Equal(t, "unknown", Phase(-1).String())
}

func TestSessionAccessors(t *testing.T) {
	now := time.Now()
	s := newSession("s1", now)
	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, PhaseWaiting, s.Phase())
	assert.Equal(t, 0, s.ParticipantCount())
	assert.Equal(t, 0, s.ConnectedCount())
	assert.Empty(t, s.Participants())

	_, ok := s.Participant("nobody")
	assert.False(t, ok)
}

func TestParticipantCopiesAreDetached(t *testing.T) {
	m := newTestManager(t, nil)
	sid, err := m.Join("a", "Alice", &fakeSender{})
	require.NoError(t, err)

	s, ok := m.Session(sid)
	require.True(t, ok)

	p, ok := s.Participant("a")
	require.True(t, ok)
	p.Connected = false

	// Mutating the copy does not touch session state.
	fresh, _ := s.Participant("a")
	assert.True(t, fresh.Connected)
}
