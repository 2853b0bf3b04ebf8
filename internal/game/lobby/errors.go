package lobby

import "errors"

// Errors reported to callers. None of them is fatal: the gateway maps
// each to an "error" event and the connection stays open.
var (
	// ErrNotYourTurn reports a turn-taking violation. Session state is
	// unchanged.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrSessionNotFound reports a stale or unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound reports a connection that is not a member
	// of the referenced session.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrSessionNotPlaying reports a finish signal for a session that
	// has not started.
	ErrSessionNotPlaying = errors.New("session not playing")
	// ErrManagerClosed reports an operation after shutdown began.
	ErrManagerClosed = errors.New("lobby manager closed")
)
