package protocol

import (
	"encoding/json"
	"time"
)

// Outbound event types.
const (
	EventGameJoined         = "game_joined"
	EventGameStateUpdate    = "game_state_update"
	EventDiceRolled         = "dice_rolled"
	EventChatMessage        = "chat_message"
	EventPlayerDisconnected = "player_disconnected"
	EventError              = "error"
)

// Event is an outbound frame sent to game clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode marshals the event to its wire form.
//
// Postcondition: Returns valid JSON. Panics only if the payload is not
// marshallable, which cannot happen for events built by this package.
func (e Event) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		panic("protocol: encoding event " + e.Type + ": " + err.Error())
	}
	return data
}

// PlayerInfo is the per-participant entry in a game_joined payload.
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// GameJoined confirms session placement to the joining connection.
func GameJoined(gameID, playerID string, players []PlayerInfo) Event {
	return Event{
		Type: EventGameJoined,
		Payload: struct {
			GameID   string       `json:"gameId"`
			PlayerID string       `json:"playerId"`
			Players  []PlayerInfo `json:"players"`
		}{gameID, playerID, players},
	}
}

// GameStateUpdate announces the current turn index and phase.
func GameStateUpdate(currentPlayer int, phase string) Event {
	return Event{
		Type: EventGameStateUpdate,
		Payload: struct {
			CurrentPlayer int    `json:"currentPlayer"`
			GamePhase     string `json:"gamePhase"`
		}{currentPlayer, phase},
	}
}

// DiceRolled announces a turn roll to the session.
func DiceRolled(playerID string, value int) Event {
	return Event{
		Type: EventDiceRolled,
		Payload: struct {
			PlayerID string `json:"playerId"`
			Value    int    `json:"value"`
		}{playerID, value},
	}
}

// Chat carries a chat line annotated with sender identity and time.
func Chat(playerID, playerName, message string, at time.Time) Event {
	return Event{
		Type: EventChatMessage,
		Payload: struct {
			PlayerID   string `json:"playerId"`
			PlayerName string `json:"playerName"`
			Message    string `json:"message"`
			Timestamp  string `json:"timestamp"`
		}{playerID, playerName, message, at.UTC().Format(time.RFC3339)},
	}
}

// PlayerDisconnected announces a participant losing its connection.
func PlayerDisconnected(playerID, playerName string) Event {
	return Event{
		Type: EventPlayerDisconnected,
		Payload: struct {
			PlayerID   string `json:"playerId"`
			PlayerName string `json:"playerName"`
		}{playerID, playerName},
	}
}

// Error reports a recoverable failure to the client.
func Error(message string) Event {
	return Event{
		Type: EventError,
		Payload: struct {
			Message string `json:"message"`
		}{message},
	}
}
