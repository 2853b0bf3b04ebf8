// Package protocol defines the JSON wire contract between game clients
// and the lobby core: a closed set of inbound messages and the outbound
// events fanned out to session members.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates inbound message types.
type Kind string

// Inbound message kinds. The set is closed; dispatch over Message must
// handle every kind.
const (
	KindJoinGame    Kind = "join_game"
	KindRollDice    Kind = "roll_dice"
	KindChatMessage Kind = "chat_message"
	KindLeaveGame   Kind = "leave_game"
	KindClientLog   Kind = "log"
)

// Message is an inbound client message. Exactly the types in this
// package implement it.
type Message interface {
	Kind() Kind
}

// JoinGame asks the matchmaker to place the connection in a session.
type JoinGame struct {
	// PlayerName is the caller-supplied display name. May be empty;
	// the gateway substitutes a generated name.
	PlayerName string `json:"playerName"`
}

// Kind returns KindJoinGame.
func (JoinGame) Kind() Kind { return KindJoinGame }

// RollDice takes the caller's turn in the given session.
type RollDice struct {
	GameID string `json:"gameId"`
}

// Kind returns KindRollDice.
func (RollDice) Kind() Kind { return KindRollDice }

// ChatMessage broadcasts a chat line to the given session.
type ChatMessage struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

// Kind returns KindChatMessage.
func (ChatMessage) Kind() Kind { return KindChatMessage }

// LeaveGame marks the sender as disconnected from its session. The
// transport connection itself stays open.
type LeaveGame struct{}

// Kind returns KindLeaveGame.
func (LeaveGame) Kind() Kind { return KindLeaveGame }

// ClientLog carries an arbitrary client-side log payload. It is
// forwarded to the observability sink and has no game effect.
type ClientLog struct {
	Fields json.RawMessage
}

// Kind returns KindClientLog.
func (ClientLog) Kind() Kind { return KindClientLog }

// MalformedMessageError reports an unparseable frame, an unknown
// message type, or a missing required payload field.
type MalformedMessageError struct {
	// Type is the claimed message type, if one could be read.
	Type string
	// Reason describes the violation.
	Reason string
}

// Error implements the error interface.
func (e *MalformedMessageError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("malformed message: %s", e.Reason)
	}
	return fmt.Sprintf("malformed %q message: %s", e.Type, e.Reason)
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a raw inbound frame into a typed Message.
//
// Postcondition: Returns one of the Message types in this package, or
// a *MalformedMessageError. The error never closes the connection; the
// gateway reports it as an "error" event.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedMessageError{Reason: "invalid JSON"}
	}

	switch Kind(env.Type) {
	case KindJoinGame:
		// playerName is optional; an absent payload joins anonymously.
		var m JoinGame
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &m); err != nil {
				return nil, &MalformedMessageError{Type: env.Type, Reason: "invalid payload"}
			}
		}
		return m, nil

	case KindRollDice:
		var m RollDice
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		if m.GameID == "" {
			return nil, &MalformedMessageError{Type: env.Type, Reason: "missing required field gameId"}
		}
		return m, nil

	case KindChatMessage:
		var m ChatMessage
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		if m.GameID == "" {
			return nil, &MalformedMessageError{Type: env.Type, Reason: "missing required field gameId"}
		}
		if m.Message == "" {
			return nil, &MalformedMessageError{Type: env.Type, Reason: "missing required field message"}
		}
		return m, nil

	case KindLeaveGame:
		return LeaveGame{}, nil

	case KindClientLog:
		return ClientLog{Fields: env.Payload}, nil

	default:
		return nil, &MalformedMessageError{Type: env.Type, Reason: "unknown message type"}
	}
}

func unmarshalPayload(env envelope, dst any) error {
	if len(env.Payload) == 0 {
		return &MalformedMessageError{Type: env.Type, Reason: "missing payload"}
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return &MalformedMessageError{Type: env.Type, Reason: "invalid payload"}
	}
	return nil
}
