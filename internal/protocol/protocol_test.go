package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJoinGame(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"join_game","payload":{"playerName":"Alice"}}`))
	require.NoError(t, err)
	join, ok := msg.(JoinGame)
	require.True(t, ok)
	assert.Equal(t, "Alice", join.PlayerName)
	assert.Equal(t, KindJoinGame, msg.Kind())
}

func TestDecodeJoinGameWithoutPayload(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"join_game"}`))
	require.NoError(t, err)
	join, ok := msg.(JoinGame)
	require.True(t, ok)
	assert.Empty(t, join.PlayerName)
}

func TestDecodeRollDice(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"roll_dice","payload":{"gameId":"g1"}}`))
	require.NoError(t, err)
	roll, ok := msg.(RollDice)
	require.True(t, ok)
	assert.Equal(t, "g1", roll.GameID)
}

func TestDecodeRollDiceMissingGameID(t *testing.T) {
	_, err := Decode([]byte(`{"type":"roll_dice","payload":{}}`))
	var malformed *MalformedMessageError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "roll_dice", malformed.Type)
	assert.Contains(t, malformed.Reason, "gameId")
}

func TestDecodeChatMessage(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"chat_message","payload":{"gameId":"g1","message":"hi"}}`))
	require.NoError(t, err)
	chat, ok := msg.(ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "g1", chat.GameID)
	assert.Equal(t, "hi", chat.Message)
}

func TestDecodeChatMessageMissingFields(t *testing.T) {
	var malformed *MalformedMessageError

	_, err := Decode([]byte(`{"type":"chat_message","payload":{"message":"hi"}}`))
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "gameId")

	_, err = Decode([]byte(`{"type":"chat_message","payload":{"gameId":"g1"}}`))
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "message")
}

func TestDecodeLeaveGame(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"leave_game"}`))
	require.NoError(t, err)
	assert.Equal(t, KindLeaveGame, msg.Kind())
}

func TestDecodeClientLog(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"log","payload":{"level":"info","note":"client side"}}`))
	require.NoError(t, err)
	cl, ok := msg.(ClientLog)
	require.True(t, ok)
	assert.JSONEq(t, `{"level":"info","note":"client side"}`, string(cl.Fields))
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport","payload":{}}`))
	var malformed *MalformedMessageError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "teleport", malformed.Type)
	assert.Contains(t, malformed.Reason, "unknown message type")
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	var malformed *MalformedMessageError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "invalid JSON")
}

func TestDecodeInvalidPayloadShape(t *testing.T) {
	_, err := Decode([]byte(`{"type":"roll_dice","payload":"not an object"}`))
	var malformed *MalformedMessageError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "invalid payload")
}

func decodePayload(t *testing.T, ev Event) map[string]any {
	t.Helper()
	var frame struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(ev.Encode(), &frame))
	assert.Equal(t, ev.Type, frame.Type)
	return frame.Payload
}

func TestGameJoinedPayload(t *testing.T) {
	ev := GameJoined("g1", "p1", []PlayerInfo{{ID: "p1", Name: "Alice", Color: "red"}})
	payload := decodePayload(t, ev)
	assert.Equal(t, "g1", payload["gameId"])
	assert.Equal(t, "p1", payload["playerId"])
	players := payload["players"].([]any)
	require.Len(t, players, 1)
	first := players[0].(map[string]any)
	assert.Equal(t, "red", first["color"])
}

func TestGameStateUpdatePayload(t *testing.T) {
	payload := decodePayload(t, GameStateUpdate(2, "playing"))
	assert.Equal(t, float64(2), payload["currentPlayer"])
	assert.Equal(t, "playing", payload["gamePhase"])
}

func TestDiceRolledPayload(t *testing.T) {
	payload := decodePayload(t, DiceRolled("p1", 6))
	assert.Equal(t, "p1", payload["playerId"])
	assert.Equal(t, float64(6), payload["value"])
}

func TestChatPayload(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	payload := decodePayload(t, Chat("p1", "Alice", "hello", at))
	assert.Equal(t, "Alice", payload["playerName"])
	assert.Equal(t, "hello", payload["message"])
	assert.Equal(t, "2024-05-01T12:00:00Z", payload["timestamp"])
}

func TestPlayerDisconnectedPayload(t *testing.T) {
	payload := decodePayload(t, PlayerDisconnected("p1", "Alice"))
	assert.Equal(t, "p1", payload["playerId"])
	assert.Equal(t, "Alice", payload["playerName"])
}

func TestErrorPayload(t *testing.T) {
	payload := decodePayload(t, Error("not your turn"))
	assert.Equal(t, "not your turn", payload["message"])
}
