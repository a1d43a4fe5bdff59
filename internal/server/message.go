package server

import (
	"encoding/json"
	"time"

	"github.com/cardroomhq/cardroom/internal/table"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

// HelloData carries the caller-asserted identity. Identity is trusted as
// given; a second hello for the same player ID supersedes the first
// connection.
type HelloData struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName,omitempty"`
}

type JoinTableData struct {
	TableID string `json:"tableId"`
	BuyIn   int    `json:"buyIn"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type ActionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type ChatData struct {
	TableID string `json:"tableId"`
	Text    string `json:"text"`
}

// Server → Client Messages

type HelloAckData struct {
	PlayerID string `json:"playerId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SnapshotData struct {
	Table table.Snapshot `json:"table"`
}

type ActionRejectedData struct {
	TableID string `json:"tableId"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

type WinnerInfo struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Amount   int    `json:"amount"`
	Category string `json:"category,omitempty"` // empty on a fold-out
}

type RoundCompleteData struct {
	TableID  string         `json:"tableId"`
	HandID   string         `json:"handId"`
	Winners  []WinnerInfo   `json:"winners"`
	Showdown bool           `json:"showdown"`
	Table    table.Snapshot `json:"table"`
}

type PlayerJoinedData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
}

type PlayerLeftData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
}

type PlayerDisconnectedData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
}

type PlayerReconnectedData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
}

type ChatRelayData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Text     string `json:"text"`
}

type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Stakes      string `json:"stakes"`
	Status      string `json:"status"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

func winnerInfos(winners []table.Winner) []WinnerInfo {
	out := make([]WinnerInfo, len(winners))
	for i, w := range winners {
		out[i] = WinnerInfo{
			PlayerID: w.PlayerID,
			Seat:     w.Seat,
			Amount:   w.Amount,
			Category: w.Category,
		}
	}
	return out
}
