package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeHello      MessageType = "hello"
	MessageTypeJoinTable  MessageType = "join_table"
	MessageTypeLeaveTable MessageType = "leave_table"
	MessageTypeListTables MessageType = "list_tables"
	MessageTypeAction     MessageType = "action"
	MessageTypeChat       MessageType = "chat"

	// Server to client messages
	MessageTypeHelloAck           MessageType = "hello_ack"
	MessageTypeSnapshot           MessageType = "snapshot"
	MessageTypeActionRejected     MessageType = "action_rejected"
	MessageTypeRoundComplete      MessageType = "round_complete"
	MessageTypePlayerJoined       MessageType = "player_joined"
	MessageTypePlayerLeft         MessageType = "player_left"
	MessageTypePlayerDisconnected MessageType = "player_disconnected"
	MessageTypePlayerReconnected  MessageType = "player_reconnected"
	MessageTypeChatRelay          MessageType = "chat"
	MessageTypeTableList          MessageType = "table_list"
	MessageTypeError              MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
