package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Conn wraps a WebSocket connection to a client
type Conn struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	tableID   string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *Service
}

// NewConn creates a new connection wrapper
func NewConn(conn *websocket.Conn, logger *log.Logger, service *Service) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	return &Conn{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Supersede closes the connection with the dedicated close code, telling
// the client a newer connection for the same player replaced it.
func (c *Conn) Supersede() {
	c.logger.Info("connection superseded", "player", c.PlayerID())
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseSuperseded, "superseded by newer connection"), deadline)
	_ = c.Close()
}

// Send queues a message for delivery. It never blocks: a full send buffer
// means the client cannot keep up and the connection is closed.
func (c *Conn) Send(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection", "player", c.PlayerID())
		_ = c.Close()
		return ErrConnClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Conn) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// PlayerID returns the associated player ID
func (c *Conn) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Conn) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// TableID returns the associated table ID
func (c *Conn) TableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client
func (c *Conn) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Conn) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.PlayerID())

	switch msg.Type {
	case MessageTypeHello:
		var data HelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse hello data")
			return
		}
		c.handleHello(data)

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MessageTypeListTables:
		c.handleListTables()

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		c.handleAction(data)

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse chat data")
			return
		}
		c.handleChat(data)

	default:
		c.sendError("unknown_message_type", "unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Conn) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}

	_ = c.Send(errorMsg)
}

func (c *Conn) handleHello(data HelloData) {
	if data.PlayerID == "" {
		c.sendError("invalid_hello", "player id required")
		return
	}

	c.SetPlayer(data.PlayerID)
	c.service.Connect(c, data.PlayerID, data.DisplayName)

	ack, _ := NewMessage(MessageTypeHelloAck, HelloAckData{PlayerID: data.PlayerID})
	_ = c.Send(ack)
}

func (c *Conn) handleJoinTable(data JoinTableData) {
	playerID := c.PlayerID()
	if playerID == "" {
		c.sendError("not_identified", "must send hello first")
		return
	}

	if err := c.service.JoinTable(c, data.TableID, data.BuyIn); err != nil {
		c.sendError("join_failed", err.Error())
		return
	}
}

func (c *Conn) handleLeaveTable(data LeaveTableData) {
	playerID := c.PlayerID()
	if playerID == "" {
		c.sendError("not_identified", "must send hello first")
		return
	}

	if err := c.service.LeaveTable(c, data.TableID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}
}

func (c *Conn) handleListTables() {
	msg, err := NewMessage(MessageTypeTableList, TableListData{Tables: c.service.ListTables()})
	if err != nil {
		c.logger.Error("failed to create table list", "error", err)
		return
	}
	_ = c.Send(msg)
}

func (c *Conn) handleAction(data ActionData) {
	playerID := c.PlayerID()
	if playerID == "" {
		c.sendError("not_identified", "must send hello first")
		return
	}

	c.service.SubmitAction(c, data)
}

func (c *Conn) handleChat(data ChatData) {
	playerID := c.PlayerID()
	if playerID == "" {
		c.sendError("not_identified", "must send hello first")
		return
	}

	c.service.Chat(c, data)
}
