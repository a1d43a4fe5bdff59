package server

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/cardroomhq/cardroom/internal/table"
)

const maxChatLength = 500

// Service owns the set of tables and routes between connections and table
// actors. It implements table.Listener: table events arrive on the
// emitting table's actor goroutine and are fanned out through the
// broadcaster without blocking, each recipient getting a freshly redacted
// view.
type Service struct {
	logger      *log.Logger
	registry    *Registry
	broadcaster *Broadcaster

	mu       sync.RWMutex
	tables   map[string]*table.Table
	names    map[string]string // table ID -> display name
	seating  map[string]string // player ID -> table ID
	displays map[string]string // player ID -> display name
}

// NewService creates a service with an empty table set.
func NewService(logger *log.Logger) *Service {
	registry := NewRegistry()
	return &Service{
		logger:      logger.WithPrefix("service"),
		registry:    registry,
		broadcaster: NewBroadcaster(registry, logger),
		tables:      make(map[string]*table.Table),
		names:       make(map[string]string),
		seating:     make(map[string]string),
		displays:    make(map[string]string),
	}
}

// Registry exposes the connection registry, shared with the server.
func (s *Service) Registry() *Registry { return s.registry }

// AddTable registers a table under its ID. The service subscribes to the
// table's events at construction time via WithListener.
func (s *Service) AddTable(tbl *table.Table, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tbl.ID()] = tbl
	s.names[tbl.ID()] = name
}

// Close shuts down every table actor.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tbl := range s.tables {
		tbl.Close()
	}
}

func (s *Service) tableByID(tableID string) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", tableID)
	}
	return tbl, nil
}

// Connect binds the session as the player's single live connection,
// superseding any previous one. A player already holding a seat gets a
// fresh snapshot immediately: disconnection never vacated the seat, so
// this is all a reconnect needs to resume.
func (s *Service) Connect(sess Session, playerID, displayName string) {
	s.registry.Bind(playerID, sess)
	s.logger.Info("player connected", "player", playerID, "name", displayName)

	s.mu.Lock()
	if displayName != "" {
		s.displays[playerID] = displayName
	}
	tableID := s.seating[playerID]
	s.mu.Unlock()
	if tableID == "" {
		return
	}

	tbl, err := s.tableByID(tableID)
	if err != nil {
		return
	}
	sess.SetTable(tableID)

	msg, err := NewMessage(MessageTypePlayerReconnected, PlayerReconnectedData{
		TableID:  tableID,
		PlayerID: playerID,
	})
	if err == nil {
		s.broadcaster.Publish(tableID, func(string) (*Message, error) { return msg, nil })
	}
	s.sendSnapshot(sess, tbl)
}

// Disconnect is called when a session's transport drops. The seat stays
// occupied and the turn timer keeps running; only the connection binding
// is released. A superseded session's late disconnect is a no-op.
func (s *Service) Disconnect(sess Session) {
	playerID := sess.PlayerID()
	if playerID == "" {
		return
	}
	if !s.registry.Unbind(playerID, sess) {
		return
	}

	tableID := sess.TableID()
	s.logger.Info("player disconnected", "player", playerID, "table", tableID)
	if tableID == "" {
		return
	}

	msg, err := NewMessage(MessageTypePlayerDisconnected, PlayerDisconnectedData{
		TableID:  tableID,
		PlayerID: playerID,
	})
	if err != nil {
		return
	}
	s.broadcaster.Publish(tableID, func(string) (*Message, error) { return msg, nil })
}

// JoinTable seats the player and replies with their first snapshot.
func (s *Service) JoinTable(sess Session, tableID string, buyIn int) error {
	tbl, err := s.tableByID(tableID)
	if err != nil {
		return err
	}

	s.mu.RLock()
	name := s.displays[sess.PlayerID()]
	s.mu.RUnlock()
	if name == "" {
		name = sess.PlayerID()
	}

	if err := tbl.AddPlayer(sess.PlayerID(), name, buyIn); err != nil {
		return err
	}

	s.mu.Lock()
	s.seating[sess.PlayerID()] = tableID
	s.mu.Unlock()
	sess.SetTable(tableID)

	s.sendSnapshot(sess, tbl)
	return nil
}

// LeaveTable unseats the player, cashing out through the ledger.
func (s *Service) LeaveTable(sess Session, tableID string) error {
	tbl, err := s.tableByID(tableID)
	if err != nil {
		return err
	}

	if err := tbl.RemovePlayer(sess.PlayerID()); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.seating, sess.PlayerID())
	s.mu.Unlock()
	sess.SetTable("")
	return nil
}

// SubmitAction forwards a betting action to the table actor. Rejections
// go back to the requester only; accepted actions surface to everyone
// through the table's own state events.
func (s *Service) SubmitAction(sess Session, data ActionData) {
	tableID := data.TableID
	if tableID == "" {
		tableID = sess.TableID()
	}

	reply := func(reason table.RejectReason, detail string) {
		msg, err := NewMessage(MessageTypeActionRejected, ActionRejectedData{
			TableID: tableID,
			Reason:  string(reason),
			Detail:  detail,
		})
		if err != nil {
			return
		}
		_ = sess.Send(msg)
	}

	tbl, err := s.tableByID(tableID)
	if err != nil {
		reply(table.ReasonNotSeated, err.Error())
		return
	}

	action, err := table.ParseAction(data.Action)
	if err != nil {
		reply("invalid_action", err.Error())
		return
	}

	if err := tbl.SubmitAction(sess.PlayerID(), action, data.Amount); err != nil {
		reason, ok := table.ReasonOf(err)
		if !ok {
			reason = "internal_error"
		}
		reply(reason, err.Error())
	}
}

// Chat relays a chat line to everyone at the table. Nothing is stored.
func (s *Service) Chat(sess Session, data ChatData) {
	tableID := data.TableID
	if tableID == "" {
		tableID = sess.TableID()
	}
	if tableID == "" || data.Text == "" {
		return
	}
	text := data.Text
	if len(text) > maxChatLength {
		text = text[:maxChatLength]
	}

	msg, err := NewMessage(MessageTypeChatRelay, ChatRelayData{
		TableID:  tableID,
		PlayerID: sess.PlayerID(),
		Text:     text,
	})
	if err != nil {
		return
	}
	s.broadcaster.Publish(tableID, func(string) (*Message, error) { return msg, nil })
}

// ListTables summarizes every table for the lobby.
func (s *Service) ListTables() []TableInfo {
	s.mu.RLock()
	tables := make(map[string]*table.Table, len(s.tables))
	names := make(map[string]string, len(s.names))
	for id, tbl := range s.tables {
		tables[id] = tbl
		names[id] = s.names[id]
	}
	s.mu.RUnlock()

	out := make([]TableInfo, 0, len(tables))
	for id, tbl := range tables {
		cfg := tbl.Config()
		info := TableInfo{
			ID:         id,
			Name:       names[id],
			MaxPlayers: cfg.MaxSeats,
			Stakes:     fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind),
		}
		if snap, err := tbl.Snapshot(); err == nil {
			info.PlayerCount = len(snap.Seats)
			info.Status = snap.Status
		}
		out = append(out, info)
	}
	return out
}

// OnTableEvent implements table.Listener. It runs on the table actor
// goroutine; everything here must stay non-blocking.
func (s *Service) OnTableEvent(ev table.Event) {
	switch e := ev.(type) {
	case table.StateChangedEvent:
		s.publishSnapshot(e.Snapshot)

	case table.HandEndedEvent:
		s.publishHandEnded(e)

	case table.PlayerJoinedEvent:
		msg, err := NewMessage(MessageTypePlayerJoined, PlayerJoinedData{
			TableID:  e.Snapshot.TableID,
			PlayerID: e.PlayerID,
			Name:     e.Name,
			Seat:     e.Seat,
		})
		if err == nil {
			s.broadcaster.Publish(e.Snapshot.TableID, func(string) (*Message, error) { return msg, nil })
		}
		s.publishSnapshot(e.Snapshot)

	case table.PlayerLeftEvent:
		msg, err := NewMessage(MessageTypePlayerLeft, PlayerLeftData{
			TableID:  e.Snapshot.TableID,
			PlayerID: e.PlayerID,
		})
		if err == nil {
			s.broadcaster.Publish(e.Snapshot.TableID, func(string) (*Message, error) { return msg, nil })
		}
		s.publishSnapshot(e.Snapshot)
	}
}

func (s *Service) publishSnapshot(snap table.Snapshot) {
	s.broadcaster.Publish(snap.TableID, func(playerID string) (*Message, error) {
		return NewMessage(MessageTypeSnapshot, SnapshotData{Table: snap.RedactFor(playerID)})
	})
}

func (s *Service) publishHandEnded(e table.HandEndedEvent) {
	winners := winnerInfos(e.Winners)
	s.broadcaster.Publish(e.Snapshot.TableID, func(playerID string) (*Message, error) {
		return NewMessage(MessageTypeRoundComplete, RoundCompleteData{
			TableID:  e.Snapshot.TableID,
			HandID:   e.Snapshot.HandID,
			Winners:  winners,
			Showdown: e.Showdown,
			Table:    e.Snapshot.RedactFor(playerID),
		})
	})
}

// sendSnapshot pushes the player's redacted view of a table directly to
// one session.
func (s *Service) sendSnapshot(sess Session, tbl *table.Table) {
	snap, err := tbl.Snapshot()
	if err != nil {
		s.logger.Error("failed to snapshot table", "table", tbl.ID(), "error", err)
		return
	}
	msg, err := NewMessage(MessageTypeSnapshot, SnapshotData{Table: snap.RedactFor(sess.PlayerID())})
	if err != nil {
		return
	}
	_ = sess.Send(msg)
}
