package server

import (
	"sync"

	"github.com/charmbracelet/log"
)

// CloseSuperseded is the websocket close code sent to a connection that
// has been replaced by a newer connection for the same player.
const CloseSuperseded = 4100

// Session is one live client connection as the registry sees it. *Conn is
// the production implementation; tests substitute fakes.
type Session interface {
	PlayerID() string
	TableID() string
	SetTable(tableID string)
	Send(msg *Message) error
	Supersede()
}

// Registry maps player IDs to their single live session. It is shared
// across all tables and guarded by its own mutex, so binding or looking
// up a connection never runs on, or blocks, a table actor.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Bind makes s the live session for playerID. Any previous session is
// superseded: it gets the close code and all future traffic goes to s
// only, so a player never receives duplicate broadcasts.
func (r *Registry) Bind(playerID string, s Session) {
	r.mu.Lock()
	old := r.sessions[playerID]
	r.sessions[playerID] = s
	r.mu.Unlock()

	if old != nil && old != s {
		old.Supersede()
	}
}

// Unbind removes the binding, but only if s is still the live session.
// A superseded connection's late cleanup must not evict its replacement.
func (r *Registry) Unbind(playerID string, s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[playerID] != s {
		return false
	}
	delete(r.sessions, playerID)
	return true
}

// Get returns the live session for a player, if any.
func (r *Registry) Get(playerID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[playerID]
	return s, ok
}

// ForTable returns the live sessions currently associated with a table.
func (r *Registry) ForTable(tableID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, s := range r.sessions {
		if s.TableID() == tableID {
			out = append(out, s)
		}
	}
	return out
}

// Broadcaster fans table events out to every session at a table, building
// the message per recipient so redaction is recomputed on every publish.
// Sends are non-blocking; a session that cannot keep up is closed by its
// own send path, never stalling the caller.
type Broadcaster struct {
	registry *Registry
	logger   *log.Logger
}

func NewBroadcaster(registry *Registry, logger *log.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, logger: logger.WithPrefix("broadcast")}
}

// Publish sends build(playerID) to each session at the table. A nil
// message skips that recipient.
func (b *Broadcaster) Publish(tableID string, build func(playerID string) (*Message, error)) {
	for _, s := range b.registry.ForTable(tableID) {
		msg, err := build(s.PlayerID())
		if err != nil {
			b.logger.Error("failed to build message", "player", s.PlayerID(), "error", err)
			continue
		}
		if msg == nil {
			continue
		}
		if err := s.Send(msg); err != nil {
			b.logger.Debug("failed to send to player", "player", s.PlayerID(), "error", err)
		}
	}
}
