package server

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is an in-memory Session for exercising the registry and
// service without a websocket.
type fakeSession struct {
	mu         sync.Mutex
	player     string
	tableID    string
	msgs       []*Message
	superseded bool
}

func newFakeSession(playerID string) *fakeSession {
	return &fakeSession{player: playerID}
}

func (f *fakeSession) PlayerID() string { return f.player }

func (f *fakeSession) TableID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tableID
}

func (f *fakeSession) SetTable(tableID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableID = tableID
}

func (f *fakeSession) Send(msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSession) Supersede() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.superseded = true
}

func (f *fakeSession) wasSuperseded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.superseded
}

// messages returns a copy of everything sent so far.
func (f *fakeSession) messages() []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Message(nil), f.msgs...)
}

// messagesOfType filters received messages by type.
func (f *fakeSession) messagesOfType(mt MessageType) []*Message {
	var out []*Message
	for _, m := range f.messages() {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	return out
}

// lastOfType decodes the most recent message of the given type into v.
func (f *fakeSession) lastOfType(t *testing.T, mt MessageType, v interface{}) {
	t.Helper()
	msgs := f.messagesOfType(mt)
	require.NotEmpty(t, msgs, "no %s message received", mt)
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Data, v))
}

func TestRegistryBindSupersedesOldSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := newFakeSession("p1")
	second := newFakeSession("p1")

	r.Bind("p1", first)
	r.Bind("p1", second)

	assert.True(t, first.wasSuperseded())
	assert.False(t, second.wasSuperseded())

	live, ok := r.Get("p1")
	require.True(t, ok)
	assert.Same(t, second, live.(*fakeSession))
}

func TestRegistryUnbindIgnoresStaleSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := newFakeSession("p1")
	second := newFakeSession("p1")

	r.Bind("p1", first)
	r.Bind("p1", second)

	// The superseded connection's cleanup arrives late; it must not
	// evict the replacement.
	assert.False(t, r.Unbind("p1", first))
	_, ok := r.Get("p1")
	assert.True(t, ok)

	assert.True(t, r.Unbind("p1", second))
	_, ok = r.Get("p1")
	assert.False(t, ok)
}

func TestRegistryForTable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := newFakeSession("a")
	a.SetTable("t1")
	b := newFakeSession("b")
	b.SetTable("t1")
	c := newFakeSession("c")
	c.SetTable("t2")

	r.Bind("a", a)
	r.Bind("b", b)
	r.Bind("c", c)

	assert.Len(t, r.ForTable("t1"), 2)
	assert.Len(t, r.ForTable("t2"), 1)
	assert.Empty(t, r.ForTable("t3"))
}
