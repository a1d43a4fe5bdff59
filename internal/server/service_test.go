package server

import (
	"io"
	"math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomhq/cardroom/internal/randutil"
	"github.com/cardroomhq/cardroom/internal/table"
)

func newTestService(t *testing.T) (*Service, *table.Table) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	svc := NewService(logger)

	cfg := table.Config{
		SmallBlind: 5,
		BigBlind:   10,
		MinBuyIn:   100,
		MaxBuyIn:   1000,
		MaxSeats:   6,
	}
	tbl := table.New(cfg, logger,
		table.WithID("main"),
		table.WithListener(svc),
		table.WithClock(quartz.NewMock(t)),
		table.WithRNG(func() *rand.Rand { return randutil.New(7) }),
	)
	svc.AddTable(tbl, "Main Table")
	t.Cleanup(tbl.Close)
	return svc, tbl
}

// seatTwo connects and seats two players, which starts a hand.
func seatTwo(t *testing.T, svc *Service) (*fakeSession, *fakeSession) {
	t.Helper()
	s1 := newFakeSession("p1")
	s2 := newFakeSession("p2")
	svc.Connect(s1, "p1", "Alice")
	svc.Connect(s2, "p2", "Bob")
	require.NoError(t, svc.JoinTable(s1, "main", 500))
	require.NoError(t, svc.JoinTable(s2, "main", 500))
	return s1, s2
}

func seatOf(t *testing.T, snap table.Snapshot, playerID string) table.SeatView {
	t.Helper()
	for _, sv := range snap.Seats {
		if sv.PlayerID == playerID {
			return sv
		}
	}
	t.Fatalf("player %s not found in snapshot", playerID)
	return table.SeatView{}
}

func TestJoinTableRedactsSnapshotsPerRecipient(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	var v1, v2 SnapshotData
	s1.lastOfType(t, MessageTypeSnapshot, &v1)
	s2.lastOfType(t, MessageTypeSnapshot, &v2)

	assert.Equal(t, "preflop", v1.Table.Street)

	// Each player sees their own hole cards and only card backs for the
	// opponent.
	own1 := seatOf(t, v1.Table, "p1")
	other1 := seatOf(t, v1.Table, "p2")
	assert.Len(t, own1.HoleCards, 2)
	assert.Empty(t, other1.HoleCards)
	assert.True(t, other1.HasHoleCards)

	own2 := seatOf(t, v2.Table, "p2")
	other2 := seatOf(t, v2.Table, "p1")
	assert.Len(t, own2.HoleCards, 2)
	assert.Empty(t, other2.HoleCards)

	assert.NotEqual(t, own1.HoleCards, own2.HoleCards)
}

func TestJoinTableAnnouncesPlayer(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, _ := seatTwo(t, svc)

	var joined PlayerJoinedData
	s1.lastOfType(t, MessageTypePlayerJoined, &joined)
	assert.Equal(t, "p2", joined.PlayerID)
	assert.Equal(t, "Bob", joined.Name)
}

func TestReconnectSupersedesAndResumesFromSnapshot(t *testing.T) {
	t.Parallel()

	svc, tbl := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	replacement := newFakeSession("p1")
	svc.Connect(replacement, "p1", "Alice")

	assert.True(t, s1.wasSuperseded())

	var notice PlayerReconnectedData
	s2.lastOfType(t, MessageTypePlayerReconnected, &notice)
	assert.Equal(t, "p1", notice.PlayerID)

	// The new connection is immediately caught up with a redacted view
	// of the running hand; the seat never became vacant.
	var v SnapshotData
	replacement.lastOfType(t, MessageTypeSnapshot, &v)
	assert.Equal(t, "preflop", v.Table.Street)
	assert.Len(t, seatOf(t, v.Table, "p1").HoleCards, 2)
	assert.Empty(t, seatOf(t, v.Table, "p2").HoleCards)

	snap, err := tbl.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.RedactFor("p1").Seats, v.Table.Seats)
}

func TestDisconnectKeepsSeat(t *testing.T) {
	t.Parallel()

	svc, tbl := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	svc.Disconnect(s1)

	var notice PlayerDisconnectedData
	s2.lastOfType(t, MessageTypePlayerDisconnected, &notice)
	assert.Equal(t, "p1", notice.PlayerID)

	snap, err := tbl.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "p1", seatOf(t, snap, "p1").PlayerID)
	assert.Equal(t, "running", snap.Status)
}

func TestStaleDisconnectAfterSupersedeIsIgnored(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	replacement := newFakeSession("p1")
	svc.Connect(replacement, "p1", "Alice")

	// The old transport finally times out; the replacement must stay
	// bound and nobody is told the player left.
	before := len(s2.messagesOfType(MessageTypePlayerDisconnected))
	svc.Disconnect(s1)
	assert.Len(t, s2.messagesOfType(MessageTypePlayerDisconnected), before)

	live, ok := svc.Registry().Get("p1")
	require.True(t, ok)
	assert.Same(t, replacement, live.(*fakeSession))
}

func TestActionRejectionGoesToRequesterOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	// Heads-up, p1 took the first seat so p1 acts first; p2 is out of
	// turn.
	svc.SubmitAction(s2, ActionData{TableID: "main", Action: "call"})

	var rejected ActionRejectedData
	s2.lastOfType(t, MessageTypeActionRejected, &rejected)
	assert.Equal(t, string(table.ReasonNotYourTurn), rejected.Reason)
	assert.Empty(t, s1.messagesOfType(MessageTypeActionRejected))
}

func TestAcceptedActionBroadcastsNewState(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	svc.SubmitAction(s1, ActionData{TableID: "main", Action: "call"})

	assert.Empty(t, s1.messagesOfType(MessageTypeActionRejected))

	var v SnapshotData
	s2.lastOfType(t, MessageTypeSnapshot, &v)
	assert.Equal(t, 20, v.Table.Pot)
	assert.Equal(t, seatOf(t, v.Table, "p2").Index, v.Table.TurnSeat)
}

func TestInvalidActionVerbRejected(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, s2 := seatTwo(t, svc)

	svc.SubmitAction(s2, ActionData{TableID: "main", Action: "dance"})

	var rejected ActionRejectedData
	s2.lastOfType(t, MessageTypeActionRejected, &rejected)
	assert.Equal(t, "invalid_action", rejected.Reason)
}

func TestChatRelaysToWholeTable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	svc.Chat(s1, ChatData{TableID: "main", Text: "good luck"})

	for _, sess := range []*fakeSession{s1, s2} {
		var chat ChatRelayData
		sess.lastOfType(t, MessageTypeChatRelay, &chat)
		assert.Equal(t, "p1", chat.PlayerID)
		assert.Equal(t, "good luck", chat.Text)
	}
}

func TestFoldOutEndsHandWithoutReveal(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	svc.SubmitAction(s1, ActionData{TableID: "main", Action: "fold"})

	var done RoundCompleteData
	s2.lastOfType(t, MessageTypeRoundComplete, &done)
	require.Len(t, done.Winners, 1)
	assert.Equal(t, "p2", done.Winners[0].PlayerID)
	assert.Equal(t, 15, done.Winners[0].Amount)
	assert.Empty(t, done.Winners[0].Category)
	assert.False(t, done.Showdown)

	// Nobody's cards hit the wire on a fold-out, not even the winner's
	// to the loser.
	var v1 RoundCompleteData
	s1.lastOfType(t, MessageTypeRoundComplete, &v1)
	assert.Empty(t, seatOf(t, v1.Table, "p2").HoleCards)
	assert.Empty(t, seatOf(t, done.Table, "p1").HoleCards)
}

func TestLeaveTableCashesOut(t *testing.T) {
	t.Parallel()

	svc, tbl := newTestService(t)
	s1, s2 := seatTwo(t, svc)

	require.NoError(t, svc.LeaveTable(s1, "main"))
	assert.Equal(t, "", s1.TableID())

	var left PlayerLeftData
	s2.lastOfType(t, MessageTypePlayerLeft, &left)
	assert.Equal(t, "p1", left.PlayerID)

	snap, err := tbl.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Seats, 1)
	assert.Equal(t, "p2", snap.Seats[0].PlayerID)
}

func TestListTables(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	seatTwo(t, svc)

	tables := svc.ListTables()
	require.Len(t, tables, 1)
	assert.Equal(t, "main", tables[0].ID)
	assert.Equal(t, "Main Table", tables[0].Name)
	assert.Equal(t, "5/10", tables[0].Stakes)
	assert.Equal(t, 2, tables[0].PlayerCount)
	assert.Equal(t, "running", tables[0].Status)
}

func TestJoinUnknownTable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	s1 := newFakeSession("p1")
	svc.Connect(s1, "p1", "Alice")

	err := svc.JoinTable(s1, "nope", 500)
	assert.Error(t, err)
}
