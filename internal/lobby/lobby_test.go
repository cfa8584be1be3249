package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func newTestLobby(t *testing.T, init engine.State) *Lobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewLobby(ctx, init, WithLogger(zaptest.NewLogger(t)))
}

func apply(t *testing.T, l *Lobby, champion string) (Snapshot, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.Call(ctx, func(reply chan Result) Msg {
		return FromClient{Cmd: engine.Command{Type: engine.CmdApply, Champion: champion}, Reply: reply}
	})
}

func TestLobby_Pick_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	init := engine.NewEmptyState()
	for _, c := range []string{"A", "B", "C", "D", "E", "F"} {
		var err error
		init, err = engine.ApplyChampion(init, c)
		require.NoError(t, err)
	}
	l := newTestLobby(t, init)

	clientOut := make(chan Snapshot, 2) // small buffer so broadcast doesn’t block
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Empty(t, first.State.Picks[engine.TeamBlue])

	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdLockPick, Team: engine.TeamBlue, Champion: "Azir"}}

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, []string{"Azir"}, next.State.Picks[engine.TeamBlue])
	assert.Equal(t, 7, next.State.Cursor)

	l.Inbox() <- Shutdown{}
}

func TestLobby_RejectedActionLeavesStateUnchanged(t *testing.T) {
	l := newTestLobby(t, engine.NewEmptyState())
	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	_, err := apply(t, l, "Azir")
	require.NoError(t, err)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	snap, err := apply(t, l, " azir ")
	assert.ErrorIs(t, err, engine.ErrAlreadyUsed)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, 1, snap.State.Cursor)
	recvNoSnapshot(t, out, 50*time.Millisecond)
}

func TestLobby_UndoAndReset(t *testing.T) {
	init := engine.NewEmptyState()
	init.Names[engine.TeamBlue] = "T1"
	l := newTestLobby(t, init)
	ctx := context.Background()

	_, err := l.Call(ctx, func(r chan Result) Msg { return Undo{Reply: r} })
	assert.ErrorIs(t, err, engine.ErrNothingToUndo)

	for _, c := range []string{"A", "B", "C"} {
		_, err := apply(t, l, c)
		require.NoError(t, err)
	}
	_, err = l.Call(ctx, func(r chan Result) Msg { return SetHome{Side: engine.TeamRed, Reply: r} })
	require.NoError(t, err)

	snap, err := l.Call(ctx, func(r chan Result) Msg { return Undo{Reply: r} })
	require.NoError(t, err)
	assert.Equal(t, 2, snap.State.Cursor)
	assert.Equal(t, []string{"A"}, snap.State.Bans[engine.TeamBlue])
	assert.Equal(t, []string{"B"}, snap.State.Bans[engine.TeamRed])
	assert.Equal(t, engine.TeamRed, snap.State.HomeSide)
	assert.Equal(t, "T1", snap.State.Names[engine.TeamBlue])

	// the undone champion is legal again
	snap, err = apply(t, l, "C")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.State.Cursor)

	snap, err = l.Call(ctx, func(r chan Result) Msg { return Reset{Reply: r} })
	require.NoError(t, err)
	assert.Equal(t, 0, snap.State.Cursor)
	assert.Equal(t, engine.PhaseBan1, snap.State.Phase)
	assert.Empty(t, snap.State.Bans[engine.TeamBlue])
	assert.Equal(t, engine.TeamRed, snap.State.HomeSide)
	assert.Equal(t, "T1", snap.State.Names[engine.TeamBlue])

	v, err := l.View(ctx)
	require.NoError(t, err)
	assert.Empty(t, v.Events)
}

func TestLobby_SetHomeToggles(t *testing.T) {
	l := newTestLobby(t, engine.NewEmptyState())
	ctx := context.Background()
	set := func(side engine.Team) (Snapshot, error) {
		return l.Call(ctx, func(r chan Result) Msg { return SetHome{Side: side, Reply: r} })
	}

	snap, err := set(engine.TeamBlue)
	require.NoError(t, err)
	assert.Equal(t, engine.TeamBlue, snap.State.HomeSide)

	snap, err = set(engine.TeamRed)
	require.NoError(t, err)
	assert.Equal(t, engine.TeamRed, snap.State.HomeSide)

	snap, err = set(engine.TeamRed)
	require.NoError(t, err)
	assert.Equal(t, engine.TeamUnset, snap.State.HomeSide)

	_, err = set(engine.Team("green"))
	assert.ErrorIs(t, err, engine.ErrInvalidSide)
}

func TestLobby_SetTeamsDefaultsEmptyNames(t *testing.T) {
	l := newTestLobby(t, engine.NewEmptyState())
	snap, err := l.Call(context.Background(), func(r chan Result) Msg {
		return SetTeams{Blue: "  T1 ", Red: "", Reply: r}
	})
	require.NoError(t, err)
	assert.Equal(t, "T1", snap.State.Names[engine.TeamBlue])
	assert.Equal(t, engine.DefaultRedName, snap.State.Names[engine.TeamRed])
}

func TestLobby_Random(t *testing.T) {
	orig := engine.ChooseRandomLegal
	t.Cleanup(func() { engine.ChooseRandomLegal = orig })
	engine.ChooseRandomLegal = func(s engine.State, pool []string) (string, bool) {
		avail := engine.Available(s, pool)
		if len(avail) == 0 {
			return "", false
		}
		return avail[0], true
	}

	l := newTestLobby(t, engine.NewEmptyState())
	ctx := context.Background()
	random := func(pool []string) (Snapshot, error) {
		return l.Call(ctx, func(r chan Result) Msg { return Random{Pool: pool, Reply: r} })
	}

	snap, err := random([]string{"Azir", "Ahri"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Azir"}, snap.State.Bans[engine.TeamBlue])

	snap, err = random([]string{"Azir", "Ahri"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ahri"}, snap.State.Bans[engine.TeamRed])

	_, err = random([]string{"Azir", "Ahri"})
	assert.ErrorIs(t, err, ErrNoChampionAvailable)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newTestLobby(t, engine.NewEmptyState())

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	// join snapshot fills the buffer; the next broadcast drops the client
	_, err := apply(t, l, "Azir")
	require.NoError(t, err)

	view, err := l.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients)
}

func TestLobby_Shutdown_ClosesClientsAndRejectsCalls(t *testing.T) {
	l := newTestLobby(t, engine.NewEmptyState())

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond)

	l.Inbox() <- Shutdown{}
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}

	_, ok := <-out
	assert.False(t, ok, "outbox should be closed on shutdown")

	_, err := apply(t, l, "Azir")
	assert.ErrorIs(t, err, ErrClosed)
}
