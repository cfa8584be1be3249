package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyAll(t *testing.T, s State, champs ...string) State {
	t.Helper()
	for _, c := range champs {
		var err error
		s, err = ApplyChampion(s, c)
		require.NoError(t, err, "apply %s", c)
	}
	return s
}

func fullDraft() []string {
	out := make([]string, TotalTurns)
	for i := range out {
		out[i] = fmt.Sprintf("Champ%02d", i)
	}
	return out
}

func TestFirstBanPhaseScenario(t *testing.T) {
	s := applyAll(t, NewEmptyState(), "A", "B", "C", "D", "E", "F")

	assert.Equal(t, 6, s.Cursor)
	step, done := CurrentStep(s)
	assert.False(t, done)
	assert.Equal(t, TurnStep{Team: TeamBlue, Action: ActionPick}, step)
	assert.Equal(t, []string{"A", "C", "E"}, s.Bans[TeamBlue])
	assert.Equal(t, []string{"B", "D", "F"}, s.Bans[TeamRed])
	assert.Equal(t, PhasePick1, s.Phase)
}

func TestDuplicateIsRejected(t *testing.T) {
	s := applyAll(t, NewEmptyState(), "A", "B", "C", "D", "E", "F")

	for _, c := range []string{"A", "B", "C", "D", "E", "F", "a", " f "} {
		t.Run(c, func(t *testing.T) {
			next, err := ApplyChampion(s, c)
			if !errors.Is(err, ErrAlreadyUsed) {
				t.Fatalf("want ErrAlreadyUsed, got %v", err)
			}
			if next.Cursor != 6 {
				t.Fatalf("cursor moved to %d", next.Cursor)
			}
		})
	}
	assert.Equal(t, 6, s.Cursor)
	assert.Len(t, Used(s), 6)
}

func TestApplyAfterCompletion(t *testing.T) {
	s := applyAll(t, NewEmptyState(), fullDraft()...)
	require.Equal(t, TotalTurns, s.Cursor)
	require.Equal(t, PhaseDone, s.Phase)

	next, err := ApplyChampion(s, "Late")
	assert.ErrorIs(t, err, ErrOutOfPhase)
	assert.Equal(t, TotalTurns, next.Cursor)
	assert.Len(t, Used(next), TotalTurns)
}

func TestEveryStepFollowsGameOrder(t *testing.T) {
	s := NewEmptyState()
	for i, c := range fullDraft() {
		step, done := CurrentStep(s)
		require.False(t, done)
		require.Equal(t, GameOrder[i], step)

		events, next, err := Apply(s, Command{Type: CmdApply, Champion: c})
		require.NoError(t, err)
		require.Equal(t, s.Cursor+1, next.Cursor)
		require.True(t, ContainsEvent(events, EvtTurnAdvanced))

		var list []string
		if step.Action == ActionBan {
			list = next.Bans[step.Team]
		} else {
			list = next.Picks[step.Team]
		}
		require.Equal(t, c, list[len(list)-1])
		require.Len(t, Used(next), next.Cursor)

		if i == TotalTurns-1 {
			require.True(t, ContainsEvent(events, EvtGameCompleted))
		}
		s = next
	}
	assert.Len(t, s.Bans[TeamBlue], 5)
	assert.Len(t, s.Bans[TeamRed], 5)
	assert.Len(t, s.Picks[TeamBlue], 5)
	assert.Len(t, s.Picks[TeamRed], 5)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := applyAll(t, NewEmptyState(), "A")
	_, err := ApplyChampion(s, "B")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Cursor)
	assert.Empty(t, s.Bans[TeamRed])
}

func TestTypedCommandsCheckTurn(t *testing.T) {
	cases := []struct {
		name    string
		cursor  int
		cmd     Command
		wantErr error
	}{
		{"blue ban on blue ban", 0, Command{Type: CmdBanChampion, Team: TeamBlue, Champion: "Ahri"}, nil},
		{"red ban on blue ban", 0, Command{Type: CmdBanChampion, Team: TeamRed, Champion: "Ahri"}, ErrWrongTurn},
		{"pick during ban", 0, Command{Type: CmdLockPick, Team: TeamBlue, Champion: "Ahri"}, ErrWrongTurn},
		{"red pick 1", 7, Command{Type: CmdLockPick, Team: TeamRed, Champion: "Ahri"}, nil},
		{"empty name", 0, Command{Type: CmdApply, Champion: "  "}, ErrEmptyChampion},
		{"unknown", 0, Command{Type: "Hover", Champion: "Ahri"}, ErrUnsupportedCommand},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewEmptyState()
			s.Cursor = tc.cursor
			_, _, err := Apply(s, tc.cmd)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOrderLookup(t *testing.T) {
	cases := []struct {
		name        string
		cursor      int
		expectedVal TurnStep
	}{
		{"Red Team Pick 1", 7, TurnStep{Team: TeamRed, Action: ActionPick}},
		{"Red Team Ban 1", 1, TurnStep{Team: TeamRed, Action: ActionBan}},
		{"Red Team Ban 4", 14, TurnStep{Team: TeamRed, Action: ActionBan}},
		{"Blue Team Pick 2", 9, TurnStep{Team: TeamBlue, Action: ActionPick}},
		{"Red Team Pick 5", 19, TurnStep{Team: TeamRed, Action: ActionPick}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step, _ := CurrentStep(State{Cursor: tc.cursor})
			if step != tc.expectedVal {
				t.Fatalf("got %#v, want %#v", step, tc.expectedVal)
			}
		})
	}

	_, done := CurrentStep(State{Cursor: TotalTurns})
	assert.True(t, done)
	_, done = NextStep(State{Cursor: TotalTurns - 1})
	assert.True(t, done)
}

func TestResolveSides(t *testing.T) {
	named := func(home Team, cursor int) State {
		s := NewEmptyState()
		s.Names[TeamBlue] = "T1"
		s.Names[TeamRed] = "GEN"
		s.HomeSide = home
		s.Cursor = cursor
		return s
	}

	cases := []struct {
		name  string
		state State
		want  Sides
	}{
		{"home blue on red turn", named(TeamBlue, 1), Sides{TeamBlue, TeamRed, "T1", "GEN"}},
		{"home red on blue turn", named(TeamRed, 0), Sides{TeamRed, TeamBlue, "GEN", "T1"}},
		{"unset follows turn", named(TeamUnset, 7), Sides{TeamRed, TeamBlue, "GEN", "T1"}},
		{"unset complete defaults blue", named(TeamUnset, TotalTurns), Sides{TeamBlue, TeamRed, "T1", "GEN"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveSides(tc.state))
		})
	}

	// Recomputed on every call.
	s := named(TeamUnset, 0)
	assert.Equal(t, TeamBlue, ResolveSides(s).Suggesting)
	s = applyAll(t, s, "A")
	assert.Equal(t, TeamRed, ResolveSides(s).Suggesting)
}

func TestReduceReplaysEvents(t *testing.T) {
	s := NewEmptyState()
	s.HomeSide = TeamRed
	var log []Event
	for _, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		events, next, err := Apply(s, Command{Type: CmdApply, Champion: c})
		require.NoError(t, err)
		log = append(log, events...)
		s = next
	}

	replayed := Reduce(s, log)
	assert.Equal(t, s, replayed)

	trimmed, ok := TrimLastAction(log)
	require.True(t, ok)
	undone := Reduce(s, trimmed)
	assert.Equal(t, 6, undone.Cursor)
	assert.Empty(t, undone.Picks[TeamBlue])
	assert.Equal(t, TeamRed, undone.HomeSide)

	_, ok = TrimLastAction(nil)
	assert.False(t, ok)
}

func TestChooseRandomLegalOnlyOffersAvailable(t *testing.T) {
	s := applyAll(t, NewEmptyState(), "A", "B")
	pool := []string{"A", "B", "C"}
	for i := 0; i < 20; i++ {
		c, ok := ChooseRandomLegal(s, pool)
		require.True(t, ok)
		require.Equal(t, "C", c)
	}
	s = applyAll(t, s, "C")
	_, ok := ChooseRandomLegal(s, pool)
	assert.False(t, ok)
}

func TestWithHypothetical(t *testing.T) {
	s := applyAll(t, NewEmptyState(), "A", "B", "C", "D", "E", "F")
	h, ok := WithHypothetical(s, "G")
	require.True(t, ok)
	assert.Equal(t, []string{"G"}, h.Picks[TeamBlue])
	assert.Empty(t, s.Picks[TeamBlue])

	done := applyAll(t, NewEmptyState(), fullDraft()...)
	_, ok = WithHypothetical(done, "X")
	assert.False(t, ok)
}

func TestParseTeam(t *testing.T) {
	for in, want := range map[string]Team{"Blue": TeamBlue, "red": TeamRed, "": TeamUnset, "unset": TeamUnset} {
		got, err := ParseTeam(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTeam("green")
	assert.ErrorIs(t, err, ErrInvalidSide)
}
