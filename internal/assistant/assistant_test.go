package assistant

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/lol-draft-assistant/internal/advisory"
	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/hub"
	"github.com/DoyleJ11/lol-draft-assistant/internal/oracle"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
	"github.com/DoyleJ11/lol-draft-assistant/internal/store"
)

var testPool = []string{"Ahri", "Azir", "Jax", "Rell", "Varus"}

// every picked Azir adds 0.1 to red, a banned Jax takes 0.05 off
func stubOracle(_ context.Context, f oracle.Features) (oracle.Prediction, error) {
	red := 0.5
	for _, c := range f.Picks {
		if c == "Azir" {
			red += 0.1
		}
	}
	for _, c := range f.Bans {
		if c == "Jax" {
			red -= 0.05
		}
	}
	return oracle.Prediction{Team: red, Opponent: 1 - red}, nil
}

type fixture struct {
	svc *Service
	hub *hub.Hub
}

func newFixture(t *testing.T, o oracle.Oracle, svc advisory.Service, opts ...Option) fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zaptest.NewLogger(t)
	h := hub.NewHub(ctx, hub.WithLogger(logger))
	agg := stats.NewAggregator(stats.WithLogger(logger))
	ranker := delta.New(o, delta.WithWorkers(4), delta.WithLogger(logger))
	coord := advisory.NewCoordinator(svc, logger, nil)

	opts = append([]Option{WithLogger(logger), WithChampionPool(testPool)}, opts...)
	return fixture{svc: New(h, agg, ranker, coord, opts...), hub: h}
}

func TestGenerateCode(t *testing.T) {
	code := GenerateCode()
	assert.Len(t, code, codeLength)
	for _, r := range code {
		assert.Contains(t, codeCharset, string(r))
	}
}

func TestDraftLifecycle(t *testing.T) {
	f := newFixture(t, oracle.Func(stubOracle), nil)
	ctx := context.Background()

	code, snap, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.State.Cursor)

	_, err = f.svc.ApplyAction(ctx, "NOPE00", "A")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	for _, c := range []string{"A", "B", "C", "D", "E", "F"} {
		snap, err = f.svc.ApplyAction(ctx, code, c)
		require.NoError(t, err)
	}
	assert.Equal(t, 6, snap.State.Cursor)
	assert.Equal(t, []string{"A", "C", "E"}, snap.State.Bans[engine.TeamBlue])
	assert.Equal(t, []string{"B", "D", "F"}, snap.State.Bans[engine.TeamRed])

	phase, err := f.svc.CurrentPhase(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, engine.TeamBlue, phase.Side)
	assert.Equal(t, engine.ActionPick, phase.Action)
	assert.Equal(t, "blue_pick", phase.Label)

	next, err := f.svc.NextPhase(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "red_pick", next.Label)

	_, err = f.svc.ApplyAction(ctx, code, "c")
	assert.ErrorIs(t, err, engine.ErrAlreadyUsed)
	snap, err = f.svc.Draft(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.State.Cursor)

	snap, err = f.svc.SetTeams(ctx, code, "T1", "GEN")
	require.NoError(t, err)
	assert.Equal(t, "GEN", snap.State.Names[engine.TeamRed])

	snap, err = f.svc.SetHomeSide(ctx, code, engine.TeamRed)
	require.NoError(t, err)
	assert.Equal(t, engine.TeamRed, snap.State.HomeSide)

	snap, err = f.svc.Undo(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.State.Cursor)

	snap, err = f.svc.RandomAction(ctx, code)
	require.NoError(t, err)
	require.Len(t, snap.State.Bans[engine.TeamRed], 3)
	assert.Contains(t, testPool, snap.State.Bans[engine.TeamRed][2])

	snap, err = f.svc.Reset(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.State.Cursor)
	assert.Equal(t, "T1", snap.State.Names[engine.TeamBlue])
}

func TestCompletedDraftPhase(t *testing.T) {
	f := newFixture(t, oracle.Func(stubOracle), nil)
	ctx := context.Background()
	code, _, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)
	for i := range engine.TotalTurns {
		_, err := f.svc.ApplyAction(ctx, code, "C"+string(rune('A'+i)))
		require.NoError(t, err)
	}

	phase, err := f.svc.CurrentPhase(ctx, code)
	require.NoError(t, err)
	assert.True(t, phase.Done)
	assert.Equal(t, "draft_complete", phase.Label)

	_, err = f.svc.ApplyAction(ctx, code, "Azir")
	assert.ErrorIs(t, err, engine.ErrOutOfPhase)

	_, err = f.svc.RankCandidates(ctx, code, delta.PerspectiveSelf)
	assert.ErrorIs(t, err, engine.ErrOutOfPhase)
}

func TestRankCandidates(t *testing.T) {
	f := newFixture(t, oracle.Func(stubOracle), nil)
	ctx := context.Background()
	code, _, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)
	for _, c := range []string{"Rell", "B", "C", "D", "E", "F", "G"} {
		_, err := f.svc.ApplyAction(ctx, code, c)
		require.NoError(t, err)
	}
	// turn 7 is red's pick; Azir raises red's probability
	r, err := f.svc.RankCandidates(ctx, code, delta.PerspectiveSelf)
	require.NoError(t, err)
	assert.Equal(t, engine.TeamRed, r.Sides.Suggesting)
	assert.Equal(t, []string{"Azir", "Ahri", "Jax", "Varus"}, r.Champions())
	assert.InDelta(t, 0.1, r.Candidates[0].Delta, 1e-9)

	opp, err := f.svc.RankCandidates(ctx, code, delta.PerspectiveOpponent)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ahri", "Jax", "Varus", "Azir"}, opp.Champions())
}

func TestRankCandidatesDiscardsStaleResults(t *testing.T) {
	var (
		svc   *Service
		code  string
		calls atomic.Int32
	)
	mutating := oracle.Func(func(ctx context.Context, f oracle.Features) (oracle.Prediction, error) {
		if calls.Add(1) == 1 {
			_, err := svc.ApplyAction(ctx, code, "Varus")
			if err != nil {
				return oracle.Prediction{}, err
			}
		}
		return oracle.Even, nil
	})
	f := newFixture(t, mutating, nil)
	svc = f.svc

	ctx := context.Background()
	var err error
	code, _, err = svc.CreateDraft(ctx)
	require.NoError(t, err)

	r, err := svc.RankCandidates(ctx, code, delta.PerspectiveSelf)
	require.NoError(t, err)
	// the second attempt sees Varus banned by blue and ranks red's ban
	assert.Equal(t, engine.TeamRed, r.Step.Team)
	assert.NotContains(t, r.Champions(), "Varus")
	assert.Len(t, r.Candidates, len(testPool)-1)
}

func TestRankCandidatesGivesUpWhenDraftKeepsMoving(t *testing.T) {
	var (
		svc  *Service
		code string
	)
	mutating := oracle.Func(func(ctx context.Context, f oracle.Features) (oracle.Prediction, error) {
		// every prediction moves the draft
		_, _ = svc.ApplyAction(ctx, code, GenerateCode())
		return oracle.Even, nil
	})
	f := newFixture(t, mutating, nil, WithRankAttempts(2))
	svc = f.svc

	ctx := context.Background()
	var err error
	code, _, err = svc.CreateDraft(ctx)
	require.NoError(t, err)

	_, err = svc.RankCandidates(ctx, code, delta.PerspectiveSelf)
	assert.ErrorIs(t, err, ErrStaleRanking)
}

const recommendation = `{
  "recommendations": [{"champion_name": "Azir", "reasoning": "comfort", "confidence_score": 0.7}],
  "predictions": [],
  "strategic_summary": "draft for teamfights"
}`

func TestAdvise(t *testing.T) {
	var got advisory.Request
	svc := advisory.ServiceFunc(func(ctx context.Context, req advisory.Request) ([]byte, error) {
		got = req
		if req.Final {
			return []byte(`{"blue_win_rate": 50, "red_win_rate": 50, "strategic_summary": "even"}`), nil
		}
		return []byte(recommendation), nil
	})
	f := newFixture(t, oracle.Func(stubOracle), svc, WithAdvisoryMaxRows(10))
	ctx := context.Background()

	_, err := f.svc.Load(ctx, "test", []stats.RawRecord{
		{Player: "Faker", Champion: "Azir", Team: "T1", Side: "blue", Won: "1"},
	})
	require.NoError(t, err)

	code, _, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	adv, err := f.svc.Advise(ctx, code)
	require.NoError(t, err)
	assert.False(t, adv.Degraded)
	require.NotNil(t, adv.Ranking)
	assert.Len(t, adv.Ranking.Candidates, len(testPool))
	require.Len(t, adv.Suggestions, 1)
	assert.NotNil(t, adv.Suggestions[0].Delta)
	assert.Contains(t, got.Data, "champion,,Azir")

	for i := range engine.TotalTurns {
		_, err := f.svc.ApplyAction(ctx, code, "C"+string(rune('A'+i)))
		require.NoError(t, err)
	}
	adv, err = f.svc.Advise(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, adv.Ranking)
	assert.Equal(t, advisory.KindWinRate, adv.Kind)
	assert.True(t, got.Final)
}

func TestAdviseDegradesWithoutService(t *testing.T) {
	f := newFixture(t, oracle.Func(stubOracle), nil)
	ctx := context.Background()
	code, _, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	adv, err := f.svc.Advise(ctx, code)
	require.NoError(t, err)
	assert.True(t, adv.Degraded)
	assert.ErrorIs(t, adv.Err, advisory.ErrAdvisoryFailure)
	require.NotNil(t, adv.Ranking)
	assert.NotEmpty(t, adv.Ranking.Candidates)
}

type memStore struct {
	loads []store.StoredLoad
	fail  error
}

func (m *memStore) SaveLoad(_ context.Context, src string, report stats.Report, raw []stats.RawRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.loads = append(m.loads, store.StoredLoad{Fingerprint: report.Fingerprint, Source: src, Records: raw})
	return nil
}

func (m *memStore) Loads(context.Context) ([]store.StoredLoad, error) { return m.loads, nil }

func TestLoadPersistsAndRestores(t *testing.T) {
	st := &memStore{}
	f := newFixture(t, oracle.Func(stubOracle), nil, WithStore(st))
	ctx := context.Background()

	raw := []stats.RawRecord{
		{Player: "Faker", Champion: "Azir", Team: "T1", Side: "blue", Won: "1"},
		{Player: "Zeus", Champion: "Ziggs", Team: "T1", Side: "blue", Won: "1"},
		{Player: "", Champion: "Ahri", Team: "T1"},
	}
	report, err := f.svc.Load(ctx, "week1.csv", raw)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, st.loads, 1)

	_, err = f.svc.Load(ctx, "week1.csv", raw)
	assert.ErrorIs(t, err, stats.ErrDuplicateLoad)
	assert.Len(t, st.loads, 1)

	// a fresh service replays the store
	g := newFixture(t, oracle.Func(stubOracle), nil, WithStore(st))
	n, err := g.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := g.svc.Model().Player("Faker")
	assert.True(t, ok)

	// replaying into the same aggregator is a no-op
	n, err = g.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadReportsPersistenceFailure(t *testing.T) {
	st := &memStore{fail: errors.New("connection refused")}
	f := newFixture(t, oracle.Func(stubOracle), nil, WithStore(st))

	_, err := f.svc.Load(context.Background(), "x", []stats.RawRecord{
		{Player: "Faker", Champion: "Azir", Team: "T1", Side: "blue", Won: "1"},
	})
	assert.Error(t, err)
	_, ok := f.svc.Model().Player("Faker")
	assert.True(t, ok, "the model keeps the records even when persistence fails")
}

func TestTeamTopPicksExcludesDraftedChampions(t *testing.T) {
	f := newFixture(t, oracle.Func(stubOracle), nil)
	ctx := context.Background()
	_, err := f.svc.Load(ctx, "x", []stats.RawRecord{
		{Player: "Faker", Champion: "Azir", Team: "T1", Side: "blue", Won: "1"},
		{Player: "Zeus", Champion: "Jax", Team: "T1", Side: "blue", Won: "1"},
	})
	require.NoError(t, err)

	code, _, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.ApplyAction(ctx, code, "azir")
	require.NoError(t, err)

	all, err := f.svc.TeamTopPicks(ctx, "T1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	picks, err := f.svc.TeamTopPicks(ctx, "T1", code)
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, "Jax", picks[0].Champion)

	_, err = f.svc.TeamTopPicks(ctx, "T1", "NOPE00")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}
