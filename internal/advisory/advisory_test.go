package advisory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
)

func stateAt(t *testing.T, turn int) engine.State {
	t.Helper()
	s := engine.NewEmptyState()
	s.Names[engine.TeamBlue] = "T1"
	s.Names[engine.TeamRed] = "GEN"
	for i := 0; i < turn; i++ {
		var err error
		s, err = engine.ApplyChampion(s, "C"+string(rune('A'+i)))
		require.NoError(t, err)
	}
	return s
}

func TestStageOf(t *testing.T) {
	want := map[int]Stage{
		0: StageBan1, 5: StageBan1, 6: StageB1, 7: StageR1R2, 8: StageR1R2,
		9: StageB2B3, 10: StageB2B3, 11: StageR3, 12: StageBan2, 15: StageBan2,
		16: StageR4, 17: StageB4B5, 18: StageB4B5, 19: StageR5, 20: StageWinRate,
	}
	for turn, stage := range want {
		assert.Equal(t, stage, StageOf(turn), "turn %d", turn)
	}
}

func TestTaskFollowsSuggestingSide(t *testing.T) {
	blue := engine.Sides{Suggesting: engine.TeamBlue, Opposing: engine.TeamRed, SuggestingName: "T1", OpposingName: "GEN"}
	red := engine.Sides{Suggesting: engine.TeamRed, Opposing: engine.TeamBlue, SuggestingName: "GEN", OpposingName: "T1"}

	assert.True(t, strings.HasPrefix(Task(6, blue), "B1 Pick: Suggest 5 high-priority power picks for T1"))
	assert.True(t, strings.HasPrefix(Task(6, red), "B1 Prediction: Predict 5 champions T1 (Blue)"))
	assert.True(t, strings.HasPrefix(Task(19, red), "R5 Counter-Pick"))
	assert.Contains(t, Task(3, blue), "recommendations")
	assert.Equal(t, winRateTask, Task(20, blue))

	// every turn maps to one template, and templates differ between windows
	seen := map[string]bool{}
	for turn := 0; turn <= engine.TotalTurns; turn++ {
		seen[strings.SplitN(Task(turn, blue), ":", 2)[0]] = true
	}
	assert.Len(t, seen, 10)
}

func TestBuildRequestIsDeterministic(t *testing.T) {
	s := stateAt(t, 7)
	s.HomeSide = engine.TeamRed
	a := BuildRequest(s, " data ")
	b := BuildRequest(s, "data")
	assert.Equal(t, a, b)
	assert.False(t, a.Final)
	assert.Contains(t, a.Context, "Home side: red")
	assert.Contains(t, a.Context, "Turn: red_pick")
	assert.Contains(t, a.Context, "Blue bans: CA, CC, CE")
	assert.Contains(t, a.Context, "Blue picks: CG")
	assert.Contains(t, a.Context, "Red picks: none")
	assert.True(t, strings.HasPrefix(a.Task, "R1/R2 Picks"))
	assert.Contains(t, a.Prompt(), "Data Context:\ndata")

	empty := BuildRequest(engine.NewEmptyState(), "")
	assert.Contains(t, empty.Context, "Blue picks: none")
	assert.Contains(t, empty.Context, "Home side: unset")

	assert.True(t, BuildRequest(stateAt(t, 20), "").Final)
}

func TestDataTextRespectsRowCap(t *testing.T) {
	var recs []stats.Record
	for i := 0; i < 5; i++ {
		recs = append(recs,
			stats.Record{Player: "p" + string(rune('0'+i)), Champion: "Ahri", Team: "T1", Side: engine.TeamBlue, Won: true},
			stats.Record{Player: "q" + string(rune('0'+i)), Champion: "Azir", Team: "GEN", Side: engine.TeamRed},
		)
	}
	m := stats.Build(recs, stats.Incremental)

	full := DataText(m, 0)
	lines := strings.Split(strings.TrimSpace(full), "\n")
	assert.Equal(t, "Kind,Team,Champion,Games,Wins,Winrate,BlueWinrate,RedWinrate,KDA", lines[0])
	assert.Len(t, lines, 1+2+2+2)
	assert.Contains(t, full, "team,T1,,1,1,100.0,100.0,0.0")

	capped := strings.Split(strings.TrimSpace(DataText(m, 3)), "\n")
	assert.Len(t, capped, 4)
	assert.Empty(t, DataText(nil, 10))
}

const validRecommendation = `{
  "recommendations": [
    {"champion_name": "Azir", "reasoning": "comfort", "confidence_score": 0.8, "possible_synergies": ["Rell"], "possible_counters": []},
    {"champion_name": "CA", "reasoning": "banned already", "confidence_score": 0.1, "possible_synergies": [], "possible_counters": []},
    {"champion_name": "Ziggs", "reasoning": "not in pool", "confidence_score": 0.3}
  ],
  "predictions": [{"predicted_next_champ": "Ahri", "reasoning": "signature", "confidence_score": 0.6}],
  "strategic_summary": " prioritise mid "
}`

func TestParse(t *testing.T) {
	resp, err := Parse([]byte(validRecommendation), false)
	require.NoError(t, err)
	require.Equal(t, KindRecommendation, resp.Kind)
	rec := resp.Recommendation
	require.Len(t, rec.Suggestions, 3)
	assert.Equal(t, "prioritise mid", rec.Summary)
	assert.Equal(t, []string{}, rec.Suggestions[2].Synergies)

	wr, err := Parse([]byte(`{"blue_win_rate": 55.5, "red_win_rate": 44.5, "strategic_summary": "late game"}`), true)
	require.NoError(t, err)
	assert.Equal(t, KindWinRate, wr.Kind)
	assert.Equal(t, 55.5, wr.WinRate.Blue)

	bad := []struct {
		name  string
		raw   string
		final bool
	}{
		{"empty", "", false},
		{"not json", "Sure! Here are some picks", false},
		{"missing summary", `{"recommendations": [], "predictions": []}`, false},
		{"confidence as percent", `{"recommendations": [{"champion_name": "Azir", "confidence_score": 80}], "predictions": [], "strategic_summary": ""}`, false},
		{"blank champion", `{"recommendations": [], "predictions": [{"predicted_next_champ": " ", "confidence_score": 0.2}], "strategic_summary": ""}`, false},
		{"win rates off", `{"blue_win_rate": 70, "red_win_rate": 70, "strategic_summary": "x"}`, true},
		{"recommendation at final turn", validRecommendation, true},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw), tt.final)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestCoordinatorMergesRanking(t *testing.T) {
	s := stateAt(t, 6)
	var got Request
	svc := ServiceFunc(func(ctx context.Context, req Request) ([]byte, error) {
		got = req
		return []byte(validRecommendation), nil
	})
	ranking := &delta.Ranking{Candidates: []delta.Candidate{
		{Champion: "Azir", Delta: 0.04},
		{Champion: "Ahri", Delta: 0.01},
	}}

	c := NewCoordinator(svc, zaptest.NewLogger(t), nil)
	adv := c.Advise(context.Background(), s, "csv", ranking)

	require.False(t, adv.Degraded)
	assert.NoError(t, adv.Err)
	assert.Equal(t, StageB1, adv.Stage)
	assert.Equal(t, "csv", got.Data)
	assert.Same(t, ranking, adv.Ranking)

	require.Len(t, adv.Suggestions, 3)
	require.NotNil(t, adv.Suggestions[0].Delta)
	assert.Equal(t, 0.04, *adv.Suggestions[0].Delta)
	assert.True(t, adv.Suggestions[0].Usable)
	assert.Nil(t, adv.Suggestions[1].Delta)
	assert.False(t, adv.Suggestions[1].Usable, "CA was banned on turn 0")
	assert.Nil(t, adv.Suggestions[2].Delta)
	assert.True(t, adv.Predictions[0].Usable)
}

func TestCoordinatorDegrades(t *testing.T) {
	ranking := &delta.Ranking{Candidates: []delta.Candidate{{Champion: "Azir"}}}
	tests := []struct {
		name string
		svc  Service
	}{
		{"no service", nil},
		{"service error", ServiceFunc(func(ctx context.Context, req Request) ([]byte, error) {
			return nil, errors.New("quota exceeded")
		})},
		{"invalid payload", ServiceFunc(func(ctx context.Context, req Request) ([]byte, error) {
			return []byte(`{"recommendations": "Azir"}`), nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := NewCoordinator(tt.svc, zaptest.NewLogger(t), nil).Advise(context.Background(), stateAt(t, 2), "", ranking)
			assert.True(t, adv.Degraded)
			assert.ErrorIs(t, adv.Err, ErrAdvisoryFailure)
			assert.Same(t, ranking, adv.Ranking)
			assert.Empty(t, adv.Suggestions)
		})
	}
}

func TestCoordinatorFinalTurn(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, req Request) ([]byte, error) {
		require.True(t, req.Final)
		return []byte(`{"blue_win_rate": 48, "red_win_rate": 52, "strategic_summary": "GEN scales"}`), nil
	})
	adv := NewCoordinator(svc, nil, nil).Advise(context.Background(), stateAt(t, 20), "", nil)
	require.False(t, adv.Degraded)
	assert.Equal(t, KindWinRate, adv.Kind)
	assert.Equal(t, 52.0, adv.WinRate.Red)
	assert.Equal(t, "GEN scales", adv.Summary)
}

func TestGenerateConfig(t *testing.T) {
	conf := GenerateConfig(false, "be brief")
	assert.Equal(t, float32(0.4), *conf.Temperature)
	assert.Equal(t, float32(40), *conf.TopK)
	assert.Equal(t, int32(8192), conf.MaxOutputTokens)
	assert.Equal(t, "application/json", conf.ResponseMIMEType)
	assert.Contains(t, conf.ResponseSchema.Required, "recommendations")
	require.NotNil(t, conf.SystemInstruction)

	final := GenerateConfig(true, "")
	assert.Contains(t, final.ResponseSchema.Properties, "blue_win_rate")
	assert.Nil(t, final.SystemInstruction)
	assert.Equal(t, genai.TypeObject, final.ResponseSchema.Type)
}
