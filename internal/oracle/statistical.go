package oracle

import (
	"context"
	"math"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
)

// Weights of the terms of a side's strength.
const (
	TeamWeight = 1.0
	PickWeight = 1.0
	BanWeight  = 0.5
)

// StatisticalOracle derives a prediction from the aggregated match history.
// A side's strength is the logit of its smoothed team win rate, plus the
// logit of each picked champion's smoothed win rate, plus a share of the
// logit of the opposing team's smoothed win rate on every champion it banned.
// The red side wins with the logistic of the strength difference.
type StatisticalOracle struct {
	model func() *stats.Model
}

// NewStatisticalOracle reads the model on every call so reloads are picked up.
func NewStatisticalOracle(model func() *stats.Model) *StatisticalOracle {
	return &StatisticalOracle{model: model}
}

func (o *StatisticalOracle) Predict(ctx context.Context, f Features) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	m := o.model()
	if m == nil {
		return Even, nil
	}

	bans, picks := f.Split()
	names := map[engine.Team]string{TeamSide: f.Team, OpponentSide: f.Opponent}
	strength := func(side engine.Team) float64 {
		own, _ := m.Team(names[side])
		opp, _ := m.Team(names[side.Opponent()])

		s := 0.0
		if own != nil {
			s += TeamWeight * logit(smooth(own.TotalWins(), own.TotalGames()))
		}
		for _, c := range picks[side] {
			if champ, ok := m.Champion(c); ok {
				s += PickWeight * logit(smooth(champ.TotalWins, champ.TotalGames))
			}
		}
		if opp != nil {
			for _, c := range bans[side] {
				if perf, ok := opp.ChampionStat(c); ok {
					s += BanWeight * logit(smooth(perf.Wins, perf.Games))
				}
			}
		}
		return s
	}

	red := sigmoid(strength(engine.TeamRed) - strength(engine.TeamBlue))
	return Prediction{Team: red, Opponent: 1 - red}, nil
}

// smooth is the Laplace-smoothed win rate.
func smooth(wins, games int) float64 {
	return (float64(wins) + 1) / (float64(games) + 2)
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
