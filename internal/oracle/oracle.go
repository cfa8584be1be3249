// Package oracle defines the win-probability predictor consumed by the delta
// engine, its fixed-width feature row, and the implementations used by the
// server.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
)

var (
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrInvalidPrediction = errors.New("invalid prediction")
)

const (
	Slots       = 10
	Placeholder = "a"
	Epsilon     = 1e-6
)

// The team slot always carries the red side and the opponent slot the blue
// side, matching the pretrained artifact.
const (
	TeamSide     = engine.TeamRed
	OpponentSide = engine.TeamBlue
)

// Columns is the feature order the classifier was trained on.
var Columns = []string{
	"Teams", "Opponent",
	"Ban1", "Ban2", "Ban3", "Ban4", "Ban5", "Ban6",
	"Pick1", "Pick2", "Pick3", "Pick4", "Pick5", "Pick6",
	"Ban7", "Ban8", "Ban9", "Ban10",
	"Pick7", "Pick8", "Pick9", "Pick10",
}

// Features is one oracle input row. Ban and pick slots hold blue entries
// followed by red entries, padded with Placeholder.
type Features struct {
	Team     string
	Opponent string
	Bans     [Slots]string
	Picks    [Slots]string

	// filled slot counts, set by FromState
	nBans, nPicks int
	counted       bool
}

func FromState(s engine.State) Features {
	f := Features{
		Team:     s.TeamName(TeamSide),
		Opponent: s.TeamName(OpponentSide),
	}
	f.nBans = fill(&f.Bans, s.Bans[engine.TeamBlue], s.Bans[engine.TeamRed])
	f.nPicks = fill(&f.Picks, s.Picks[engine.TeamBlue], s.Picks[engine.TeamRed])
	f.counted = true
	return f
}

func fill(slots *[Slots]string, blue, red []string) int {
	i := 0
	for _, list := range [][]string{blue, red} {
		for _, c := range list {
			if i == Slots {
				break
			}
			slots[i] = c
			i++
		}
	}
	n := i
	for ; i < Slots; i++ {
		slots[i] = Placeholder
	}
	return n
}

// Row returns the features keyed by column name.
func (f Features) Row() map[string]string {
	row := make(map[string]string, len(Columns))
	row["Teams"] = f.Team
	row["Opponent"] = f.Opponent
	for i := 0; i < Slots; i++ {
		row["Ban"+strconv.Itoa(i+1)] = f.Bans[i]
		row["Pick"+strconv.Itoa(i+1)] = f.Picks[i]
	}
	return row
}

// Values returns the features in Columns order.
func (f Features) Values() []string {
	row := f.Row()
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = row[c]
	}
	return out
}

// Split recovers the per-side lists from the concatenated slots by replaying
// the draft order. It is exact for rows built from a reachable draft state.
// Rows built by hand are read up to the first Placeholder, so a champion
// literally named like the placeholder is only safe in rows from FromState.
func (f Features) Split() (bans, picks map[engine.Team][]string) {
	nb, np := f.nBans, f.nPicks
	if !f.counted {
		nb, np = filled(f.Bans), filled(f.Picks)
	}
	return split(f.Bans, nb, engine.ActionBan), split(f.Picks, np, engine.ActionPick)
}

func filled(slots [Slots]string) int {
	n := 0
	for n < Slots && slots[n] != Placeholder && slots[n] != "" {
		n++
	}
	return n
}

func split(slots [Slots]string, n int, action engine.Action) map[engine.Team][]string {
	blue, seen := 0, 0
	for _, step := range engine.GameOrder {
		if seen == n {
			break
		}
		if step.Action != action {
			continue
		}
		if step.Team == engine.TeamBlue {
			blue++
		}
		seen++
	}
	return map[engine.Team][]string{
		engine.TeamBlue: append([]string{}, slots[:blue]...),
		engine.TeamRed:  append([]string{}, slots[blue:n]...),
	}
}

// Prediction is the classifier's class pair: the opponent slot wins with
// Opponent, the team slot with Team.
type Prediction struct {
	Opponent float64 `json:"p_opponent"`
	Team     float64 `json:"p_team"`
}

// Even is returned when no prediction can be made.
var Even = Prediction{Opponent: 0.5, Team: 0.5}

func (p Prediction) Validate() error {
	for _, v := range []float64{p.Opponent, p.Team} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: probability %v out of range", ErrInvalidPrediction, v)
		}
	}
	if sum := p.Opponent + p.Team; math.Abs(sum-1) > Epsilon {
		return fmt.Errorf("%w: pair sums to %v", ErrInvalidPrediction, sum)
	}
	return nil
}

// For returns the win probability of a draft side.
func (p Prediction) For(side engine.Team) float64 {
	if side == TeamSide {
		return p.Team
	}
	return p.Opponent
}

// Oracle predicts the outcome of a draft. Implementations must be safe for
// concurrent use and must not retain f.
type Oracle interface {
	Predict(ctx context.Context, f Features) (Prediction, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, f Features) (Prediction, error)

func (fn Func) Predict(ctx context.Context, f Features) (Prediction, error) {
	return fn(ctx, f)
}

// Checked wraps o so that every prediction is validated before it is returned.
func Checked(o Oracle) Oracle {
	return Func(func(ctx context.Context, f Features) (Prediction, error) {
		p, err := o.Predict(ctx, f)
		if err != nil {
			return Prediction{}, err
		}
		if err := p.Validate(); err != nil {
			return Prediction{}, err
		}
		return p, nil
	})
}
