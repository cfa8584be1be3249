package advisory

import (
	"fmt"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
)

// Stage names the ten advisory windows of a draft.
type Stage string

const (
	StageBan1    Stage = "ban_phase_1" // turns 0-5
	StageB1      Stage = "b1"          // 6
	StageR1R2    Stage = "r1_r2"       // 7-8
	StageB2B3    Stage = "b2_b3"       // 9-10
	StageR3      Stage = "r3"          // 11
	StageBan2    Stage = "ban_phase_2" // 12-15
	StageR4      Stage = "r4"          // 16
	StageB4B5    Stage = "b4_b5"       // 17-18
	StageR5      Stage = "r5"          // 19
	StageWinRate Stage = "win_rate"    // 20
)

func StageOf(turn int) Stage {
	switch {
	case turn < 6:
		return StageBan1
	case turn < 7:
		return StageB1
	case turn < 9:
		return StageR1R2
	case turn < 11:
		return StageB2B3
	case turn < 12:
		return StageR3
	case turn < 16:
		return StageBan2
	case turn < 17:
		return StageR4
	case turn < 19:
		return StageB4B5
	case turn < 20:
		return StageR5
	default:
		return StageWinRate
	}
}

const schemaHint = "Return suggestions under 'recommendations' with champion_name, reasoning, confidence_score (0 to 1), possible_synergies and possible_counters. " +
	"Return predictions under 'predictions' with predicted_next_champ, confidence_score (0 to 1) and reasoning. " +
	"When asked to predict, do not provide suggestions and rely heavily on historical data. " +
	"Keep the 'strategic_summary' concise and reference historical statistics from the provided data, with emphasis on recent data."

const winRateTask = "Return a predicted win rate for both teams as blue_win_rate and red_win_rate, percentages summing to 100, given the current state of the draft. " +
	"Put an analysis of the key factors and champions in 'strategic_summary'. " +
	"Base the prediction on the provided data, reference it and add any other relevant information."

// Task returns the instruction for the given turn from the perspective of sides.
func Task(turn int, sides engine.Sides) string {
	friendly, opponent := sides.SuggestingName, sides.OpposingName
	us, them := sides.Suggesting, sides.Opposing
	blue := us == engine.TeamBlue

	var task string
	switch StageOf(turn) {
	case StageBan1:
		task = fmt.Sprintf("Ban Phase 1: Provide exactly 5 champion recommendations for %s (%s) to ban. "+
			"Then predict exactly 5 champions that %s (%s) will likely ban in this phase.", friendly, us, opponent, them)
	case StageB1:
		if blue {
			task = fmt.Sprintf("B1 Pick: Suggest 5 high-priority power picks for %s to lock in first, and predict 5 responses %s might pick in the next turn.", friendly, opponent)
		} else {
			task = fmt.Sprintf("B1 Prediction: Predict 5 champions %s (Blue) will pick first, with probabilities. Suggest 5 responses %s should pick in the next turn.", opponent, friendly)
		}
	case StageR1R2:
		if !blue {
			task = fmt.Sprintf("R1/R2 Picks: Suggest 5 champion pairs or individual picks for %s to secure in the R1/R2 slots, and predict 5 responses %s might pick in the next turn.", friendly, opponent)
		} else {
			task = fmt.Sprintf("R1/R2 Prediction: Predict 5 champions %s will pick in these slots, with probabilities. Suggest 5 responses %s should pick in the next turn.", opponent, friendly)
		}
	case StageB2B3:
		if blue {
			task = fmt.Sprintf("B2/B3 Picks: Suggest 5 champions for %s to round out the phase 1 core (B2, B3), and predict 5 responses %s might pick in the next turn.", friendly, opponent)
		} else {
			task = fmt.Sprintf("B2/B3 Prediction: Predict 5 champions %s will pick here, with probabilities. Suggest 5 responses %s should pick in the next turn.", opponent, friendly)
		}
	case StageR3:
		if !blue {
			task = fmt.Sprintf("R3 Pick: Suggest 5 champions for %s to finalize phase 1 (R3).", friendly)
		} else {
			task = fmt.Sprintf("R3 Prediction: Predict 5 champions %s (Red) will pick for R3, with probabilities.", opponent)
		}
	case StageBan2:
		task = fmt.Sprintf("Ban Phase 2: Suggest 5 target bans for %s based on remaining roles. "+
			"Predict 5 bans that %s will target against them.", friendly, opponent)
	case StageR4:
		if !blue {
			task = fmt.Sprintf("R4 Pick: Suggest 5 champions for %s (R4) to bridge into the final composition, and predict 5 responses %s might pick in the next turn.", friendly, opponent)
		} else {
			task = fmt.Sprintf("R4 Prediction: Predict 5 champions %s will pick for R4, with probabilities. Suggest 5 responses %s should pick in the next turn.", opponent, friendly)
		}
	case StageB4B5:
		if blue {
			task = fmt.Sprintf("B4/B5 Picks: Suggest 5 champions or champion pairs for %s to finalize the draft (B4, B5), and predict 5 responses %s might pick in the next turn.", friendly, opponent)
		} else {
			task = fmt.Sprintf("B4/B5 Prediction: Predict 5 champions %s will pick for B4/B5, with probabilities. Suggest 5 responses %s should pick in the next turn.", opponent, friendly)
		}
	case StageR5:
		if !blue {
			task = fmt.Sprintf("R5 Counter-Pick: Suggest 5 counter-picks for %s for the R5 slot.", friendly)
		} else {
			task = fmt.Sprintf("R5 Prediction: Predict 5 champions %s (Red) will use for their final counter-pick.", opponent)
		}
	default:
		return winRateTask
	}
	return task + " " + schemaHint
}
