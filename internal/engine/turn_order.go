package engine

// GameOrder is the fixed tournament draft sequence. Cursor indexes it and
// len(GameOrder) is the terminal "draft complete" position.
var GameOrder = [TotalTurns]TurnStep{
	// Ban Phase 1
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	// Pick Phase 1
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	// Ban Phase 2
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	// Pick Phase 2
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
}

// TotalTurns is the number of actions in a complete draft.
const TotalTurns = 20

// StepAt returns the step for a cursor position; ok is false once the draft is complete.
func StepAt(cursor int) (TurnStep, bool) {
	if cursor < 0 || cursor >= TotalTurns {
		return TurnStep{}, false
	}
	return GameOrder[cursor], true
}
