package types

import "github.com/DoyleJ11/lol-draft-assistant/internal/engine"

// StateSnapshot is the draft as clients see it.
type StateSnapshot struct {
	Version      int                 `json:"version"`
	LobbyCode    string              `json:"lobby_code,omitempty"`
	Phase        string              `json:"phase"`
	Turn         int                 `json:"active_turn_index"`
	ActiveTeam   string              `json:"active_team,omitempty"`
	ActiveAction string              `json:"active_action,omitempty"`
	HomeSide     string              `json:"home_side,omitempty"`
	Teams        map[string]string   `json:"teams"`
	Picks        map[string][]string `json:"picks"`
	Bans         map[string][]string `json:"bans"`
}

func NewStateSnapshot(code string, version int, s engine.State) StateSnapshot {
	snap := StateSnapshot{
		Version:   version,
		LobbyCode: code,
		Phase:     string(s.Phase),
		Turn:      s.Cursor,
		HomeSide:  string(s.HomeSide),
		Teams: map[string]string{
			string(engine.TeamBlue): s.TeamName(engine.TeamBlue),
			string(engine.TeamRed):  s.TeamName(engine.TeamRed),
		},
		Picks: map[string][]string{
			string(engine.TeamBlue): nonNil(s.Picks[engine.TeamBlue]),
			string(engine.TeamRed):  nonNil(s.Picks[engine.TeamRed]),
		},
		Bans: map[string][]string{
			string(engine.TeamBlue): nonNil(s.Bans[engine.TeamBlue]),
			string(engine.TeamRed):  nonNil(s.Bans[engine.TeamRed]),
		},
	}
	if step, done := engine.CurrentStep(s); !done {
		snap.ActiveTeam = string(step.Team)
		snap.ActiveAction = string(step.Action)
	}
	return snap
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
