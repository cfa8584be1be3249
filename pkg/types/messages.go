// Package types holds the JSON messages exchanged with draft clients.
package types

// Client -> Server
//
// Apply:       champion
// LockPick:    team, champion (must be team's pick turn)
// BanChampion: team, champion (must be team's ban turn)
// Random:      {}
// Undo:        {}
// Reset:       {}
// SetHome:     side ("blue" | "red"; sending the current side clears it)
// SetTeams:    blue, red
const (
	MsgApply       = "Apply"
	MsgLockPick    = "LockPick"
	MsgBanChampion = "BanChampion"
	MsgRandom      = "Random"
	MsgUndo        = "Undo"
	MsgReset       = "Reset"
	MsgSetHome     = "SetHome"
	MsgSetTeams    = "SetTeams"
)

type ClientMessage struct {
	Type     string `json:"type"`
	Team     string `json:"team,omitempty"`
	Champion string `json:"champion,omitempty"`
	Side     string `json:"side,omitempty"`
	Blue     string `json:"blue,omitempty"`
	Red      string `json:"red,omitempty"`
}

// Server -> Client
//
// StateSnapshot: state
// Error:         error (only to the client whose message failed)
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)

type ServerMessage struct {
	Type  string         `json:"type"`
	State *StateSnapshot `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}
