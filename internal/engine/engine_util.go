package engine

import (
	"lukechampine.com/frand"
)

const (
	DefaultBlueName = "Blue Team"
	DefaultRedName  = "Red Team"
)

func NewEmptyState() State {
	s := State{
		Picks:  map[Team][]string{TeamBlue: {}, TeamRed: {}},
		Bans:   map[Team][]string{TeamBlue: {}, TeamRed: {}},
		Names:  map[Team]string{TeamBlue: DefaultBlueName, TeamRed: DefaultRedName},
		Cursor: 0,
	}
	s.Phase = DerivePhase(s.Cursor) // Ensure "ban1" shows up on join
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func DerivePhase(cursor int) Phase {
	if cursor >= TotalTurns {
		return PhaseDone
	} else if cursor >= 0 && cursor <= 5 {
		return PhaseBan1
	} else if cursor > 5 && cursor <= 11 {
		return PhasePick1
	} else if cursor > 11 && cursor <= 15 {
		return PhaseBan2
	} else {
		return PhasePick2
	}
}

// Available returns the members of pool that are not yet banned or picked,
// preserving pool order.
func Available(s State, pool []string) []string {
	out := make([]string, 0, len(pool))
	for _, c := range pool {
		if !IsUsed(s, c) {
			out = append(out, c)
		}
	}
	return out
}

// ChooseRandomLegal picks a uniformly random available champion from pool.
// It is a variable so tests can make it deterministic.
var ChooseRandomLegal = func(s State, pool []string) (string, bool) {
	avail := Available(s, pool)
	if len(avail) == 0 {
		return "", false
	}
	return avail[frand.Intn(len(avail))], true
}

// TrimLastAction drops the events of the most recent ban or pick.
func TrimLastAction(events []Event) ([]Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == EvtChampionBanned || events[i].Type == EvtChampionPicked {
			return events[:i:i], true
		}
	}
	return events, false
}
