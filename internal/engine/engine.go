package engine

import (
	"errors"
	"strings"

	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

var ErrOutOfPhase = errors.New("draft already complete")
var ErrAlreadyUsed = errors.New("champion already banned or picked")
var ErrWrongTurn = errors.New("invalid turn")
var ErrEmptyChampion = errors.New("champion name is empty")
var ErrInvalidSide = errors.New("invalid side")
var ErrNothingToUndo = errors.New("nothing to undo")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Team string

const (
	TeamBlue  Team = "blue"
	TeamRed   Team = "red"
	TeamUnset Team = ""
)

// Opponent returns the other side. The unset side has no opponent.
func (t Team) Opponent() Team {
	switch t {
	case TeamBlue:
		return TeamRed
	case TeamRed:
		return TeamBlue
	default:
		return TeamUnset
	}
}

// ParseTeam accepts "blue" or "red" in any case; "" and "unset" map to TeamUnset.
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue":
		return TeamBlue, nil
	case "red":
		return TeamRed, nil
	case "", "unset", "none":
		return TeamUnset, nil
	default:
		return TeamUnset, ErrInvalidSide
	}
}

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type Phase string

const (
	PhaseBan1  Phase = "ban1"
	PhasePick1 Phase = "pick1"
	PhaseBan2  Phase = "ban2"
	PhasePick2 Phase = "pick2"
	PhaseDone  Phase = "done"
)

type TurnStep struct {
	Team   Team
	Action Action
}

// String renders the step the way the draft board labels it, e.g. "blue_ban".
func (s TurnStep) String() string {
	if s.Team == TeamUnset {
		return "draft_complete"
	}
	return string(s.Team) + "_" + string(s.Action)
}

// State is a draft in progress. Values are treated as immutable: Apply and
// friends return a fresh State and never touch the slices of their input.
type State struct {
	Phase    Phase
	Cursor   int
	Picks    map[Team][]string
	Bans     map[Team][]string
	HomeSide Team
	Names    map[Team]string
}

type CommandType string

const (
	CmdApply       CommandType = "Apply"
	CmdLockPick    CommandType = "LockPick"
	CmdBanChampion CommandType = "BanChampion"
)

/*
	CmdApply       -> EvtChampionBanned|EvtChampionPicked -> EvtTurnAdvanced [-> EvtGameCompleted]
	CmdLockPick    -> same, but the current step must be a pick for cmd.Team
	CmdBanChampion -> same, but the current step must be a ban for cmd.Team
*/

type Command struct {
	Type     CommandType
	Team     Team
	Champion string
}

type EventType string

const (
	EvtChampionPicked EventType = "ChampionPicked"
	EvtChampionBanned EventType = "ChampionBanned"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtGameCompleted  EventType = "GameCompleted"
)

type Event struct {
	Type     EventType
	Team     Team
	Champion string
}

// Apply validates cmd against s and returns the produced events together with
// the next state. On error the returned state is s, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	step, ok := StepAt(s.Cursor)
	if !ok {
		return nil, s, ErrOutOfPhase
	}

	champion := names.Clean(cmd.Champion)
	if champion == "" {
		return nil, s, ErrEmptyChampion
	}

	switch cmd.Type {
	case CmdApply:
	case CmdLockPick:
		if step.Team != cmd.Team || step.Action != ActionPick {
			return nil, s, ErrWrongTurn
		}
	case CmdBanChampion:
		if step.Team != cmd.Team || step.Action != ActionBan {
			return nil, s, ErrWrongTurn
		}
	default:
		return nil, s, ErrUnsupportedCommand
	}

	if IsUsed(s, champion) {
		return nil, s, ErrAlreadyUsed
	}

	newState := s.Clone()
	var events []Event
	if step.Action == ActionBan {
		events = append(events, Event{Type: EvtChampionBanned, Team: step.Team, Champion: champion})
		newState.Bans[step.Team] = append(newState.Bans[step.Team], champion)
	} else {
		events = append(events, Event{Type: EvtChampionPicked, Team: step.Team, Champion: champion})
		newState.Picks[step.Team] = append(newState.Picks[step.Team], champion)
	}
	events = append(events, Event{Type: EvtTurnAdvanced})
	newState.Cursor++

	if newState.Cursor == TotalTurns {
		events = append(events, Event{Type: EvtGameCompleted})
	}
	newState.Phase = DerivePhase(newState.Cursor)
	return events, newState, nil
}

// ApplyChampion applies champion to whatever step is current.
func ApplyChampion(s State, champion string) (State, error) {
	_, next, err := Apply(s, Command{Type: CmdApply, Champion: champion})
	return next, err
}

// Reduce rebuilds a state from its event log on top of base's team names and
// home side. Base lists and cursor are ignored.
func Reduce(base State, events []Event) State {
	s := NewEmptyState()
	s.HomeSide = base.HomeSide
	for team, name := range base.Names {
		s.Names[team] = name
	}
	for _, event := range events {
		switch event.Type {
		case EvtChampionPicked:
			s.Picks[event.Team] = append(s.Picks[event.Team], event.Champion)
		case EvtChampionBanned:
			s.Bans[event.Team] = append(s.Bans[event.Team], event.Champion)
		case EvtTurnAdvanced:
			s.Cursor++
		}
	}

	s.Phase = DerivePhase(s.Cursor)
	return s
}

// IsUsed reports whether champion appears in any ban or pick list.
func IsUsed(s State, champion string) bool {
	key := names.Key(champion)
	for _, team := range []Team{TeamBlue, TeamRed} {
		for _, c := range s.Bans[team] {
			if names.Key(c) == key {
				return true
			}
		}
		for _, c := range s.Picks[team] {
			if names.Key(c) == key {
				return true
			}
		}
	}
	return false
}

// Used returns every banned or picked champion in draft order per list:
// blue bans, red bans, blue picks, red picks.
func Used(s State) []string {
	out := make([]string, 0, s.Cursor)
	out = append(out, s.Bans[TeamBlue]...)
	out = append(out, s.Bans[TeamRed]...)
	out = append(out, s.Picks[TeamBlue]...)
	out = append(out, s.Picks[TeamRed]...)
	return out
}

// CurrentStep returns the step to play; done is true once the draft is complete.
func CurrentStep(s State) (TurnStep, bool) {
	step, ok := StepAt(s.Cursor)
	return step, !ok
}

// NextStep returns the step after the current one; done is true if there is none.
func NextStep(s State) (TurnStep, bool) {
	step, ok := StepAt(s.Cursor + 1)
	return step, !ok
}

// Sides is the perspective used for suggestions and deltas.
type Sides struct {
	Suggesting     Team
	Opposing       Team
	SuggestingName string
	OpposingName   string
}

// ResolveSides picks the suggesting side: the explicit home side if set, else
// the side on the move, else blue. It is derived from s on every call.
func ResolveSides(s State) Sides {
	side := s.HomeSide
	if side != TeamBlue && side != TeamRed {
		side = TeamBlue
		if step, ok := StepAt(s.Cursor); ok {
			side = step.Team
		}
	}
	return Sides{
		Suggesting:     side,
		Opposing:       side.Opponent(),
		SuggestingName: s.TeamName(side),
		OpposingName:   s.TeamName(side.Opponent()),
	}
}

// TeamName returns the configured team name for a side with a readable default.
func (s State) TeamName(side Team) string {
	if name := s.Names[side]; name != "" {
		return name
	}
	switch side {
	case TeamRed:
		return DefaultRedName
	default:
		return DefaultBlueName
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.Picks = map[Team][]string{
		TeamBlue: append([]string{}, s.Picks[TeamBlue]...),
		TeamRed:  append([]string{}, s.Picks[TeamRed]...),
	}
	c.Bans = map[Team][]string{
		TeamBlue: append([]string{}, s.Bans[TeamBlue]...),
		TeamRed:  append([]string{}, s.Bans[TeamRed]...),
	}
	c.Names = make(map[Team]string, len(s.Names))
	for team, name := range s.Names {
		c.Names[team] = name
	}
	return c
}

// WithHypothetical returns a copy of s with champion appended to the list of
// the current step and the cursor advanced. Legality is not checked; callers
// pass champions that are known to be unused. ok is false once the draft is complete.
func WithHypothetical(s State, champion string) (State, bool) {
	step, ok := StepAt(s.Cursor)
	if !ok {
		return s, false
	}
	h := s.Clone()
	if step.Action == ActionBan {
		h.Bans[step.Team] = append(h.Bans[step.Team], champion)
	} else {
		h.Picks[step.Team] = append(h.Picks[step.Team], champion)
	}
	h.Cursor++
	h.Phase = DerivePhase(h.Cursor)
	return h, true
}
