package stats

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

// MinGamesForLeaders is the sample size a player needs to appear in stat leaderboards.
const MinGamesForLeaders = 5

// Model is the read-mostly entity registry: champions, players and teams
// keyed by folded name.
type Model struct {
	champions   map[string]*Champion
	players     map[string]*Player
	teams       map[string]*Team
	champOrder  []string
	playerOrder []string
	teamOrder   []string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		champions: make(map[string]*Champion),
		players:   make(map[string]*Player),
		teams:     make(map[string]*Team),
	}
}

func (m *Model) champion(name string) *Champion {
	key := names.Key(name)
	c, ok := m.champions[key]
	if !ok {
		c = &Champion{Name: name}
		m.champions[key] = c
		m.champOrder = append(m.champOrder, key)
	}
	return c
}

func (m *Model) player(name string) *Player {
	key := names.Key(name)
	p, ok := m.players[key]
	if !ok {
		p = newPlayer(name)
		m.players[key] = p
		m.playerOrder = append(m.playerOrder, key)
	}
	return p
}

func (m *Model) team(name string) *Team {
	key := names.Key(name)
	t, ok := m.teams[key]
	if !ok {
		t = newTeam(name)
		m.teams[key] = t
		m.teamOrder = append(m.teamOrder, key)
	}
	return t
}

func (m *Model) Champion(name string) (*Champion, bool) {
	c, ok := m.champions[names.Key(name)]
	return c, ok
}

func (m *Model) Player(name string) (*Player, bool) {
	p, ok := m.players[names.Key(name)]
	return p, ok
}

func (m *Model) Team(name string) (*Team, bool) {
	t, ok := m.teams[names.Key(name)]
	return t, ok
}

// Champions returns every champion sorted by name.
func (m *Model) Champions() []*Champion {
	out := make([]*Champion, 0, len(m.champions))
	for _, k := range m.champOrder {
		out = append(out, m.champions[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ChampionNames returns every champion name sorted ascending.
func (m *Model) ChampionNames() []string {
	cs := m.Champions()
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// Players returns players in first-seen order.
func (m *Model) Players() []*Player {
	out := make([]*Player, 0, len(m.playerOrder))
	for _, k := range m.playerOrder {
		out = append(out, m.players[k])
	}
	return out
}

// Teams returns teams in first-seen order.
func (m *Model) Teams() []*Team {
	out := make([]*Team, 0, len(m.teamOrder))
	for _, k := range m.teamOrder {
		out = append(out, m.teams[k])
	}
	return out
}

// TeamNames returns team names sorted ascending.
func (m *Model) TeamNames() []string {
	out := make([]string, 0, len(m.teams))
	for _, t := range m.Teams() {
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}

// MostPicked returns up to limit champions by games played, then name.
func (m *Model) MostPicked(limit int) []*Champion {
	out := m.Champions()
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalGames > out[j].TotalGames })
	return head(out, limit)
}

// HighestWinrate returns up to limit champions by overall win rate, then name.
func (m *Model) HighestWinrate(limit int) []*Champion {
	out := m.Champions()
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverallWinrate() > out[j].OverallWinrate() })
	return head(out, limit)
}

type PlayerStat string

const (
	StatGames   PlayerStat = "total_games"
	StatWins    PlayerStat = "total_wins"
	StatKills   PlayerStat = "total_kills"
	StatDeaths  PlayerStat = "total_deaths"
	StatAssists PlayerStat = "total_assists"
)

type PlayerValue struct {
	Player *Player
	Value  int
}

// TopPlayersByStat ranks players with at least MinGamesForLeaders games.
func (m *Model) TopPlayersByStat(stat PlayerStat, limit int) []PlayerValue {
	var out []PlayerValue
	for _, p := range m.Players() {
		if p.TotalGames < MinGamesForLeaders {
			continue
		}
		var v int
		switch stat {
		case StatGames:
			v = p.TotalGames
		case StatWins:
			v = p.TotalWins
		case StatKills:
			v = p.TotalKills
		case StatDeaths:
			v = p.TotalDeaths
		case StatAssists:
			v = p.TotalAssists
		default:
			return nil
		}
		out = append(out, PlayerValue{Player: p, Value: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return head(out, limit)
}

type ChampionPlayer struct {
	Player  string
	Winrate float64
	Games   int
	KDA     float64
}

// PlayersWhoPlay lists players with at least minGames on champion, by win rate.
func (m *Model) PlayersWhoPlay(champion string, minGames int) []ChampionPlayer {
	var out []ChampionPlayer
	for _, p := range m.Players() {
		cp, ok := p.Performance(champion)
		if !ok || cp.Games < minGames {
			continue
		}
		out = append(out, ChampionPlayer{Player: p.Name, Winrate: cp.Winrate(), Games: cp.Games, KDA: cp.KDARatio()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Winrate > out[j].Winrate })
	return out
}

// TopPick is a row of the team draft panel.
type TopPick struct {
	Champion string
	Winrate  float64
	Games    int
}

const fallbackTopPicks = 8

// TeamTopPicks returns the team's champions by games then win rate. When the
// team is unknown or has no games, the global most-played champions stand in.
// Champions in exclude are filtered out.
func (m *Model) TeamTopPicks(team string, exclude []string) []TopPick {
	var rows []TopPick
	if t, ok := m.Team(team); ok {
		for _, k := range t.champOrder {
			tp := t.champs[k]
			if tp.Games > 0 {
				rows = append(rows, TopPick{Champion: tp.ChampionName, Winrate: tp.Winrate(), Games: tp.Games})
			}
		}
	}
	sortPicks := func(rows []TopPick) {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Games != rows[j].Games {
				return rows[i].Games > rows[j].Games
			}
			if rows[i].Winrate != rows[j].Winrate {
				return rows[i].Winrate > rows[j].Winrate
			}
			return rows[i].Champion < rows[j].Champion
		})
	}
	sortPicks(rows)

	if len(rows) == 0 {
		for _, c := range m.Champions() {
			if c.TotalGames > 0 {
				rows = append(rows, TopPick{Champion: c.Name, Winrate: c.OverallWinrate(), Games: c.TotalGames})
			}
		}
		sortPicks(rows)
		rows = head(rows, fallbackTopPicks)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, c := range exclude {
		skip[names.Key(c)] = struct{}{}
	}
	out := rows[:0:0]
	for _, r := range rows {
		if _, used := skip[names.Key(r.Champion)]; !used {
			out = append(out, r)
		}
	}
	return out
}

// Validate reports teams whose entries are not whole games.
func (m *Model) Validate() error {
	var err error
	for _, t := range m.Teams() {
		if !t.EntriesComplete() {
			err = multierr.Append(err, fmt.Errorf("team %q: %d entries (%d win entries) is not a multiple of %d",
				t.Name, t.TotalEntries, t.TotalWinEntries, EntriesPerGame))
		}
	}
	return err
}

// MismatchedTeams recomputes each team's champion stats from its roster on a
// scratch copy and returns the names of teams whose result differs from the
// stored aggregates.
func (m *Model) MismatchedTeams() []string {
	var out []string
	for _, t := range m.Teams() {
		scratch := &Team{Name: t.Name, Players: t.Players}
		scratch.RecomputeFromPlayers()
		if !sameChampionStats(t, scratch) {
			out = append(out, t.Name)
		}
	}
	return out
}

func sameChampionStats(a, b *Team) bool {
	if len(a.champs) != len(b.champs) {
		return false
	}
	for k, v := range a.champs {
		w, ok := b.champs[k]
		if !ok || *v != *w {
			return false
		}
	}
	return true
}

// String is a short description used in logs.
func (m *Model) String() string {
	return fmt.Sprintf("champions=%d players=%d teams=%d", len(m.champions), len(m.players), len(m.teams))
}
