// Package stats holds the historical entity model (champions, players and
// teams with their performance aggregates) and the aggregator that builds it
// from match records.
//
// A Model is built once per load and is read-only afterwards. Reloading
// produces a new Model; published models are never mutated in place.
package stats

import (
	"math"
	"sort"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

// EntriesPerGame is the number of player entries one team records per match.
const EntriesPerGame = 5

type Champion struct {
	Name       string
	TotalGames int
	TotalWins  int
}

// OverallWinrate is a percentage, 0 when the champion has no games.
func (c *Champion) OverallWinrate() float64 {
	return percent(c.TotalWins, c.TotalGames)
}

// ChampionPerformance is one player's record on one champion.
type ChampionPerformance struct {
	Champion   string
	Games      int
	Wins       int
	Kills      int
	Deaths     int
	Assists    int
	CreepScore int
}

func (p *ChampionPerformance) Winrate() float64 { return percent(p.Wins, p.Games) }

func (p *ChampionPerformance) KDARatio() float64 {
	return float64(p.Kills+p.Assists) / float64(max(1, p.Deaths))
}

func (p *ChampionPerformance) AverageKills() float64   { return ratio(p.Kills, p.Games) }
func (p *ChampionPerformance) AverageDeaths() float64  { return ratio(p.Deaths, p.Games) }
func (p *ChampionPerformance) AverageAssists() float64 { return ratio(p.Assists, p.Games) }
func (p *ChampionPerformance) AverageCS() float64      { return ratio(p.CreepScore, p.Games) }

func (p *ChampionPerformance) add(o ChampionPerformance) {
	p.Games += o.Games
	p.Wins += o.Wins
	p.Kills += o.Kills
	p.Deaths += o.Deaths
	p.Assists += o.Assists
	p.CreepScore += o.CreepScore
}

type Player struct {
	Name string
	// Team is the roster the player was last recorded with. It is a lookup
	// relation; the team owns the player.
	Team *Team

	TotalGames   int
	TotalWins    int
	TotalKills   int
	TotalDeaths  int
	TotalAssists int

	champs     map[string]*ChampionPerformance
	champOrder []string
	// per team key, per champion key; summing over teams yields champs
	byTeam map[string]map[string]*ChampionPerformance
}

func newPlayer(name string) *Player {
	return &Player{
		Name:   name,
		champs: make(map[string]*ChampionPerformance),
		byTeam: make(map[string]map[string]*ChampionPerformance),
	}
}

// AddChampionPerformance folds one contribution into the player's champion
// record and running totals, keeping both in lockstep.
func (p *Player) AddChampionPerformance(team string, perf ChampionPerformance) {
	key := names.Key(perf.Champion)
	cp, ok := p.champs[key]
	if !ok {
		cp = &ChampionPerformance{Champion: perf.Champion}
		p.champs[key] = cp
		p.champOrder = append(p.champOrder, key)
	}
	cp.add(perf)

	tk := names.Key(team)
	split, ok := p.byTeam[tk]
	if !ok {
		split = make(map[string]*ChampionPerformance)
		p.byTeam[tk] = split
	}
	sp, ok := split[key]
	if !ok {
		sp = &ChampionPerformance{Champion: perf.Champion}
		split[key] = sp
	}
	sp.add(perf)

	p.TotalGames += perf.Games
	p.TotalWins += perf.Wins
	p.TotalKills += perf.Kills
	p.TotalDeaths += perf.Deaths
	p.TotalAssists += perf.Assists
}

// Champions returns the player's champion records in first-played order.
func (p *Player) Champions() []*ChampionPerformance {
	out := make([]*ChampionPerformance, 0, len(p.champOrder))
	for _, k := range p.champOrder {
		out = append(out, p.champs[k])
	}
	return out
}

// Performance returns the record for champion, if any.
func (p *Player) Performance(champion string) (*ChampionPerformance, bool) {
	cp, ok := p.champs[names.Key(champion)]
	return cp, ok
}

// contribution returns what the player recorded while playing for team, in
// first-played order.
func (p *Player) contribution(team string) []ChampionPerformance {
	split := p.byTeam[names.Key(team)]
	out := make([]ChampionPerformance, 0, len(split))
	for _, k := range p.champOrder {
		if sp, ok := split[k]; ok {
			out = append(out, *sp)
		}
	}
	return out
}

func (p *Player) Winrate() float64 { return percent(p.TotalWins, p.TotalGames) }

func (p *Player) KDARatio() float64 {
	if p.TotalGames == 0 {
		return 0
	}
	return float64(p.TotalKills+p.TotalAssists) / float64(max(1, p.TotalDeaths))
}

func (p *Player) AverageKills() float64   { return ratio(p.TotalKills, p.TotalGames) }
func (p *Player) AverageDeaths() float64  { return ratio(p.TotalDeaths, p.TotalGames) }
func (p *Player) AverageAssists() float64 { return ratio(p.TotalAssists, p.TotalGames) }

func (p *Player) WinrateOn(champion string) float64 {
	if cp, ok := p.Performance(champion); ok {
		return cp.Winrate()
	}
	return 0
}

func (p *Player) KDAOn(champion string) float64 {
	if cp, ok := p.Performance(champion); ok {
		return cp.KDARatio()
	}
	return 0
}

func (p *Player) GamesOn(champion string) int {
	if cp, ok := p.Performance(champion); ok {
		return cp.Games
	}
	return 0
}

// TopChampions returns up to limit champions ordered by games played, then name.
func (p *Player) TopChampions(limit int) []*ChampionPerformance {
	out := p.Champions()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Champion < out[j].Champion
	})
	return head(out, limit)
}

// TeamChampionPerformance aggregates a team's record on one champion.
type TeamChampionPerformance struct {
	ChampionName string
	Games        int
	Wins         int
	Kills        int
	Deaths       int
	Assists      int
	CreepScore   int
}

func (p *TeamChampionPerformance) Winrate() float64 { return percent(p.Wins, p.Games) }

// KDARatio is +Inf for a deathless record with any kills or assists.
func (p *TeamChampionPerformance) KDARatio() float64 {
	if p.Deaths == 0 {
		if p.Kills+p.Assists > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return float64(p.Kills+p.Assists) / float64(p.Deaths)
}

func (p *TeamChampionPerformance) AverageCS() float64 { return ratio(p.CreepScore, p.Games) }

type Team struct {
	Name    string
	Players []*Player

	TotalEntries    int
	TotalWinEntries int
	BlueEntries     int
	RedEntries      int
	BlueWinEntries  int
	RedWinEntries   int

	TotalKills   int
	TotalDeaths  int
	TotalAssists int

	champs     map[string]*TeamChampionPerformance
	champOrder []string
}

func newTeam(name string) *Team {
	return &Team{Name: name, champs: make(map[string]*TeamChampionPerformance)}
}

// AddEntry records one player-entry of a match for the team.
func (t *Team) AddEntry(side engine.Team, won bool, kills, deaths, assists int) {
	win := 0
	if won {
		win = 1
	}
	t.TotalEntries++
	t.TotalWinEntries += win
	t.TotalKills += kills
	t.TotalDeaths += deaths
	t.TotalAssists += assists
	if side == engine.TeamRed {
		t.RedEntries++
		t.RedWinEntries += win
	} else {
		t.BlueEntries++
		t.BlueWinEntries += win
	}
}

// AddChampionPerformance folds a contribution into the team's champion stats.
func (t *Team) AddChampionPerformance(perf ChampionPerformance) {
	key := names.Key(perf.Champion)
	tp, ok := t.champs[key]
	if !ok {
		tp = &TeamChampionPerformance{ChampionName: perf.Champion}
		t.champs[key] = tp
		t.champOrder = append(t.champOrder, key)
	}
	tp.Games += perf.Games
	tp.Wins += perf.Wins
	tp.Kills += perf.Kills
	tp.Deaths += perf.Deaths
	tp.Assists += perf.Assists
	tp.CreepScore += perf.CreepScore
}

// RecomputeFromPlayers rebuilds champion stats from the roster's records
// made while playing for this team.
func (t *Team) RecomputeFromPlayers() {
	t.champs = make(map[string]*TeamChampionPerformance)
	t.champOrder = nil
	for _, p := range t.Players {
		for _, perf := range p.contribution(t.Name) {
			t.AddChampionPerformance(perf)
		}
	}
}

func (t *Team) addPlayer(p *Player) {
	for _, existing := range t.Players {
		if existing == p {
			return
		}
	}
	t.Players = append(t.Players, p)
}

// ChampionStats returns the team's champion aggregates keyed by champion key.
func (t *Team) ChampionStats() map[string]TeamChampionPerformance {
	out := make(map[string]TeamChampionPerformance, len(t.champs))
	for k, v := range t.champs {
		out[k] = *v
	}
	return out
}

// ChampionStat returns the aggregate for one champion.
func (t *Team) ChampionStat(champion string) (TeamChampionPerformance, bool) {
	tp, ok := t.champs[names.Key(champion)]
	if !ok {
		return TeamChampionPerformance{}, false
	}
	return *tp, true
}

func (t *Team) TotalGames() int { return t.TotalEntries / EntriesPerGame }
func (t *Team) TotalWins() int  { return t.TotalWinEntries / EntriesPerGame }
func (t *Team) BlueGames() int  { return t.BlueEntries / EntriesPerGame }
func (t *Team) RedGames() int   { return t.RedEntries / EntriesPerGame }

func (t *Team) Winrate() float64     { return percent(t.TotalWinEntries, t.TotalEntries) }
func (t *Team) BlueWinrate() float64 { return percent(t.BlueWinEntries, t.BlueEntries) }
func (t *Team) RedWinrate() float64  { return percent(t.RedWinEntries, t.RedEntries) }

func (t *Team) KDARatio() float64 {
	return float64(t.TotalKills+t.TotalAssists) / float64(max(1, t.TotalDeaths))
}

// EntriesComplete reports whether every recorded match has all five entries.
func (t *Team) EntriesComplete() bool {
	return t.TotalEntries%EntriesPerGame == 0 && t.TotalWinEntries%EntriesPerGame == 0
}

func (t *Team) WinrateOn(champion string) float64 {
	tp, _ := t.ChampionStat(champion)
	return tp.Winrate()
}

func (t *Team) GamesOn(champion string) int {
	tp, _ := t.ChampionStat(champion)
	return tp.Games
}

func (t *Team) KDAOn(champion string) float64 {
	tp, _ := t.ChampionStat(champion)
	return tp.KDARatio()
}

type SortKey string

const (
	SortByGames   SortKey = "games"
	SortByWinrate SortKey = "winrate"
	SortByKDA     SortKey = "kda"
)

// TopChampions lists champions with at least minGames games ordered by key.
// Unknown keys sort by games. Ties fall back to champion name ascending.
func (t *Team) TopChampions(limit, minGames int, key SortKey, descending bool) []TeamChampionPerformance {
	rows := make([]TeamChampionPerformance, 0, len(t.champs))
	for _, k := range t.champOrder {
		if tp := t.champs[k]; tp.Games >= max(0, minGames) {
			rows = append(rows, *tp)
		}
	}
	metric := func(tp *TeamChampionPerformance) float64 {
		switch key {
		case SortByWinrate:
			return tp.Winrate()
		case SortByKDA:
			return tp.KDARatio()
		default:
			return float64(tp.Games)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := metric(&rows[i]), metric(&rows[j])
		if a != b {
			if descending {
				return a > b
			}
			return a < b
		}
		return rows[i].ChampionName < rows[j].ChampionName
	})
	return head(rows, limit)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
