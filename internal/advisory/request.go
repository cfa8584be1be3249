package advisory

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
)

// Request is everything the advisory service sees. It carries the whole
// draft on every call; the service keeps no session.
type Request struct {
	Context string
	Data    string
	Task    string
	// Final is set at the terminal turn, when a win-rate estimate is expected.
	Final bool
}

// Prompt joins the three parts the way the service expects them.
func (r Request) Prompt() string {
	return strings.TrimSpace(fmt.Sprintf("%s\n\nData Context:\n%s\n\nTask:\n%s", r.Context, r.Data, r.Task))
}

// BuildRequest is a pure function of the draft and the data summary.
func BuildRequest(s engine.State, data string) Request {
	sides := engine.ResolveSides(s)
	return Request{
		Context: strings.Join(ContextLines(s), "\n"),
		Data:    strings.TrimSpace(data),
		Task:    Task(s.Cursor, sides),
		Final:   s.Cursor >= engine.TotalTurns,
	}
}

func ContextLines(s engine.State) []string {
	home := string(s.HomeSide)
	if home == "" {
		home = "unset"
	}
	cur, _ := engine.CurrentStep(s)
	next, _ := engine.NextStep(s)
	return []string{
		"You are a professional League of Legends draft analyst hired by an esports organization to give draft advice.",
		"You will be given a CSV summary of historical match and pick data.",
		"Provide suggestions and predictions that account for the draft state, team composition and the historical data.",
		"Context: Champion Draft Assistant.",
		"Blue Team: " + s.TeamName(engine.TeamBlue),
		"Red Team: " + s.TeamName(engine.TeamRed),
		"Home side: " + home,
		"Turn: " + cur.String(),
		"Turn number: " + strconv.Itoa(s.Cursor),
		"Next turn: " + next.String(),
		"Blue bans: " + list(s.Bans[engine.TeamBlue]),
		"Red bans: " + list(s.Bans[engine.TeamRed]),
		"Blue picks: " + list(s.Picks[engine.TeamBlue]),
		"Red picks: " + list(s.Picks[engine.TeamRed]),
		"Be concise and helpful.",
	}
}

func list(champs []string) string {
	if len(champs) == 0 {
		return "none"
	}
	return strings.Join(champs, ", ")
}

// DataText summarizes the model as CSV: one row per team, then one row per
// team champion, then one row per champion overall, stopping after maxRows
// data rows. maxRows <= 0 means no limit.
func DataText(m *stats.Model, maxRows int) string {
	if m == nil {
		return ""
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Kind", "Team", "Champion", "Games", "Wins", "Winrate", "BlueWinrate", "RedWinrate", "KDA"})

	rows := 0
	full := func() bool { return maxRows > 0 && rows >= maxRows }
	emit := func(rec ...string) {
		_ = w.Write(rec)
		rows++
	}
	f1 := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
	f2 := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

	for _, t := range m.Teams() {
		if full() {
			break
		}
		emit("team", t.Name, "", strconv.Itoa(t.TotalGames()), strconv.Itoa(t.TotalWins()),
			f1(t.Winrate()), f1(t.BlueWinrate()), f1(t.RedWinrate()), f2(t.KDARatio()))
	}
	for _, t := range m.Teams() {
		for _, cp := range t.TopChampions(0, 1, stats.SortByGames, true) {
			if full() {
				break
			}
			emit("team_champion", t.Name, cp.ChampionName, strconv.Itoa(cp.Games), strconv.Itoa(cp.Wins),
				f1(cp.Winrate()), "", "", f2(finite(cp.KDARatio())))
		}
	}
	for _, c := range m.MostPicked(0) {
		if full() {
			break
		}
		emit("champion", "", c.Name, strconv.Itoa(c.TotalGames), strconv.Itoa(c.TotalWins),
			f1(c.OverallWinrate()), "", "", "")
	}
	w.Flush()
	return buf.String()
}

// finite maps the unbounded deathless KDA to a printable value.
func finite(v float64) float64 {
	if math.IsInf(v, 1) {
		return 999
	}
	return v
}
