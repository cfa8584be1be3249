// Package types holds the HTTP request and response bodies of the draft API.
package types

import (
	"math"

	"github.com/DoyleJ11/lol-draft-assistant/internal/advisory"
	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
)

type ActionRequest struct {
	Champion string `json:"champion"`
}

type HomeRequest struct {
	Side string `json:"side"`
}

type TeamsRequest struct {
	Blue string `json:"blue"`
	Red  string `json:"red"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CodeResponse struct {
	Code string `json:"code"`
}

type CandidatesResponse struct {
	Turn        int               `json:"turn"`
	Side        string            `json:"side"`
	Action      string            `json:"action"`
	Suggesting  string            `json:"suggesting"`
	Perspective string            `json:"perspective"`
	Baseline    float64           `json:"baseline"`
	Candidates  []delta.Candidate `json:"candidates"`
	Warnings    []string          `json:"warnings,omitempty"`
}

func NewCandidatesResponse(r delta.Ranking, warnings []string) CandidatesResponse {
	cands := r.Candidates
	if cands == nil {
		cands = []delta.Candidate{}
	}
	return CandidatesResponse{
		Turn:        r.Turn,
		Side:        string(r.Step.Team),
		Action:      string(r.Step.Action),
		Suggesting:  string(r.Sides.Suggesting),
		Perspective: string(r.Perspective),
		Baseline:    r.Baseline,
		Candidates:  cands,
		Warnings:    warnings,
	}
}

type AdviceResponse struct {
	advisory.Advice
	Candidates []delta.Candidate `json:"candidates,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type ChampionResponse struct {
	Name    string  `json:"name"`
	Games   int     `json:"games"`
	Wins    int     `json:"wins"`
	Winrate float64 `json:"winrate"`
}

func NewChampionResponse(c *stats.Champion) ChampionResponse {
	return ChampionResponse{Name: c.Name, Games: c.TotalGames, Wins: c.TotalWins, Winrate: c.OverallWinrate()}
}

type TeamChampionResponse struct {
	Champion string  `json:"champion"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Winrate  float64 `json:"winrate"`
	KDA      float64 `json:"kda"`
}

type TeamResponse struct {
	Name        string                 `json:"name"`
	Games       int                    `json:"games"`
	Wins        int                    `json:"wins"`
	Winrate     float64                `json:"winrate"`
	BlueGames   int                    `json:"blue_games"`
	RedGames    int                    `json:"red_games"`
	BlueWinrate float64                `json:"blue_winrate"`
	RedWinrate  float64                `json:"red_winrate"`
	KDA         float64                `json:"kda"`
	Players     []string               `json:"players"`
	Champions   []TeamChampionResponse `json:"champions"`
}

type TopPickResponse struct {
	Champion string  `json:"champion"`
	Games    int     `json:"games"`
	Winrate  float64 `json:"winrate"`
}

type PlayerChampionResponse struct {
	Champion string  `json:"champion"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Winrate  float64 `json:"winrate"`
	KDA      float64 `json:"kda"`
}

type PlayerResponse struct {
	Name           string                   `json:"name"`
	Team           string                   `json:"team,omitempty"`
	Games          int                      `json:"games"`
	Wins           int                      `json:"wins"`
	Winrate        float64                  `json:"winrate"`
	KDA            float64                  `json:"kda"`
	AverageKills   float64                  `json:"avg_kills"`
	AverageDeaths  float64                  `json:"avg_deaths"`
	AverageAssists float64                  `json:"avg_assists"`
	Champions      []PlayerChampionResponse `json:"champions"`
}

type ReloadResponse struct {
	Fingerprint string   `json:"fingerprint"`
	Accepted    int      `json:"accepted"`
	Skipped     int      `json:"skipped"`
	Warnings    []string `json:"warnings,omitempty"`
}

// MaxKDA stands in for the unbounded ratio of a deathless record, which
// JSON cannot encode.
const MaxKDA = 999

func FiniteKDA(v float64) float64 {
	if math.IsInf(v, 1) || v > MaxKDA {
		return MaxKDA
	}
	return v
}

func NewTeamResponse(t *stats.Team) TeamResponse {
	resp := TeamResponse{
		Name:        t.Name,
		Games:       t.TotalGames(),
		Wins:        t.TotalWins(),
		Winrate:     t.Winrate(),
		BlueGames:   t.BlueGames(),
		RedGames:    t.RedGames(),
		BlueWinrate: t.BlueWinrate(),
		RedWinrate:  t.RedWinrate(),
		KDA:         FiniteKDA(t.KDARatio()),
		Players:     make([]string, 0, len(t.Players)),
		Champions:   []TeamChampionResponse{},
	}
	for _, p := range t.Players {
		resp.Players = append(resp.Players, p.Name)
	}
	for _, cp := range t.TopChampions(0, 0, stats.SortByGames, true) {
		resp.Champions = append(resp.Champions, TeamChampionResponse{
			Champion: cp.ChampionName,
			Games:    cp.Games,
			Wins:     cp.Wins,
			Winrate:  cp.Winrate(),
			KDA:      FiniteKDA(cp.KDARatio()),
		})
	}
	return resp
}

func NewTopPicksResponse(picks []stats.TopPick) []TopPickResponse {
	out := make([]TopPickResponse, 0, len(picks))
	for _, p := range picks {
		out = append(out, TopPickResponse{Champion: p.Champion, Games: p.Games, Winrate: p.Winrate})
	}
	return out
}

func NewPlayerResponse(p *stats.Player) PlayerResponse {
	resp := PlayerResponse{
		Name:           p.Name,
		Games:          p.TotalGames,
		Wins:           p.TotalWins,
		Winrate:        p.Winrate(),
		KDA:            FiniteKDA(p.KDARatio()),
		AverageKills:   p.AverageKills(),
		AverageDeaths:  p.AverageDeaths(),
		AverageAssists: p.AverageAssists(),
		Champions:      []PlayerChampionResponse{},
	}
	if p.Team != nil {
		resp.Team = p.Team.Name
	}
	for _, cp := range p.TopChampions(0) {
		resp.Champions = append(resp.Champions, PlayerChampionResponse{
			Champion: cp.Champion,
			Games:    cp.Games,
			Wins:     cp.Wins,
			Winrate:  cp.Winrate(),
			KDA:      FiniteKDA(cp.KDARatio()),
		})
	}
	return resp
}
