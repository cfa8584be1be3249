package stats

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrUnknownChampion = errors.New("champion not in registry")
	ErrDuplicateLoad   = errors.New("record set already loaded")
)

// RawRecord is one player's line of a match as delivered by a source, before
// any parsing. Missing numeric fields are empty strings.
type RawRecord struct {
	Player     string
	Champion   string
	Team       string
	Side       string
	Won        string
	Kills      string
	Deaths     string
	Assists    string
	CreepScore string
}

// Record is a normalized match-performance record.
type Record struct {
	Player     string
	Champion   string
	Team       string
	Side       engine.Team
	Won        bool
	Kills      int
	Deaths     int
	Assists    int
	CreepScore int
}

// Normalize parses r. Identity fields are required; numeric fields that are
// missing or not numbers become 0 rather than failing the record.
func (r RawRecord) Normalize() (Record, error) {
	rec := Record{
		Player:     names.Clean(r.Player),
		Champion:   names.Clean(r.Champion),
		Team:       names.Clean(r.Team),
		Side:       parseSide(r.Side),
		Won:        parseWon(r.Won),
		Kills:      parseCount(r.Kills),
		Deaths:     parseCount(r.Deaths),
		Assists:    parseCount(r.Assists),
		CreepScore: parseCount(r.CreepScore),
	}
	switch {
	case rec.Player == "":
		return Record{}, fmt.Errorf("%w: missing player", ErrMalformedRecord)
	case rec.Champion == "":
		return Record{}, fmt.Errorf("%w: missing champion for player %q", ErrMalformedRecord, rec.Player)
	case rec.Team == "":
		return Record{}, fmt.Errorf("%w: missing team for player %q", ErrMalformedRecord, rec.Player)
	}
	return rec, nil
}

// anything that is not explicitly red counts as blue side
func parseSide(s string) engine.Team {
	if strings.EqualFold(strings.TrimSpace(s), "red") {
		return engine.TeamRed
	}
	return engine.TeamBlue
}

func parseWon(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "win", "won":
		return true
	default:
		return false
	}
}

// parseCount reads "7", "7.0" and "7.9" as 7. Anything else, including NaN,
// infinities, negatives and values past math.MaxInt32, is 0.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// canonical is the field encoding hashed for load fingerprints.
func (r RawRecord) canonical() string {
	return strings.Join([]string{
		names.Key(r.Player), names.Key(r.Champion), names.Key(r.Team),
		strings.ToLower(strings.TrimSpace(r.Side)), strings.ToLower(strings.TrimSpace(r.Won)),
		strings.TrimSpace(r.Kills), strings.TrimSpace(r.Deaths),
		strings.TrimSpace(r.Assists), strings.TrimSpace(r.CreepScore),
	}, "\x1f")
}
