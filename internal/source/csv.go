// Package source reads raw match records and champion pools from files.
package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
)

var ErrMissingColumn = errors.New("missing required column")

// Column headers of the match export, matched case-insensitively.
const (
	ColPlayer     = "player"
	ColChampion   = "champ"
	ColTeam       = "teams"
	ColSide       = "side"
	ColWon        = "won"
	ColKills      = "kills"
	ColDeaths     = "deaths"
	ColAssists    = "assists"
	ColCreepScore = "creepscore"
)

var required = []string{ColPlayer, ColChampion, ColTeam}

// ReadRecords parses a match export with a header row. Short rows are padded
// so they surface later as malformed records instead of aborting the read.
func ReadRecords(r io.Reader) ([]stats.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []stats.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+2, err)
		}
		out = append(out, stats.RawRecord{
			Player:     field(row, ColPlayer),
			Champion:   field(row, ColChampion),
			Team:       field(row, ColTeam),
			Side:       field(row, ColSide),
			Won:        field(row, ColWon),
			Kills:      field(row, ColKills),
			Deaths:     field(row, ColDeaths),
			Assists:    field(row, ColAssists),
			CreepScore: field(row, ColCreepScore),
		})
	}
	return out, nil
}

// ReadRecordsFile opens path and calls ReadRecords.
func ReadRecordsFile(path string) ([]stats.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadChampionPool reads one champion per line. Blank lines, duplicates and
// lines starting with # are ignored.
func ReadChampionPool(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := names.Clean(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := names.Key(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read champion pool: %w", err)
	}
	return out, nil
}

// ReadChampionPoolFile opens path and calls ReadChampionPool.
func ReadChampionPoolFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open champion pool: %w", err)
	}
	defer f.Close()
	return ReadChampionPool(f)
}
