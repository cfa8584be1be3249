package stats

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

// TeamStatsMode selects how team champion stats are produced.
type TeamStatsMode int

const (
	// Incremental accumulates team champion stats record by record.
	Incremental TeamStatsMode = iota
	// Recompute rebuilds them from the linked rosters after all records are folded.
	Recompute
)

// Report summarizes one Load call.
type Report struct {
	Fingerprint uint64
	Accepted    int
	Skipped     int
	// Warnings holds one error per skipped record; see multierr.Errors.
	Warnings error
}

// Aggregator folds match records into a Model. It remembers the records it
// has accepted and rebuilds a fresh Model on every Load, so a Model handed
// out earlier is never modified.
type Aggregator struct {
	mu           sync.Mutex
	logger       *zap.Logger
	pool         map[string]string
	mode         TeamStatsMode
	accepted     []Record
	fingerprints map[uint64]struct{}
	model        *Model
}

type Option func(*Aggregator)

// WithChampionPool restricts the registry to the given champions. Records for
// any other champion are skipped with ErrUnknownChampion.
func WithChampionPool(pool []string) Option {
	return func(a *Aggregator) {
		if len(pool) == 0 {
			return
		}
		a.pool = make(map[string]string, len(pool))
		for _, c := range pool {
			if c = names.Clean(c); c != "" {
				a.pool[names.Key(c)] = c
			}
		}
	}
}

func WithTeamStatsMode(mode TeamStatsMode) Option {
	return func(a *Aggregator) { a.mode = mode }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger:       zap.NewNop(),
		fingerprints: make(map[uint64]struct{}),
		model:        NewModel(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("aggregator")
	return a
}

// Fingerprint hashes a record set independently of record order.
func Fingerprint(raw []RawRecord) uint64 {
	sums := make([]uint64, len(raw))
	for i, r := range raw {
		sums[i] = xxhash.Sum64String(r.canonical())
	}
	slices.Sort(sums)
	d := xxhash.New()
	var buf [8]byte
	for _, s := range sums {
		binary.LittleEndian.PutUint64(buf[:], s)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Load normalizes raw, folds the valid records into a new Model and returns a
// report of what was skipped. Loading a record set whose fingerprint was
// already accepted fails with ErrDuplicateLoad and changes nothing.
func (a *Aggregator) Load(ctx context.Context, raw []RawRecord) (Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fp := Fingerprint(raw)
	if _, seen := a.fingerprints[fp]; seen {
		return Report{Fingerprint: fp}, fmt.Errorf("%w: fingerprint %016x", ErrDuplicateLoad, fp)
	}

	report := Report{Fingerprint: fp}
	batch := make([]Record, 0, len(raw))
	for i, r := range raw {
		if err := ctx.Err(); err != nil {
			return Report{Fingerprint: fp}, err
		}
		rec, err := r.Normalize()
		if err == nil {
			rec, err = a.admit(rec)
		}
		if err != nil {
			report.Skipped++
			report.Warnings = multierr.Append(report.Warnings, fmt.Errorf("record %d: %w", i, err))
			a.logger.Warn("skipping record", zap.Int("index", i), zap.Error(err))
			continue
		}
		batch = append(batch, rec)
	}
	report.Accepted = len(batch)

	a.accepted = append(a.accepted, batch...)
	a.fingerprints[fp] = struct{}{}
	a.model = build(a.accepted, a.mode)

	if err := a.model.Validate(); err != nil {
		a.logger.Warn("incomplete team entries", zap.Error(err))
	}
	a.logger.Info("records loaded",
		zap.Int("accepted", report.Accepted),
		zap.Int("skipped", report.Skipped),
		zap.Stringer("model", a.model),
	)
	return report, nil
}

// admit maps the record's champion to its registry name, rejecting champions
// outside a configured pool.
func (a *Aggregator) admit(rec Record) (Record, error) {
	if a.pool == nil {
		return rec, nil
	}
	name, ok := a.pool[names.Key(rec.Champion)]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q (player %q)", ErrUnknownChampion, rec.Champion, rec.Player)
	}
	rec.Champion = name
	return rec, nil
}

// Model returns the most recently built model.
func (a *Aggregator) Model() *Model {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Reset forgets every accepted record and fingerprint.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accepted = nil
	a.fingerprints = make(map[uint64]struct{})
	a.model = NewModel()
}

// Build folds records into a new Model without fingerprinting.
func Build(records []Record, mode TeamStatsMode) *Model {
	return build(records, mode)
}

func build(records []Record, mode TeamStatsMode) *Model {
	m := NewModel()
	for _, rec := range records {
		fold(m, rec, mode)
	}

	// link players to the rosters they played for, in record order
	for _, rec := range records {
		p, _ := m.Player(rec.Player)
		t, _ := m.Team(rec.Team)
		t.addPlayer(p)
		p.Team = t
	}

	if mode == Recompute {
		for _, t := range m.Teams() {
			t.RecomputeFromPlayers()
		}
	}
	return m
}

func fold(m *Model, rec Record, mode TeamStatsMode) {
	win := 0
	if rec.Won {
		win = 1
	}

	champ := m.champion(rec.Champion)
	champ.TotalGames++
	champ.TotalWins += win

	perf := ChampionPerformance{
		Champion:   champ.Name,
		Games:      1,
		Wins:       win,
		Kills:      rec.Kills,
		Deaths:     rec.Deaths,
		Assists:    rec.Assists,
		CreepScore: rec.CreepScore,
	}

	p := m.player(rec.Player)
	t := m.team(rec.Team)
	p.AddChampionPerformance(t.Name, perf)

	t.AddEntry(rec.Side, rec.Won, rec.Kills, rec.Deaths, rec.Assists)
	if mode == Incremental {
		t.AddChampionPerformance(perf)
	}
}
