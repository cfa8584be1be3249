// Package assistant is the draft action surface: it routes draft mutations
// to lobby actors and runs rankings and advice against immutable snapshots.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"lukechampine.com/frand"

	"github.com/DoyleJ11/lol-draft-assistant/internal/advisory"
	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/hub"
	"github.com/DoyleJ11/lol-draft-assistant/internal/lobby"
	"github.com/DoyleJ11/lol-draft-assistant/internal/metrics"
	"github.com/DoyleJ11/lol-draft-assistant/internal/source"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
	"github.com/DoyleJ11/lol-draft-assistant/internal/store"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrStaleRanking  = errors.New("draft kept changing during ranking")
	ErrNoCodes       = errors.New("could not allocate a draft code")
)

const (
	codeLength   = 6
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 16

	defaultRankAttempts = 3
)

// RecordStore persists accepted loads. *store.Store satisfies it.
type RecordStore interface {
	SaveLoad(ctx context.Context, source string, report stats.Report, raw []stats.RawRecord) error
	Loads(ctx context.Context) ([]store.StoredLoad, error)
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithChampionPool fixes the candidate pool. Without it the pool is every
// champion of the current model.
func WithChampionPool(pool []string) Option {
	return func(s *Service) { s.pool = append([]string(nil), pool...) }
}

func WithStore(st RecordStore) Option {
	return func(s *Service) { s.store = st }
}

func WithAdvisoryMaxRows(n int) Option {
	return func(s *Service) { s.maxRows = n }
}

// WithRankAttempts bounds how many times a ranking is recomputed when the
// draft moves underneath it.
func WithRankAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rankAttempts = n
		}
	}
}

type Service struct {
	hub          *hub.Hub
	agg          *stats.Aggregator
	ranker       *delta.Engine
	coordinator  *advisory.Coordinator
	pool         []string
	store        RecordStore
	maxRows      int
	rankAttempts int
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func New(h *hub.Hub, agg *stats.Aggregator, ranker *delta.Engine, coordinator *advisory.Coordinator, opts ...Option) *Service {
	s := &Service{
		hub:          h,
		agg:          agg,
		ranker:       ranker,
		coordinator:  coordinator,
		rankAttempts: defaultRankAttempts,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("assistant")
	return s
}

// Model returns the current statistics model. It is never mutated.
func (s *Service) Model() *stats.Model { return s.agg.Model() }

// Pool returns the champions eligible as candidates.
func (s *Service) Pool() []string {
	if len(s.pool) > 0 {
		return s.pool
	}
	return s.Model().ChampionNames()
}

// GenerateCode returns a random draft code.
func GenerateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeCharset[frand.Intn(len(codeCharset))]
	}
	return string(code)
}

// CreateDraft opens a new empty draft under a fresh code.
func (s *Service) CreateDraft(ctx context.Context) (string, lobby.Snapshot, error) {
	for range codeAttempts {
		code := GenerateCode()
		lb := s.hub.Create(ctx, code, engine.NewEmptyState())
		if lb == nil {
			if err := ctx.Err(); err != nil {
				return "", lobby.Snapshot{}, err
			}
			s.logger.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}
		v, err := lb.View(ctx)
		if err != nil {
			return "", lobby.Snapshot{}, err
		}
		return code, lobby.Snapshot{Version: v.Version, State: v.State}, nil
	}
	return "", lobby.Snapshot{}, ErrNoCodes
}

func (s *Service) lobby(ctx context.Context, code string) (*lobby.Lobby, error) {
	lb := s.hub.Get(ctx, code)
	if lb == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %q", ErrDraftNotFound, code)
	}
	return lb, nil
}

// Lobby exposes the actor behind code for live subscriptions.
func (s *Service) Lobby(ctx context.Context, code string) (*lobby.Lobby, error) {
	return s.lobby(ctx, code)
}

// Draft returns the current snapshot of a draft.
func (s *Service) Draft(ctx context.Context, code string) (lobby.Snapshot, error) {
	lb, err := s.lobby(ctx, code)
	if err != nil {
		return lobby.Snapshot{}, err
	}
	v, err := lb.View(ctx)
	if err != nil {
		return lobby.Snapshot{}, err
	}
	return lobby.Snapshot{Version: v.Version, State: v.State}, nil
}

func (s *Service) call(ctx context.Context, code string, build func(chan lobby.Result) lobby.Msg) (lobby.Snapshot, error) {
	lb, err := s.lobby(ctx, code)
	if err != nil {
		return lobby.Snapshot{}, err
	}
	return lb.Call(ctx, build)
}

// ApplyAction bans or picks champion for whichever step is current.
func (s *Service) ApplyAction(ctx context.Context, code, champion string) (lobby.Snapshot, error) {
	return s.call(ctx, code, func(r chan lobby.Result) lobby.Msg {
		return lobby.FromClient{Cmd: engine.Command{Type: engine.CmdApply, Champion: champion}, Reply: r}
	})
}

// RandomAction applies a random legal champion from the pool.
func (s *Service) RandomAction(ctx context.Context, code string) (lobby.Snapshot, error) {
	pool := s.Pool()
	return s.call(ctx, code, func(r chan lobby.Result) lobby.Msg {
		return lobby.Random{Pool: pool, Reply: r}
	})
}

func (s *Service) Undo(ctx context.Context, code string) (lobby.Snapshot, error) {
	return s.call(ctx, code, func(r chan lobby.Result) lobby.Msg { return lobby.Undo{Reply: r} })
}

func (s *Service) Reset(ctx context.Context, code string) (lobby.Snapshot, error) {
	return s.call(ctx, code, func(r chan lobby.Result) lobby.Msg { return lobby.Reset{Reply: r} })
}

// SetHomeSide toggles the home side.
func (s *Service) SetHomeSide(ctx context.Context, code string, side engine.Team) (lobby.Snapshot, error) {
	return s.call(ctx, code, func(r chan lobby.Result) lobby.Msg { return lobby.SetHome{Side: side, Reply: r} })
}

func (s *Service) SetTeams(ctx context.Context, code, blue, red string) (lobby.Snapshot, error) {
	return s.call(ctx, code, func(r chan lobby.Result) lobby.Msg {
		return lobby.SetTeams{Blue: blue, Red: red, Reply: r}
	})
}

// Phase describes one draft step.
type Phase struct {
	Turn   int             `json:"turn"`
	Step   engine.TurnStep `json:"-"`
	Side   engine.Team     `json:"side,omitempty"`
	Action engine.Action   `json:"action,omitempty"`
	Label  string          `json:"label"`
	Done   bool            `json:"done"`
}

func phaseOf(turn int) Phase {
	step, ok := engine.StepAt(turn)
	return Phase{Turn: turn, Step: step, Side: step.Team, Action: step.Action, Label: step.String(), Done: !ok}
}

// CurrentPhase returns the step to play now.
func (s *Service) CurrentPhase(ctx context.Context, code string) (Phase, error) {
	snap, err := s.Draft(ctx, code)
	if err != nil {
		return Phase{}, err
	}
	return phaseOf(snap.State.Cursor), nil
}

// NextPhase returns the step after the current one.
func (s *Service) NextPhase(ctx context.Context, code string) (Phase, error) {
	snap, err := s.Draft(ctx, code)
	if err != nil {
		return Phase{}, err
	}
	return phaseOf(snap.State.Cursor + 1), nil
}

// RankCandidates ranks every legal champion for the current step.
func (s *Service) RankCandidates(ctx context.Context, code string, p delta.Perspective) (delta.Ranking, error) {
	lb, err := s.lobby(ctx, code)
	if err != nil {
		return delta.Ranking{}, err
	}
	r, _, err := s.rank(ctx, lb, p)
	return r, err
}

// rank computes against a snapshot and discards the result if the draft
// moved meanwhile, recomputing against the new snapshot.
func (s *Service) rank(ctx context.Context, lb *lobby.Lobby, p delta.Perspective) (delta.Ranking, lobby.View, error) {
	for attempt := 1; ; attempt++ {
		before, err := lb.View(ctx)
		if err != nil {
			return delta.Ranking{}, lobby.View{}, err
		}
		r, err := s.ranker.Rank(ctx, before.State, s.Pool(), p)
		if err != nil {
			return delta.Ranking{}, before, err
		}
		after, err := lb.View(ctx)
		if err != nil {
			return delta.Ranking{}, lobby.View{}, err
		}
		if after.Version == before.Version {
			return r, before, nil
		}

		s.metrics.StaleRanking()
		s.logger.Warn("draft changed during ranking, discarding",
			zap.Int("from_version", before.Version),
			zap.Int("to_version", after.Version),
			zap.Int("attempt", attempt))
		if attempt >= s.rankAttempts {
			return delta.Ranking{}, after, ErrStaleRanking
		}
	}
}

// Advise ranks the current step and asks the advisory service about it.
// Advisory failures degrade the Advice; only draft lookup and ranking
// errors are returned.
func (s *Service) Advise(ctx context.Context, code string) (advisory.Advice, error) {
	lb, err := s.lobby(ctx, code)
	if err != nil {
		return advisory.Advice{}, err
	}

	var ranking *delta.Ranking
	r, view, err := s.rank(ctx, lb, delta.PerspectiveSelf)
	switch {
	case err == nil:
		ranking = &r
	case errors.Is(err, engine.ErrOutOfPhase):
		// terminal turn: win-rate summary only
	default:
		return advisory.Advice{}, err
	}

	data := advisory.DataText(s.Model(), s.maxRows)
	return s.coordinator.Advise(ctx, view.State, data, ranking), nil
}

// TeamTopPicks returns the team panel, excluding champions already used in
// the draft identified by code when code is not empty.
func (s *Service) TeamTopPicks(ctx context.Context, team, code string) ([]stats.TopPick, error) {
	var exclude []string
	if code != "" {
		snap, err := s.Draft(ctx, code)
		if err != nil {
			return nil, err
		}
		exclude = engine.Used(snap.State)
	}
	return s.Model().TeamTopPicks(team, exclude), nil
}

// Load folds raw into the model and persists the accepted load.
func (s *Service) Load(ctx context.Context, src string, raw []stats.RawRecord) (stats.Report, error) {
	report, err := s.agg.Load(ctx, raw)
	if err != nil {
		return report, err
	}
	s.metrics.RecordsLoaded(report.Accepted, report.Skipped)

	if s.store != nil {
		if err := s.store.SaveLoad(ctx, src, report, raw); err != nil {
			// the model already holds the records; only persistence is lost
			s.logger.Error("failed to persist load", zap.String("source", src), zap.Error(err))
			return report, fmt.Errorf("persist load: %w", err)
		}
	}
	return report, nil
}

// LoadFile reads a CSV export and loads it.
func (s *Service) LoadFile(ctx context.Context, path string) (stats.Report, error) {
	raw, err := source.ReadRecordsFile(path)
	if err != nil {
		return stats.Report{}, err
	}
	return s.Load(ctx, path, raw)
}

// Restore replays every stored load into the aggregator, in order. Loads
// already present are skipped.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	loads, err := s.store.Loads(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, l := range loads {
		report, err := s.agg.Load(ctx, l.Records)
		if errors.Is(err, stats.ErrDuplicateLoad) {
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("restore %s: %w", l.Source, err)
		}
		if report.Fingerprint != l.Fingerprint {
			s.logger.Warn("stored load fingerprint changed",
				zap.String("source", l.Source),
				zap.Uint64("stored", l.Fingerprint),
				zap.Uint64("computed", report.Fingerprint))
		}
		s.metrics.RecordsLoaded(report.Accepted, report.Skipped)
		restored++
	}
	s.logger.Info("restored stored loads", zap.Int("loads", restored))
	return restored, nil
}
