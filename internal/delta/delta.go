// Package delta ranks the legal candidates of a draft step by how much each
// one moves the predicted win probability.
package delta

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/metrics"
	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
	"github.com/DoyleJ11/lol-draft-assistant/internal/oracle"
)

var ErrInvalidPerspective = errors.New("invalid perspective")

// Perspective selects the ranking order. Self puts the candidates that help
// the suggesting side first; Opponent puts the ones that hurt it first, which
// is the opposing side's own best choice.
type Perspective string

const (
	PerspectiveSelf     Perspective = "self"
	PerspectiveOpponent Perspective = "opponent"
)

func ParsePerspective(s string) (Perspective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "self":
		return PerspectiveSelf, nil
	case "opponent", "predict":
		return PerspectiveOpponent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPerspective, s)
	}
}

// Candidate is one unused champion evaluated for the current step. The
// probabilities are the suggesting side's.
type Candidate struct {
	Champion     string  `json:"champion"`
	Baseline     float64 `json:"baseline"`
	Hypothetical float64 `json:"hypothetical"`
	Delta        float64 `json:"delta"`
	// Degraded is set when the oracle failed for this candidate and Delta was zeroed.
	Degraded bool `json:"degraded,omitempty"`
}

type Ranking struct {
	Turn        int
	Step        engine.TurnStep
	Sides       engine.Sides
	Perspective Perspective
	Baseline    float64
	Candidates  []Candidate
	// Warnings holds the recovered oracle failures; see multierr.Errors.
	Warnings error
}

// Champions returns the ranked champion names.
func (r Ranking) Champions() []string {
	return lo.Map(r.Candidates, func(c Candidate, _ int) string { return c.Champion })
}

// Lookup returns the candidates keyed by champion key.
func (r Ranking) Lookup() map[string]Candidate {
	return lo.KeyBy(r.Candidates, func(c Candidate) string { return names.Key(c.Champion) })
}

// Top returns at most n leading candidates.
func (r Ranking) Top(n int) []Candidate {
	if n < 0 || n >= len(r.Candidates) {
		return r.Candidates
	}
	return r.Candidates[:n]
}

type Engine struct {
	oracle  oracle.Oracle
	workers int
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

// WithWorkers bounds the number of concurrent oracle calls.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(o oracle.Oracle, opts ...Option) *Engine {
	e := &Engine{
		oracle:  o,
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("delta")
	return e
}

// Rank evaluates every champion of pool that is unused in s as the next
// action. Oracle failures never abort the ranking: a failed baseline falls
// back to an even split, a failed candidate gets a zero delta. The result is
// ordered deterministically regardless of evaluation order.
func (e *Engine) Rank(ctx context.Context, s engine.State, pool []string, p Perspective) (Ranking, error) {
	step, done := engine.CurrentStep(s)
	if done {
		return Ranking{}, engine.ErrOutOfPhase
	}
	start := time.Now()
	sides := engine.ResolveSides(s)

	r := Ranking{Turn: s.Cursor, Step: step, Sides: sides, Perspective: p}

	base, err := e.predict(ctx, s)
	if err != nil {
		if ctx.Err() != nil {
			return Ranking{}, ctx.Err()
		}
		e.logger.Warn("baseline prediction failed, assuming even draft", zap.Error(err))
		r.Warnings = multierr.Append(r.Warnings, fmt.Errorf("baseline: %w", err))
		base = oracle.Even
	}
	r.Baseline = base.For(sides.Suggesting)

	avail := engine.Available(s, pool)
	candidates := make([]Candidate, len(avail))
	failures := make([]error, len(avail))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, champ := range avail {
		g.Go(func() error {
			c := Candidate{Champion: champ, Baseline: r.Baseline, Hypothetical: r.Baseline}
			h, ok := engine.WithHypothetical(s, champ)
			if !ok {
				return engine.ErrOutOfPhase
			}
			pred, err := e.predict(gctx, h)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.Degraded = true
				failures[i] = fmt.Errorf("candidate %s: %w", champ, err)
			} else {
				c.Hypothetical = pred.For(sides.Suggesting)
				c.Delta = c.Hypothetical - c.Baseline
			}
			candidates[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Ranking{}, err
	}

	for _, err := range failures {
		if err != nil {
			e.logger.Warn("candidate prediction failed, delta zeroed", zap.Error(err))
			r.Warnings = multierr.Append(r.Warnings, err)
		}
	}

	Sort(candidates, p)
	r.Candidates = candidates
	e.metrics.ObserveRanking(time.Since(start))
	return r, nil
}

func (e *Engine) predict(ctx context.Context, s engine.State) (oracle.Prediction, error) {
	p, err := e.oracle.Predict(ctx, oracle.FromState(s))
	if err == nil {
		err = p.Validate()
	}
	e.metrics.OracleCall(err != nil)
	return p, err
}

// Sort orders candidates by delta, descending for PerspectiveSelf and
// ascending for PerspectiveOpponent, breaking ties by champion name.
func Sort(candidates []Candidate, p Perspective) {
	slices.SortFunc(candidates, func(a, b Candidate) int {
		var c int
		if p == PerspectiveOpponent {
			c = cmp.Compare(a.Delta, b.Delta)
		} else {
			c = cmp.Compare(b.Delta, a.Delta)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Champion, b.Champion)
	})
}
