// Package advisory builds the request for the generative draft analyst and
// merges its validated answer with the numeric candidate ranking.
package advisory

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/metrics"
	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

// Service answers one advisory request with a raw JSON payload. It is a
// single blocking call with no session state.
type Service interface {
	Advise(ctx context.Context, req Request) ([]byte, error)
}

type ServiceFunc func(ctx context.Context, req Request) ([]byte, error)

func (fn ServiceFunc) Advise(ctx context.Context, req Request) ([]byte, error) {
	return fn(ctx, req)
}

// RankedSuggestion is a suggestion annotated with its candidate delta when
// the champion is legal for the current step.
type RankedSuggestion struct {
	Suggestion
	Delta  *float64 `json:"delta,omitempty"`
	Usable bool     `json:"usable"`
}

type RankedPrediction struct {
	Prediction
	Usable bool `json:"usable"`
}

// Advice is the merged result. Ranking is always carried through; when the
// service fails the response fields are empty and Err says why.
type Advice struct {
	Stage       Stage              `json:"stage"`
	Ranking     *delta.Ranking     `json:"-"`
	Kind        Kind               `json:"kind,omitempty"`
	Suggestions []RankedSuggestion `json:"suggestions,omitempty"`
	Predictions []RankedPrediction `json:"predictions,omitempty"`
	Summary     string             `json:"summary,omitempty"`
	WinRate     *WinRate           `json:"win_rate,omitempty"`
	Degraded    bool               `json:"degraded"`
	Err         error              `json:"-"`
}

type Coordinator struct {
	service Service
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewCoordinator(service Service, logger *zap.Logger, m *metrics.Metrics) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{service: service, logger: logger.Named("advisory"), metrics: m}
}

// Advise sends the full draft context and merges the answer with ranking,
// which may be nil at the terminal turn. It never fails outright: service or
// payload errors yield a degraded Advice wrapping ErrAdvisoryFailure.
func (c *Coordinator) Advise(ctx context.Context, s engine.State, data string, ranking *delta.Ranking) Advice {
	req := BuildRequest(s, data)
	adv := Advice{Stage: StageOf(s.Cursor), Ranking: ranking}

	if c.service == nil {
		return c.degrade(adv, fmt.Errorf("%w: no advisory service configured", ErrAdvisoryFailure))
	}
	raw, err := c.service.Advise(ctx, req)
	if err != nil {
		return c.degrade(adv, fmt.Errorf("%w: %w", ErrAdvisoryFailure, err))
	}
	resp, err := Parse(raw, req.Final)
	if err != nil {
		return c.degrade(adv, fmt.Errorf("%w: %w", ErrAdvisoryFailure, err))
	}
	c.metrics.AdvisoryCall(false)

	adv.Kind = resp.Kind
	switch resp.Kind {
	case KindWinRate:
		adv.WinRate = resp.WinRate
		adv.Summary = resp.WinRate.Summary
	case KindRecommendation:
		adv.Summary = resp.Recommendation.Summary
		adv.Suggestions, adv.Predictions = merge(s, *resp.Recommendation, ranking)
	}
	return adv
}

func (c *Coordinator) degrade(adv Advice, err error) Advice {
	c.metrics.AdvisoryCall(true)
	c.logger.Warn("advisory degraded to ranking only", zap.Error(err))
	adv.Degraded = true
	adv.Err = err
	return adv
}

func merge(s engine.State, rec Recommendation, ranking *delta.Ranking) ([]RankedSuggestion, []RankedPrediction) {
	var byKey map[string]delta.Candidate
	if ranking != nil {
		byKey = ranking.Lookup()
	}
	suggestions := lo.Map(rec.Suggestions, func(sg Suggestion, _ int) RankedSuggestion {
		out := RankedSuggestion{Suggestion: sg, Usable: !engine.IsUsed(s, sg.Champion)}
		if cand, ok := byKey[names.Key(sg.Champion)]; ok {
			d := cand.Delta
			out.Delta = &d
		}
		return out
	})
	predictions := lo.Map(rec.Predictions, func(p Prediction, _ int) RankedPrediction {
		return RankedPrediction{Prediction: p, Usable: !engine.IsUsed(s, p.Champion)}
	})
	return suggestions, predictions
}
