package advisory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrAdvisoryFailure = errors.New("advisory service failure")
	ErrInvalidPayload  = errors.New("invalid advisory payload")
)

// Kind tags the variant held by a Response.
type Kind string

const (
	KindRecommendation Kind = "recommendation"
	KindWinRate        Kind = "win_rate"
)

type Suggestion struct {
	Champion   string   `json:"champion"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
	Synergies  []string `json:"synergies"`
	Counters   []string `json:"counters"`
}

type Prediction struct {
	Champion   string  `json:"champion"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type Recommendation struct {
	Suggestions []Suggestion `json:"suggestions"`
	Predictions []Prediction `json:"predictions"`
	Summary     string       `json:"summary"`
}

// WinRate is the terminal-turn estimate, in percent.
type WinRate struct {
	Blue    float64 `json:"blue"`
	Red     float64 `json:"red"`
	Summary string  `json:"summary"`
}

// Response holds exactly one of Recommendation or WinRate, selected by Kind.
type Response struct {
	Kind           Kind            `json:"kind"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	WinRate        *WinRate        `json:"win_rate,omitempty"`
}

// wire forms as the service returns them; pointers mark required keys.

type wireSuggestion struct {
	ChampionName      *string  `json:"champion_name"`
	Reasoning         string   `json:"reasoning"`
	ConfidenceScore   *float64 `json:"confidence_score"`
	PossibleSynergies []string `json:"possible_synergies"`
	PossibleCounters  []string `json:"possible_counters"`
}

type wirePrediction struct {
	PredictedNextChamp *string  `json:"predicted_next_champ"`
	Reasoning          string   `json:"reasoning"`
	ConfidenceScore    *float64 `json:"confidence_score"`
}

type wireRecommendation struct {
	Recommendations  *[]wireSuggestion `json:"recommendations"`
	Predictions      *[]wirePrediction `json:"predictions"`
	StrategicSummary *string           `json:"strategic_summary"`
}

type wireWinRate struct {
	BlueWinRate      *float64 `json:"blue_win_rate"`
	RedWinRate       *float64 `json:"red_win_rate"`
	StrategicSummary *string  `json:"strategic_summary"`
}

// WinRateTolerance is how far the two percentages may sum away from 100.
const WinRateTolerance = 1.0

// Parse validates a raw service payload. final selects the win-rate variant.
// Nothing is coerced: a missing key, an out-of-range confidence or an empty
// champion name fails with ErrInvalidPayload.
func Parse(raw []byte, final bool) (Response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Response{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if final {
		wr, err := parseWinRate(raw)
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: KindWinRate, WinRate: &wr}, nil
	}
	rec, err := parseRecommendation(raw)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindRecommendation, Recommendation: &rec}, nil
}

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

func parseRecommendation(raw []byte) (Recommendation, error) {
	var w wireRecommendation
	if err := decode(raw, &w); err != nil {
		return Recommendation{}, err
	}
	if w.Recommendations == nil || w.Predictions == nil || w.StrategicSummary == nil {
		return Recommendation{}, fmt.Errorf("%w: recommendations, predictions and strategic_summary are required", ErrInvalidPayload)
	}

	out := Recommendation{
		Suggestions: make([]Suggestion, 0, len(*w.Recommendations)),
		Predictions: make([]Prediction, 0, len(*w.Predictions)),
		Summary:     strings.TrimSpace(*w.StrategicSummary),
	}
	for i, s := range *w.Recommendations {
		champ, conf, err := item(s.ChampionName, s.ConfidenceScore)
		if err != nil {
			return Recommendation{}, fmt.Errorf("recommendation %d: %w", i, err)
		}
		out.Suggestions = append(out.Suggestions, Suggestion{
			Champion:   champ,
			Reasoning:  strings.TrimSpace(s.Reasoning),
			Confidence: conf,
			Synergies:  nonNil(s.PossibleSynergies),
			Counters:   nonNil(s.PossibleCounters),
		})
	}
	for i, p := range *w.Predictions {
		champ, conf, err := item(p.PredictedNextChamp, p.ConfidenceScore)
		if err != nil {
			return Recommendation{}, fmt.Errorf("prediction %d: %w", i, err)
		}
		out.Predictions = append(out.Predictions, Prediction{
			Champion:   champ,
			Confidence: conf,
			Reasoning:  strings.TrimSpace(p.Reasoning),
		})
	}
	return out, nil
}

func item(champion *string, confidence *float64) (string, float64, error) {
	if champion == nil || strings.TrimSpace(*champion) == "" {
		return "", 0, fmt.Errorf("%w: missing champion", ErrInvalidPayload)
	}
	if confidence == nil {
		return "", 0, fmt.Errorf("%w: missing confidence_score", ErrInvalidPayload)
	}
	c := *confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		return "", 0, fmt.Errorf("%w: confidence_score %v outside [0,1]", ErrInvalidPayload, c)
	}
	return strings.TrimSpace(*champion), c, nil
}

func parseWinRate(raw []byte) (WinRate, error) {
	var w wireWinRate
	if err := decode(raw, &w); err != nil {
		return WinRate{}, err
	}
	if w.BlueWinRate == nil || w.RedWinRate == nil || w.StrategicSummary == nil {
		return WinRate{}, fmt.Errorf("%w: blue_win_rate, red_win_rate and strategic_summary are required", ErrInvalidPayload)
	}
	blue, red := *w.BlueWinRate, *w.RedWinRate
	for _, v := range []float64{blue, red} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return WinRate{}, fmt.Errorf("%w: win rate %v outside [0,100]", ErrInvalidPayload, v)
		}
	}
	if math.Abs(blue+red-100) > WinRateTolerance {
		return WinRate{}, fmt.Errorf("%w: win rates sum to %v", ErrInvalidPayload, blue+red)
	}
	return WinRate{Blue: blue, Red: red, Summary: strings.TrimSpace(*w.StrategicSummary)}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
