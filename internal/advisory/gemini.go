package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Retries           uint
	RetryDelay        time.Duration
}

// Gemini is the advisory Service backed by the Gemini API.
type Gemini struct {
	models *genai.Models
	cfg    GeminiConfig
	logger *zap.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	logger.Info("using gemini model", zap.String("model", cfg.Model))
	return &Gemini{models: client.Models, cfg: cfg, logger: logger.Named("gemini")}, nil
}

func (g *Gemini) Advise(ctx context.Context, req Request) ([]byte, error) {
	conf := GenerateConfig(req.Final, g.cfg.SystemInstruction)
	text, err := retry.DoWithData(
		func() (string, error) {
			resp, err := g.models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.Prompt()), conf)
			if err != nil {
				return "", err
			}
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", errors.New("empty response")
			}
			return text, nil
		},
		retry.Context(ctx),
		retry.Attempts(g.cfg.Retries+1),
		retry.Delay(g.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("gemini request failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// GenerateConfig returns the sampling settings and JSON response schema for
// a request.
func GenerateConfig(final bool, systemInstruction string) *genai.GenerateContentConfig {
	conf := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.4),
		TopP:             genai.Ptr[float32](0.95),
		TopK:             genai.Ptr[float32](40),
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
		ResponseSchema:   recommendationSchema(),
	}
	if final {
		conf.ResponseSchema = winRateSchema()
	}
	if systemInstruction != "" {
		conf.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	return conf
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
func num() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }
func strs() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func recommendationSchema() *genai.Schema {
	pick := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"champion_name":      str(),
			"reasoning":          str(),
			"confidence_score":   num(),
			"possible_synergies": strs(),
			"possible_counters":  strs(),
		},
		Required: []string{"champion_name", "reasoning", "confidence_score", "possible_synergies", "possible_counters"},
	}
	predict := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"predicted_next_champ": str(),
			"reasoning":            str(),
			"confidence_score":     num(),
		},
		Required: []string{"predicted_next_champ", "reasoning", "confidence_score"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"recommendations":   {Type: genai.TypeArray, Items: pick},
			"predictions":       {Type: genai.TypeArray, Items: predict},
			"strategic_summary": str(),
		},
		Required: []string{"recommendations", "predictions", "strategic_summary"},
	}
}

func winRateSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"blue_win_rate":     num(),
			"red_win_rate":      num(),
			"strategic_summary": str(),
		},
		Required: []string{"blue_win_rate", "red_win_rate", "strategic_summary"},
	}
}
