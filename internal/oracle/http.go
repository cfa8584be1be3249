package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

type predictRequest struct {
	Columns []string          `json:"columns"`
	Row     map[string]string `json:"row"`
}

type predictResponse struct {
	// Probabilities is the classifier's predict_proba row: [p_opponent, p_team].
	Probabilities []float64 `json:"probabilities"`
}

// HTTPOracle calls a model-serving endpoint that wraps the trained classifier.
type HTTPOracle struct {
	url     string
	client  *http.Client
	retries uint
	delay   time.Duration
	logger  *zap.Logger
}

type HTTPOption func(*HTTPOracle)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(o *HTTPOracle) { o.client = c }
}

func WithRetries(n uint) HTTPOption {
	return func(o *HTTPOracle) { o.retries = n }
}

func WithRetryDelay(d time.Duration) HTTPOption {
	return func(o *HTTPOracle) { o.delay = d }
}

func WithLogger(logger *zap.Logger) HTTPOption {
	return func(o *HTTPOracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewHTTPOracle(url string, timeout time.Duration, opts ...HTTPOption) *HTTPOracle {
	o := &HTTPOracle{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retries: 2,
		delay:   100 * time.Millisecond,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("oracle")
	return o
}

// Predict posts the feature row and validates the returned pair. Transport
// failures and 5xx responses are retried; anything else fails immediately.
func (o *HTTPOracle) Predict(ctx context.Context, f Features) (Prediction, error) {
	body, err := json.Marshal(predictRequest{Columns: Columns, Row: f.Row()})
	if err != nil {
		return Prediction{}, fmt.Errorf("encode features: %w", err)
	}

	p, err := retry.DoWithData(
		func() (Prediction, error) { return o.post(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(o.retries+1),
		retry.Delay(o.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Debug("retrying prediction", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		if errors.Is(err, ErrInvalidPrediction) {
			return Prediction{}, err
		}
		return Prediction{}, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return p, nil
}

func (o *HTTPOracle) post(ctx context.Context, body []byte) (Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Prediction{}, fmt.Errorf("oracle status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Prediction{}, retry.Unrecoverable(fmt.Errorf("oracle status %d", resp.StatusCode))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, retry.Unrecoverable(fmt.Errorf("%w: %w", ErrInvalidPrediction, err))
	}
	if len(out.Probabilities) != 2 {
		return Prediction{}, retry.Unrecoverable(fmt.Errorf("%w: want 2 probabilities, got %d", ErrInvalidPrediction, len(out.Probabilities)))
	}
	p := Prediction{Opponent: out.Probabilities[0], Team: out.Probabilities[1]}
	if err := p.Validate(); err != nil {
		return Prediction{}, retry.Unrecoverable(err)
	}
	return p, nil
}
