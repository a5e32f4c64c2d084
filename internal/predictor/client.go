package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/retry"
)

// ClientConfig holds the HTTP client's tuning.
type ClientConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
}

// Client calls a remote classifier that accepts {"texts": [...]} and answers
// {"predictions": [{"label": "NEG", "confidence": 82.1}, ...]}.
type Client struct {
	url        string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a client for the classifier at url.
func NewClient(url string, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelayBase,
			Linear:      true,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				logger.Warn("Predictor attempt %d failed, retrying in %v: %v", attempt, wait, err)
			},
		},
	}
}

type predictRequest struct {
	Texts []string `json:"texts"`
}

type predictResponse struct {
	Predictions []models.SentenceScore `json:"predictions"`
}

// statusError is a non-2xx answer from the classifier.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("predictor returned %d: %s", e.code, e.body)
}

// transient treats network failures, 429 and 5xx as retryable.
func transient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// Predict sends one batch to the classifier.
func (c *Client) Predict(ctx context.Context, texts []string) ([]models.SentenceScore, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: predictor called with an empty batch", models.ErrContractViolation)
	}
	payload, err := json.Marshal(predictRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	scores, err := retry.Do(ctx, c.policy, transient, func(ctx context.Context) ([]models.SentenceScore, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return nil, err
	}
	if len(scores) != len(texts) {
		return nil, fmt.Errorf("%w: predictor returned %d scores for %d texts",
			models.ErrExternalService, len(scores), len(texts))
	}
	return scores, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]models.SentenceScore, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(body))}
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode predictions: %w", err)
	}
	return out.Predictions, nil
}
