package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
)

// ErrModelUnavailable is returned when the external risk model could
// not produce a score. Callers treat it as fatal for the request.
var ErrModelUnavailable = errors.New("risk model unavailable")

// errThrottled marks a 429 response; the only error worth retrying.
var errThrottled = errors.New("risk model throttled")

// Client calls the external risk-model service. The device pipeline
// depends on it; a failed call fails the whole device submission.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	attempts   uint
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   3,
	}
}

// ModelRequest is the payload sent to the model service.
type ModelRequest struct {
	Phone      string                 `json:"phone"`
	Email      string                 `json:"email"`
	DeviceData map[string]interface{} `json:"device_data"`
}

// ModelResponse is the model's verdict.
type ModelResponse struct {
	Score     float64 `json:"score"`
	RiskLevel string  `json:"risk_level"`
	SessionID string  `json:"session_id"`
}

// Score asks the model service for a risk verdict. Throttled calls are
// retried a bounded number of times; every other failure surfaces
// immediately as ErrModelUnavailable.
func (c *Client) Score(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode model request: %w", err)
	}

	var result *ModelResponse
	err = retry.Do(
		func() error {
			result, err = c.post(ctx, body)
			return err
		},
		retry.Attempts(c.attempts),
		retry.Delay(500*time.Millisecond),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errThrottled) }),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*ModelResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errThrottled
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("model service returned %d: %s", resp.StatusCode, raw)
	}

	var out ModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return &out, nil
}
