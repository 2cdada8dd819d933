// Package verify implements the remote email verification client.
package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/bulk-verifier/internal/validation"
)

const (
	defaultBaseURL = "https://api.quickemailverification.com/v1/verify"
	defaultTimeout = 20 * time.Second
)

// Config holds the client parameters.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the verification endpoint for one address at a time. Verify is
// total: any transport, timeout, or decode failure is reported as an "error"
// outcome instead of propagating to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// verifyResponse mirrors the fields of the remote payload we consume.
type verifyResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// Verify checks one address and returns its outcome.
func (c *Client) Verify(ctx context.Context, email string) validation.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return errorOutcome(err)
	}
	q := url.Values{}
	q.Set("email", email)
	q.Set("apikey", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("verification request failed", zap.Error(err))
		return errorOutcome(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Debug("verification decode failed", zap.Error(err))
		return errorOutcome(err)
	}

	out := validation.Outcome{Status: payload.Result, Reason: payload.Reason}
	if out.Status == "" {
		out.Status = validation.OutcomeUnknown
	}
	return out
}

func errorOutcome(err error) validation.Outcome {
	return validation.Outcome{Status: validation.OutcomeError, Reason: err.Error()}
}
