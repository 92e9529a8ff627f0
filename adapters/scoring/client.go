// Package scoring talks to an external scoring engine over HTTP. The
// engine loads a document, evaluates it against one input datum, and
// returns the result; the validation bridge compares that result with the
// compiler's own expectation.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopfa/domain/pfa"
	apperrors "gopfa/internal/errors"
)

// DefaultTimeout bounds one engine round trip when the caller configures
// nothing else.
const DefaultTimeout = 10 * time.Second

// Client implements ports.ScoringEngine against an HTTP engine exposing
// POST {base}/score.
type Client struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient builds a scoring client for one engine base URL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, apperrors.ConfigInvalid("scoring engine URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: timeout}, nil
}

type scoreRequest struct {
	Document *pfa.Document `json:"document"`
	Input    any           `json:"input"`
}

type scoreResponse struct {
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Evaluate sends the document and one input datum to the engine and
// returns the engine's result.
func (c *Client) Evaluate(ctx context.Context, doc *pfa.Document, input any) (any, error) {
	raw, err := json.Marshal(scoreRequest{Document: doc, Input: input})
	if err != nil {
		return nil, apperrors.ScoringEngineError("marshal request", err)
	}

	url := c.BaseURL + "/score"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.ScoringEngineError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.ScoringEngineError("engine request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ScoringEngineError("read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.ScoringEngineError(
			fmt.Sprintf("engine http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded scoreResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apperrors.ScoringEngineError("unmarshal response", err)
	}
	if decoded.Error != "" {
		return nil, apperrors.ScoringEngineError(decoded.Error, nil)
	}
	return decoded.Result, nil
}
