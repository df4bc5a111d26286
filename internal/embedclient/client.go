// Package embedclient calls the external wide-vector embedding model: a
// black-box service that maps text to a 1024-dimension unit vector.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
)

// Role distinguishes how the embedding will be used, per the wire contract;
// some embedding models score differently depending on which side of a
// query/document pair the text plays.
type Role string

const (
	RoleSearchDocument Role = "search_document"
	RoleSearchQuery    Role = "search_query"
)

// TokenCeilingWords is the proxy token ceiling: text longer than this many
// words is truncated before being sent to the model.
const TokenCeilingWords = 8000

// ErrEmptyText is returned when the input has no embeddable content.
var ErrEmptyText = errors.New("embedclient: empty text")

type embedRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions"`
	Normalize  bool   `json:"normalize"`
	Role       string `json:"role,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Client embeds text via the configured HTTP endpoint, with retry on
// transient failure and a circuit breaker to stop hammering a down
// dependency.
type Client struct {
	httpClient *http.Client
	cfg        config.EmbeddingConfig
	breaker    *gobreaker.CircuitBreaker
}

// New constructs a Client from configuration.
func New(cfg config.EmbeddingConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "embedclient",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Embed maps text to a 1024-d unit vector. Text exceeding TokenCeilingWords
// is truncated by word count. Transient failures (429, 5xx, network errors)
// are retried with exponential backoff, for at most 3 attempts in all;
// permanent failures (other 4xx) are returned immediately.
func (c *Client) Embed(ctx context.Context, text string, role Role) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	text = truncateWords(text, TokenCeilingWords)

	op := func() (embedResponse, error) {
		v, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, text, role)
		})
		if err != nil {
			return embedResponse{}, err
		}
		return v.(embedResponse), nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("embedclient: embed: %w", err)
	}
	if len(result.Embedding) != c.dimensions() {
		return nil, fmt.Errorf("embedclient: unexpected vector length: got %d, want %d", len(result.Embedding), c.dimensions())
	}
	return result.Embedding, nil
}

func (c *Client) dimensions() int {
	if c.cfg.Dimensions > 0 {
		return c.cfg.Dimensions
	}
	return 1024
}

func (c *Client) doRequest(ctx context.Context, text string, role Role) (embedResponse, error) {
	body, err := json.Marshal(embedRequest{
		InputText:  text,
		Dimensions: c.dimensions(),
		Normalize:  true,
		Role:       string(role),
	})
	if err != nil {
		return embedResponse{}, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return embedResponse{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return embedResponse{}, err // network error: transient, retry
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return embedResponse{}, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out embedResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return embedResponse{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return out, nil
	case resp.StatusCode == 429 || resp.StatusCode >= 500:
		return embedResponse{}, fmt.Errorf("embedding service transient error %d: %s", resp.StatusCode, string(respBody))
	default:
		return embedResponse{}, backoff.Permanent(fmt.Errorf("embedding service error %d: %s", resp.StatusCode, string(respBody)))
	}
}

// CheckReachability verifies the embedding endpoint is reachable.
func (c *Client) CheckReachability(ctx context.Context) error {
	_, err := c.Embed(ctx, "ping", RoleSearchQuery)
	if err != nil {
		return fmt.Errorf("embedding endpoint reachability check failed: %w", err)
	}
	return nil
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
