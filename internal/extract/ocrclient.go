package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
)

type ocrRequest struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

// HTTPOCRClient calls an external, black-box OCR service over HTTP. It
// implements OCR the same way embedclient.Client implements text embedding:
// a bounded retry loop wrapped around a circuit breaker so a degraded OCR
// dependency fails fast instead of backing up every document pipeline worker.
type HTTPOCRClient struct {
	httpClient *http.Client
	cfg        config.OCRConfig
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPOCRClient constructs an HTTPOCRClient from configuration.
func NewHTTPOCRClient(cfg config.OCRConfig) *HTTPOCRClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &HTTPOCRClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ocrclient",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Recognize sends imageBytes to the configured OCR endpoint and returns the
// recognized plain text. Transient failures (429, 5xx, network errors) are
// retried with exponential backoff, for at most 3 attempts in all;
// permanent failures (other 4xx) are returned immediately.
func (c *HTTPOCRClient) Recognize(ctx context.Context, imageBytes []byte, mimeType string) (string, error) {
	if len(imageBytes) == 0 {
		return "", fmt.Errorf("ocrclient: empty image")
	}

	op := func() (ocrResponse, error) {
		v, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, imageBytes, mimeType)
		})
		if err != nil {
			return ocrResponse{}, err
		}
		return v.(ocrResponse), nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return "", fmt.Errorf("ocrclient: recognize: %w", err)
	}
	return result.Text, nil
}

func (c *HTTPOCRClient) doRequest(ctx context.Context, imageBytes []byte, mimeType string) (ocrResponse, error) {
	body, err := json.Marshal(ocrRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(imageBytes),
		MimeType:    mimeType,
	})
	if err != nil {
		return ocrResponse{}, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ocrResponse{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ocrResponse{}, err // network error: transient, retry
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ocrResponse{}, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out ocrResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return ocrResponse{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return out, nil
	case resp.StatusCode == 429 || resp.StatusCode >= 500:
		return ocrResponse{}, fmt.Errorf("ocr service transient error %d: %s", resp.StatusCode, string(respBody))
	default:
		return ocrResponse{}, backoff.Permanent(fmt.Errorf("ocr service error %d: %s", resp.StatusCode, string(respBody)))
	}
}
