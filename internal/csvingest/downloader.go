// Package csvingest implements the CSV Ingestor: downloading the daily
// opportunities CSV, decoding and parsing it tolerantly, and fanning rows
// out to the processor as queue messages.
package csvingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
)

// ErrTooLarge is returned when the server-reported or actually-read body
// size exceeds the configured maximum.
var ErrTooLarge = fmt.Errorf("csvingest: response exceeds configured max size")

// Downloader fetches the daily CSV over HTTPS with a capped retry and a
// hard size ceiling, so a corrupt or unexpectedly huge feed never OOMs the
// ingestor.
type Downloader struct {
	httpClient *http.Client
	cfg        config.CSVIngestConfig
}

// NewDownloader constructs a Downloader from configuration.
func NewDownloader(cfg config.CSVIngestConfig) *Downloader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// Download retrieves the configured CSV URL, retrying transient failures
// with exponential backoff up to cfg.MaxRetries attempts. Content-Length
// (when present) is validated against cfg.MaxBytes before the body is
// buffered; the body is additionally read through a capped reader so a
// server that lies about Content-Length still can't exhaust memory.
func (d *Downloader) Download(ctx context.Context) ([]byte, error) {
	maxBytes := d.cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 30
	}
	maxRetries := d.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	op := func() ([]byte, error) {
		body, err := d.fetchOnce(ctx, maxBytes)
		if err != nil {
			if err == ErrTooLarge {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return body, nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxRetries)),
	)
	if err != nil {
		return nil, fmt.Errorf("csvingest: download %s: %w", d.cfg.URL, err)
	}
	return result, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err // network error: transient, retry
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("transient status %d", resp.StatusCode)
		}
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxBytes {
			return nil, ErrTooLarge
		}
	}

	limited := io.LimitReader(resp.Body, maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}
