package opportunity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxAttachmentBytes caps a single attachment download; SAM.gov attachments
// are document-sized, not media files, so anything past this is treated as
// a fetch failure rather than buffered into memory.
const maxAttachmentBytes = 50 * 1024 * 1024

// HTTPAttachmentFetcher retrieves attachment blobs over HTTPS, retrying
// transient failures the same way csvingest.Downloader does for the bulk
// CSV feed.
type HTTPAttachmentFetcher struct {
	httpClient *http.Client
	maxRetries int
}

// NewHTTPAttachmentFetcher builds an HTTPAttachmentFetcher with the given
// per-request timeout and retry budget.
func NewHTTPAttachmentFetcher(timeout time.Duration, maxRetries int) *HTTPAttachmentFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &HTTPAttachmentFetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// Fetch downloads a's URL, retrying 429/5xx responses and network errors
// with exponential backoff, for at most maxRetries attempts in all.
func (f *HTTPAttachmentFetcher) Fetch(ctx context.Context, a Attachment) ([]byte, error) {
	if a.URL == "" {
		return nil, fmt.Errorf("opportunity: attachment %s has no URL", a.AttachmentID)
	}

	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err // network error: transient, retry
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
		if err != nil {
			return nil, err
		}
		if len(body) > maxAttachmentBytes {
			return nil, backoff.Permanent(fmt.Errorf("attachment %s exceeds %d bytes", a.AttachmentID, maxAttachmentBytes))
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == 429 || resp.StatusCode >= 500:
			return nil, fmt.Errorf("attachment fetch transient error %d for %s", resp.StatusCode, a.AttachmentID)
		default:
			return nil, backoff.Permanent(fmt.Errorf("attachment fetch error %d for %s", resp.StatusCode, a.AttachmentID))
		}
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(f.maxRetries)),
	)
	if err != nil {
		return nil, fmt.Errorf("opportunity: fetch attachment %s: %w", a.AttachmentID, err)
	}
	return body, nil
}
