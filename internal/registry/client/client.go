// Package client fetches raw profile documents from the professional registry.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxDocumentBytes bounds how much of a registry page is read.
const maxDocumentBytes = 1 << 20

// ErrNotFound is returned when the registry has no profile for the number.
var ErrNotFound = errors.New("registry profile not found")

// HTTPClient issues GET {base}/{license} against the registry service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the raw profile document. A 404 maps to ErrNotFound; every
// other non-2xx status and transport failure is returned as an error.
func (c *HTTPClient) Fetch(ctx context.Context, license string) (string, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(license)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read registry response: %w", err)
	}
	return string(body), nil
}
