package navigator

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Listing pages are small; anything beyond this is not a page we want.
const maxBodyBytes = 4 << 20

// plainFetch issues an unadorned HTTP request. Some sources block
// rendering-engine fingerprints yet serve plain requests without fuss;
// for those, the absence of camouflage is itself the camouflage.
func (n *Navigator) plainFetch(ctx context.Context, rawURL string, profile Profile) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", profile.UserAgent)
	if profile.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", profile.AcceptLanguage)
	}
	for key, value := range profile.Headers {
		req.Header.Set(key, value)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// The body is read even on error statuses: soft-block classification
	// needs the challenge page content.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		HTML:       string(body),
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
	}, nil
}
