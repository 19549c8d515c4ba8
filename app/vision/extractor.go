// Package vision holds the contract with the external headline
// extraction capability. The engine assumes nothing beyond it: an image
// goes in, a bounded, top-to-bottom ordered list of plain-text headlines
// comes out, and an empty list signals failure.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type HeadlineExtractor interface {
	ExtractHeadlines(ctx context.Context, image []byte, maxHeadlines int) ([]string, error)
}

// Client calls an HTTP extraction service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ HeadlineExtractor = (*Client)(nil)

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type extractRequest struct {
	Image        string `json:"image"`
	MaxHeadlines int    `json:"max_headlines"`
}

type extractResponse struct {
	Headlines []string `json:"headlines"`
}

func (c *Client) ExtractHeadlines(ctx context.Context, image []byte, maxHeadlines int) ([]string, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}

	payload, err := json.Marshal(extractRequest{
		Image:        base64.StdEncoding.EncodeToString(image),
		MaxHeadlines: maxHeadlines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	headlines := make([]string, 0, len(parsed.Headlines))
	for _, h := range parsed.Headlines {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		headlines = append(headlines, h)
		if maxHeadlines > 0 && len(headlines) >= maxHeadlines {
			break
		}
	}

	return headlines, nil
}

// Nop satisfies the contract when no extraction service is configured:
// vision sources then simply report no matches.
type Nop struct{}

var _ HeadlineExtractor = Nop{}

func (Nop) ExtractHeadlines(context.Context, []byte, int) ([]string, error) {
	return nil, nil
}
