// Package textcorrect provides the outbound client for the third-party
// text-correction API. The backend only proxies to it; no correction logic
// lives here.
package textcorrect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Corrector produces a corrected version of raw transcription text.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

// HTTPCorrector forwards text to an upstream correction endpoint.
type HTTPCorrector struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPCorrector creates a corrector for the given upstream endpoint.
func NewHTTPCorrector(endpoint, apiKey string) *HTTPCorrector {
	return &HTTPCorrector{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type correctRequest struct {
	Text string `json:"text"`
}

type correctResponse struct {
	Corrected string `json:"corrected"`
}

// Correct sends the text upstream and returns the corrected version.
func (c *HTTPCorrector) Correct(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(correctRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("correction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("correction upstream returned status %d", resp.StatusCode)
	}

	var out correctResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode correction response: %w", err)
	}

	return out.Corrected, nil
}
