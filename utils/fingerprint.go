package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ProClient calls the FingerprintJS Pro server API to enrich a visitor
// identity. The lookup is strictly best-effort: it runs off the ingestion
// path, under its own timeout, and its failures are logged by the caller
// and otherwise discarded.
type ProClient struct {
	apiKey string
	region string
	client *http.Client
}

// NewProClientFromEnv returns nil when no API key is configured; a nil
// client disables enrichment entirely.
func NewProClientFromEnv() *ProClient {
	key := os.Getenv("FINGERPRINT_PRO_API_KEY")
	if key == "" {
		return nil
	}
	region := os.Getenv("FINGERPRINT_PRO_REGION")
	if region == "" {
		region = "us"
	}
	return &ProClient{
		apiKey: key,
		region: region,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type proVisitorResponse struct {
	Visits []struct {
		Confidence struct {
			Score float64 `json:"score"`
		} `json:"confidence"`
	} `json:"visits"`
}

// Enrich fetches the Pro API's view of a visitor and returns its confidence
// score, or nil when the response carries no visits.
func (c *ProClient) Enrich(ctx context.Context, visitorID string) (*float64, error) {
	url := fmt.Sprintf("https://api.fp.%s.fingerprint.com/visitor/%s", c.region, visitorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build enrichment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment request returned status %d", res.StatusCode)
	}

	var body proVisitorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment response: %w", err)
	}
	if len(body.Visits) == 0 {
		return nil, nil
	}
	score := body.Visits[0].Confidence.Score
	return &score, nil
}
