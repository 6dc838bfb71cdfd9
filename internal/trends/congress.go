package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const congressBaseVolume = 1000

// CongressAdapter reads recent bill activity from a congress.gov-style JSON
// API and turns each active bill into an authoritative trend signal.
type CongressAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCongressAdapter creates the authoritative legislative adapter. The API
// key is read from the named environment variable.
func NewCongressAdapter(baseURL, apiKeyEnv string) *CongressAdapter {
	return &CongressAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  os.Getenv(apiKeyEnv),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements Adapter.
func (c *CongressAdapter) Name() string { return SourceCongress }

// IsConfigured reports whether an API key is available.
func (c *CongressAdapter) IsConfigured() bool { return c.apiKey != "" }

// Fetch implements Adapter.
func (c *CongressAdapter) Fetch(ctx context.Context) ([]Signal, error) {
	if !c.IsConfigured() {
		return nil, nil
	}

	url := fmt.Sprintf("%s/bill?format=json&limit=20&api_key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching bills: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bill API returned %d", resp.StatusCode)
	}

	var result struct {
		Bills []struct {
			Title  string `json:"title"`
			Type   string `json:"type"`
			Number string `json:"number"`
			Latest struct {
				Text string `json:"text"`
			} `json:"latestAction"`
		} `json:"bills"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding bill response: %w", err)
	}

	var signals []Signal
	for i, bill := range result.Bills {
		if bill.Title == "" {
			continue
		}
		signals = append(signals, Signal{
			Topic:  bill.Title,
			Source: SourceCongress,
			Volume: congressBaseVolume - i*25,
			Metadata: map[string]string{
				"bill_ref":      strings.ToUpper(bill.Type) + " " + bill.Number,
				"latest_action": bill.Latest.Text,
			},
		})
	}
	return signals, nil
}
