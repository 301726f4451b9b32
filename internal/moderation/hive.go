package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// HiveConfig configures the contraband classifier.
type HiveConfig struct {
	URL    string
	APIKey string
	RPS    float64
}

// HiveClient calls a Hive-compatible visual moderation endpoint.
type HiveClient struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     HiveConfig
}

type hiveRequest struct {
	Input []hiveInput `json:"input"`
}

type hiveInput struct {
	MediaURL string `json:"media_url"`
}

type hiveResponse struct {
	Output []struct {
		Classes []struct {
			Class string  `json:"class"`
			Value float64 `json:"value"`
		} `json:"classes"`
	} `json:"output"`
}

// NewHiveClient creates the contraband classifier.
func NewHiveClient(cfg HiveConfig, client *http.Client) *HiveClient {
	return &HiveClient{http: client, limiter: newLimiter(cfg.RPS), cfg: cfg}
}

// Classify returns the first output's class scores keyed by lower-cased label.
func (c *HiveClient) Classify(ctx context.Context, imageURL string) (map[string]float64, error) {
	payload, err := json.Marshal(hiveRequest{Input: []hiveInput{{MediaURL: imageURL}}})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	var resp hiveResponse
	if err := doJSON(c.http, c.limiter, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Output) == 0 || resp.Output[0].Classes == nil {
		return nil, errors.New("response has no output classes")
	}

	signals := make(map[string]float64, len(resp.Output[0].Classes))
	for _, cl := range resp.Output[0].Classes {
		label := strings.ToLower(strings.TrimSpace(cl.Class))
		if cur, ok := signals[label]; !ok || cl.Value > cur {
			signals[label] = cl.Value
		}
	}
	return signals, nil
}
