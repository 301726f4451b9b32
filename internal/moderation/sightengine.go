package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultSightengineModels are the general classifier models requested per image.
const DefaultSightengineModels = "nudity,wad,offensive,gore,scam,violence"

// SightengineConfig configures the general-purpose classifier.
type SightengineConfig struct {
	URL    string
	User   string
	Secret string
	Models string
	RPS    float64
}

// SightengineClient calls a Sightengine-compatible check.json endpoint.
type SightengineClient struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     SightengineConfig
}

// NewSightengineClient creates the general-purpose classifier.
func NewSightengineClient(cfg SightengineConfig, client *http.Client) *SightengineClient {
	if cfg.Models == "" {
		cfg.Models = DefaultSightengineModels
	}
	return &SightengineClient{http: client, limiter: newLimiter(cfg.RPS), cfg: cfg}
}

// Classify returns every numeric field of the response flattened into dotted
// paths, e.g. "nudity.raw" or "weapon_firearm".
func (c *SightengineClient) Classify(ctx context.Context, imageURL string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("url", imageURL)
	q.Set("models", c.cfg.Models)
	q.Set("api_user", c.cfg.User)
	q.Set("api_secret", c.cfg.Secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var body map[string]any
	if err := doJSON(c.http, c.limiter, req, &body); err != nil {
		return nil, err
	}

	if status, _ := body["status"].(string); status != "success" {
		return nil, errors.New("classifier did not return success")
	}

	signals := make(map[string]float64)
	for key, v := range body {
		switch key {
		case "status", "request", "media":
			continue
		}
		flatten(strings.ToLower(key), v, signals)
	}
	return signals, nil
}

func flatten(prefix string, v any, out map[string]float64) {
	switch val := v.(type) {
	case float64:
		out[prefix] = val
	case map[string]any:
		for k, child := range val {
			flatten(prefix+"."+strings.ToLower(k), child, out)
		}
	}
}
