// Package tba is a read-only client for The Blue Alliance v3 API. Its
// failure modes (401, 404, network error) surface as errors the callers
// treat as "no data", never as a crash.
package tba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://www.thebluealliance.com/api/v3"

var (
	ErrUnauthorized = errors.New("tba: authorization key is not valid")
	ErrNotFound     = errors.New("tba: endpoint not found")
)

// Config defines the API endpoint and credentials.
type Config struct {
	BaseURL string
	AuthKey string
	Timeout time.Duration
}

type Client struct {
	base string
	key  string
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		base: cfg.BaseURL,
		key:  cfg.AuthKey,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch gets one endpoint, e.g. "/event/2025wasno/teams", and returns
// the raw JSON body.
func (c *Client) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tba: build request: %w", err)
	}
	req.Header.Set("X-TBA-Auth-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tba: fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("tba: fetch %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tba: read %s: %w", endpoint, err)
	}
	log.Debug().Str("endpoint", endpoint).Int("bytes", len(body)).Msg("tba response")
	return body, nil
}

// IsValidEventKey asks TBA whether the event key exists.
func (c *Client) IsValidEventKey(ctx context.Context, key string) bool {
	body, err := c.Fetch(ctx, "/event/"+key+"/simple")
	if err != nil {
		return false
	}
	var simple map[string]json.RawMessage
	if err := json.Unmarshal(body, &simple); err != nil {
		return false
	}
	_, hasError := simple["Error"]
	return !hasError
}
