package posthog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/voxcliente/backend/services/actas/analytics"
)

type Config struct {
	APIKey  string
	Host    string
	Timeout time.Duration
}

// Client posts events to the PostHog capture endpoint.
type Client struct {
	apiKey     string
	host       string
	httpClient *http.Client
	log        *slog.Logger
}

type captureRequest struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

func New(cfg Config, log *slog.Logger) *Client {
	log.Debug("creating posthog client",
		slog.String("host", cfg.Host),
		slog.Bool("api_key_set", cfg.APIKey != ""))
	return &Client{
		apiKey:     cfg.APIKey,
		host:       strings.TrimRight(cfg.Host, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

func (c *Client) Capture(ctx context.Context, event analytics.Event) error {
	data, err := json.Marshal(captureRequest{
		APIKey:     c.apiKey,
		Event:      event.Name,
		DistinctID: event.DistinctID,
		Properties: event.Properties,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/capture/", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to capture event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body)
	}
	return nil
}
