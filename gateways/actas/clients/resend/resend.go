package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxcliente/backend/services/actas/delivery"
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

func New(cfg Config, log *slog.Logger) *Client {
	log.Debug("creating resend client",
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("api_key_set", cfg.APIKey != ""))
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Send posts the e-mail and returns the provider message id.
func (c *Client) Send(ctx context.Context, email *delivery.Email) (string, error) {
	data, err := json.Marshal(email)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("sending email",
		slog.Any("to", email.To),
		slog.Int("attachments", len(email.Attachments)),
		slog.Int("payload_bytes", len(data)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out sendResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = string(body)
		}
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, msg)
	}
	if out.ID == "" {
		return "", fmt.Errorf("response has no message id")
	}
	return out.ID, nil
}
