package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/transcription"
)

const (
	statusCompleted = "completed"
	statusError     = "error"
)

type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

type Client struct {
	apiKey       string
	baseURL      string
	timeout      time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
	dumper       *logger.Dumper
	log          *slog.Logger
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type spelling struct {
	From []string `json:"from"`
	To   string   `json:"to"`
}

type transcriptRequest struct {
	AudioURL       string     `json:"audio_url"`
	SpeakerLabels  bool       `json:"speaker_labels"`
	LanguageCode   string     `json:"language_code,omitempty"`
	Punctuate      bool       `json:"punctuate"`
	FormatText     bool       `json:"format_text"`
	CustomSpelling []spelling `json:"custom_spelling,omitempty"`
}

type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type TranscriptResponse struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Error         string      `json:"error"`
	Text          string      `json:"text"`
	Utterances    []Utterance `json:"utterances"`
	AudioDuration float64     `json:"audio_duration"`
	Confidence    float64     `json:"confidence"`
}

func New(cfg Config, dumper *logger.Dumper, log *slog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	log.Debug("creating assemblyai client",
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("api_key_set", cfg.APIKey != ""),
		slog.Duration("timeout", cfg.Timeout))
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		httpClient:   &http.Client{},
		dumper:       dumper,
		log:          log,
	}
}

// Transcribe uploads the file, submits a transcription job and polls it
// until it completes or fails.
func (c *Client) Transcribe(ctx context.Context, path string, opts transcription.Options) (*transcription.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	uploadURL, err := c.upload(ctx, path)
	if err != nil {
		return nil, err
	}

	job, err := c.submit(ctx, uploadURL, opts)
	if err != nil {
		return nil, err
	}
	c.log.Info("transcription job submitted", slog.String("transcript_id", job.ID))

	final, raw, err := c.wait(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	c.dumper.Dump(ctx, "assemblyai", job.ID, raw)

	res := &transcription.Result{
		ID:              final.ID,
		Status:          final.Status,
		Error:           final.Error,
		Text:            final.Text,
		DurationSeconds: final.AudioDuration,
		Confidence:      final.Confidence,
	}
	if final.Status == statusError {
		res.Status = transcription.StatusError
	}
	for _, u := range final.Utterances {
		res.Segments = append(res.Segments, transcription.Segment{Speaker: u.Speaker, Text: u.Text})
	}
	return res, nil
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", f)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if _, err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("failed to upload audio: empty upload_url")
	}
	c.log.Debug("audio uploaded")
	return out.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string, opts transcription.Options) (*TranscriptResponse, error) {
	body := transcriptRequest{
		AudioURL:      audioURL,
		SpeakerLabels: opts.SpeakerLabels,
		LanguageCode:  opts.Language,
		Punctuate:     opts.Punctuate,
		FormatText:    opts.FormatText,
	}
	for _, s := range opts.Spelling {
		body.CustomSpelling = append(body.CustomSpelling, spelling{From: s.From, To: s.To})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out TranscriptResponse
	if _, err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("failed to submit transcript: %w", err)
	}
	return &out, nil
}

func (c *Client) wait(ctx context.Context, id string) (*TranscriptResponse, []byte, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create poll request: %w", err)
		}

		var out TranscriptResponse
		raw, err := c.do(req, &out)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to poll transcript %s: %w", id, err)
		}

		switch out.Status {
		case statusCompleted, statusError:
			return &out, raw, nil
		}
		c.log.Debug("transcript not ready", slog.String("transcript_id", id), slog.String("status", out.Status))

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("transcript %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, out any) ([]byte, error) {
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("HTTP request failed", slog.String("url", req.URL.Path), slog.String("error", err.Error()))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.log.Error("unexpected status code",
			slog.String("url", req.URL.Path),
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", string(body)))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body, nil
}
