package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/summarization"
)

type Config struct {
	APIKey string
	Model  string
}

type Client struct {
	client *genai.Client
	model  string
	dumper *logger.Dumper
	log    *slog.Logger
}

func New(ctx context.Context, cfg Config, dumper *logger.Dumper, log *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	log.Debug("creating gemini client", slog.String("model", cfg.Model))

	return &Client{
		client: client,
		model:  cfg.Model,
		dumper: dumper,
		log:    log,
	}, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (*summarization.Completion, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		c.log.Error("gemini request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if raw, err := json.Marshal(result); err == nil {
		c.dumper.Dump(ctx, "gemini", c.model, raw)
	}

	return toCompletion(result, c.model)
}

func toCompletion(result *genai.GenerateContentResponse, model string) (*summarization.Completion, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	out := &summarization.Completion{Text: b.String(), Model: model}
	if result.ModelVersion != "" {
		out.Model = result.ModelVersion
	}
	if u := result.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}
