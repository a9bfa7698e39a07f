package summarization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
)

var (
	ErrParse     = errors.New("model output is not valid JSON")
	ErrStructure = errors.New("model output is missing required fields")
	ErrNoPrompt  = errors.New("system prompt is empty")
)

type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider sends one system plus one user message to a language model.
type Provider interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// PromptSource returns the current system instruction.
type PromptSource interface {
	Prompt() string
}

type Rates struct {
	InputPer1K  float64
	OutputPer1K float64
}

type Adapter struct {
	provider Provider
	prompts  PromptSource
	rates    Rates
	log      *slog.Logger
}

func New(provider Provider, prompts PromptSource, rates Rates, log *slog.Logger) *Adapter {
	if rates.InputPer1K <= 0 {
		rates.InputPer1K = consts.InputRatePer1K
	}
	if rates.OutputPer1K <= 0 {
		rates.OutputPer1K = consts.OutputRatePer1K
	}
	return &Adapter{
		provider: provider,
		prompts:  prompts,
		rates:    rates,
		log:      log,
	}
}

func (a *Adapter) Summarize(ctx context.Context, transcript string) (*entity.Summary, error) {
	prompt := a.prompts.Prompt()
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrNoPrompt
	}

	a.log.Info("generating acta", slog.Int("transcript_length", len(transcript)))
	completion, err := a.provider.Complete(ctx, prompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to call language model: %w", err)
	}

	acta, err := ParseActa(completion.Text)
	if err != nil {
		a.log.Error("failed to parse model output",
			slog.String("error", err.Error()),
			slog.Int("output_length", len(completion.Text)))
		return nil, err
	}

	total := completion.TotalTokens
	if total == 0 {
		total = completion.PromptTokens + completion.CompletionTokens
	}
	summary := &entity.Summary{
		Acta: *acta,
		Usage: entity.TokenUsage{
			PromptTokens:     completion.PromptTokens,
			CompletionTokens: completion.CompletionTokens,
			TotalTokens:      total,
		},
		Cost:  a.Cost(completion.PromptTokens, completion.CompletionTokens),
		Model: completion.Model,
	}

	a.log.Info("acta generated",
		slog.Int("prompt_tokens", summary.Usage.PromptTokens),
		slog.Int("completion_tokens", summary.Usage.CompletionTokens),
		slog.Float64("cost_usd", summary.Cost.TotalCostUSD))

	return summary, nil
}

// Cost prices token usage. Each component and the total are rounded to
// six decimals; the total is computed from the unrounded components.
func (a *Adapter) Cost(promptTokens, completionTokens int) entity.SummarizationCost {
	in := float64(promptTokens) / 1000 * a.rates.InputPer1K
	out := float64(completionTokens) / 1000 * a.rates.OutputPer1K
	return entity.SummarizationCost{
		InputCostUSD:  consts.Round6(in),
		OutputCostUSD: consts.Round6(out),
		TotalCostUSD:  consts.Round6(in + out),
	}
}

var (
	reOutputTag = regexp.MustCompile(`(?s)<output>(.*?)</output>`)
	reFenced    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
)

// ExtractJSON picks the JSON candidate out of free-form model output:
// an <output> block, then a fenced code block, then the whole text.
func ExtractJSON(raw string) string {
	if m := reOutputTag.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := reFenced.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

type rawActa struct {
	Resumen map[string]json.RawMessage `json:"resumen_ejecutivo"`
	Acta    json.RawMessage            `json:"acta"`
}

// ParseActa extracts, decodes and validates the structured acta.
func ParseActa(raw string) (*entity.Acta, error) {
	candidate := ExtractJSON(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var parsed rawActa
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructure, err)
	}

	if _, ok := top["acta"]; !ok {
		return nil, fmt.Errorf("%w: acta", ErrStructure)
	}
	if _, ok := top["resumen_ejecutivo"]; !ok || parsed.Resumen == nil {
		return nil, fmt.Errorf("%w: resumen_ejecutivo", ErrStructure)
	}
	for _, field := range []string{"objetivo", "acuerdos", "proximos_pasos"} {
		if _, ok := parsed.Resumen[field]; !ok {
			return nil, fmt.Errorf("%w: resumen_ejecutivo.%s", ErrStructure, field)
		}
	}

	return &entity.Acta{
		ResumenEjecutivo: entity.ExecutiveSummary{
			Objetivo:      flatten(parsed.Resumen["objetivo"]),
			Acuerdos:      flatten(parsed.Resumen["acuerdos"]),
			ProximosPasos: flatten(parsed.Resumen["proximos_pasos"]),
		},
		Acta: flatten(parsed.Acta),
	}, nil
}

// flatten turns a JSON value into display text. Lists of strings are
// joined with "; ", null becomes empty, anything else keeps its JSON form.
func flatten(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return strings.Join(list, "; ")
	}

	trimmed := strings.TrimSpace(string(v))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}
