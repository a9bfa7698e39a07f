package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
)

var (
	ErrProviderStatus  = errors.New("transcription provider reported an error")
	ErrEmptyTranscript = errors.New("transcription produced no text")
)

const StatusError = "error"

type (
	Spelling struct {
		From []string `json:"from"`
		To   string   `json:"to"`
	}

	Options struct {
		Language      string
		SpeakerLabels bool
		Punctuate     bool
		FormatText    bool
		Spelling      []Spelling
	}

	Segment struct {
		Speaker string
		Text    string
	}

	Result struct {
		ID              string
		Status          string
		Error           string
		Text            string
		Segments        []Segment
		DurationSeconds float64
		Confidence      float64
	}
)

// Provider uploads an audio file and waits for the provider's final result.
type Provider interface {
	Transcribe(ctx context.Context, path string, opts Options) (*Result, error)
}

type Adapter struct {
	provider      Provider
	ratePerMinute float64
	spelling      []Spelling
	log           *slog.Logger
}

func New(provider Provider, ratePerMinute float64, spelling []Spelling, log *slog.Logger) *Adapter {
	if ratePerMinute <= 0 {
		ratePerMinute = consts.TranscriptionRatePerMinute
	}
	return &Adapter{
		provider:      provider,
		ratePerMinute: ratePerMinute,
		spelling:      spelling,
		log:           log,
	}
}

func (a *Adapter) Transcribe(ctx context.Context, path string) (*entity.Transcript, error) {
	a.log.Info("transcribing audio", slog.String("path", path))

	res, err := a.provider.Transcribe(ctx, path, Options{
		Language:      consts.TranscriptionLanguage,
		SpeakerLabels: true,
		Punctuate:     true,
		FormatText:    true,
		Spelling:      a.spelling,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe: %w", err)
	}
	if res.Status == StatusError {
		a.log.Error("provider returned error status",
			slog.String("transcript_id", res.ID),
			slog.String("error", res.Error))
		return nil, fmt.Errorf("%w: %s", ErrProviderStatus, res.Error)
	}

	text := FormatSegments(res.Segments)
	if text == "" {
		text = strings.TrimSpace(res.Text)
	}
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	minutes := res.DurationSeconds / 60
	t := &entity.Transcript{
		Text:            text,
		ProviderID:      res.ID,
		DurationSeconds: res.DurationSeconds,
		DurationMinutes: consts.Round2(minutes),
		Confidence:      res.Confidence,
		CostUSD:         a.Cost(res.DurationSeconds),
	}

	a.log.Info("transcription completed",
		slog.String("transcript_id", res.ID),
		slog.Int("segments", len(res.Segments)),
		slog.Int("text_length", len(text)),
		slog.Float64("duration_minutes", t.DurationMinutes),
		slog.Float64("cost_usd", t.CostUSD))

	return t, nil
}

// Cost is the provider charge for the given audio length.
func (a *Adapter) Cost(durationSeconds float64) float64 {
	return consts.Round6(durationSeconds / 60 * a.ratePerMinute)
}

// FormatSegments renders one "Speaker <id>: <text>" line per segment.
func FormatSegments(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "Speaker %s: %s\n", s.Speaker, s.Text)
	}
	return strings.TrimSpace(b.String())
}
