package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/voxcliente/backend/pkg/logger"
)

type stubProvider struct {
	res  *Result
	err  error
	opts Options
}

func (s *stubProvider) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	s.opts = opts
	return s.res, s.err
}

func TestTranscribeSegments(t *testing.T) {
	t.Parallel()

	p := &stubProvider{res: &Result{
		ID:     "tr_1",
		Status: "completed",
		Text:   "ignored full text",
		Segments: []Segment{
			{Speaker: "A", Text: "Buenos días."},
			{Speaker: "B", Text: "Empecemos."},
			{Speaker: "A", Text: "De acuerdo."},
		},
		DurationSeconds: 180,
		Confidence:      0.93,
	}}
	spelling := []Spelling{{To: "LAIVE", From: []string{"laib"}}}
	a := New(p, 0.0045, spelling, logger.Discard())

	got, err := a.Transcribe(context.Background(), "/tmp/audio.mp3")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	want := "Speaker A: Buenos días.\nSpeaker B: Empecemos.\nSpeaker A: De acuerdo."
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	if got.DurationMinutes != 3 {
		t.Errorf("DurationMinutes = %v, want 3", got.DurationMinutes)
	}
	if got.CostUSD != 0.0135 {
		t.Errorf("CostUSD = %v, want 0.0135", got.CostUSD)
	}
	if got.Confidence != 0.93 || got.ProviderID != "tr_1" {
		t.Errorf("unexpected metadata: %+v", got)
	}

	if p.opts.Language != "es" || !p.opts.SpeakerLabels || !p.opts.Punctuate || !p.opts.FormatText {
		t.Errorf("unexpected provider options: %+v", p.opts)
	}
	if len(p.opts.Spelling) != 1 || p.opts.Spelling[0].To != "LAIVE" {
		t.Errorf("spelling not forwarded: %+v", p.opts.Spelling)
	}
}

func TestTranscribeFallbackToText(t *testing.T) {
	t.Parallel()

	p := &stubProvider{res: &Result{Status: "completed", Text: "hello world", DurationSeconds: 30}}
	got, err := New(p, 0, nil, logger.Discard()).Transcribe(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "hello world" {
		t.Errorf("Text = %q, want %q", got.Text, "hello world")
	}
	if got.CostUSD != 0.00225 {
		t.Errorf("CostUSD = %v, want 0.00225", got.CostUSD)
	}
}

func TestTranscribeFailures(t *testing.T) {
	t.Parallel()

	providerErr := errors.New("connection reset")
	tests := []struct {
		name string
		p    *stubProvider
		want error
	}{
		{"provider error", &stubProvider{err: providerErr}, providerErr},
		{"error status", &stubProvider{res: &Result{Status: StatusError, Error: "bad audio"}}, ErrProviderStatus},
		{"empty result", &stubProvider{res: &Result{Status: "completed", Text: "  "}}, ErrEmptyTranscript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p, 0, nil, logger.Discard()).Transcribe(context.Background(), "a.wav")
			if !errors.Is(err, tt.want) {
				t.Errorf("Transcribe() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFormatSegmentsEmpty(t *testing.T) {
	t.Parallel()

	if got := FormatSegments(nil); got != "" {
		t.Errorf("FormatSegments(nil) = %q", got)
	}
}
