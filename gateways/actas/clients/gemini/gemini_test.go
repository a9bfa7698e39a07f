package gemini

import (
	"testing"

	"google.golang.org/genai"
)

func TestToCompletion(t *testing.T) {
	t.Parallel()

	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "<output>"}, {Text: "{}</output>"}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     1200,
			CandidatesTokenCount: 300,
			TotalTokenCount:      1500,
		},
	}

	got, err := toCompletion(res, "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("toCompletion() error = %v", err)
	}
	if got.Text != "<output>{}</output>" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.PromptTokens != 1200 || got.CompletionTokens != 300 || got.TotalTokens != 1500 {
		t.Errorf("usage = %+v", got)
	}
}

func TestToCompletionEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		res  *genai.GenerateContentResponse
	}{
		{"nil", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"no text", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}},
	}

	for _, tt := range tests {
		if _, err := toCompletion(tt.res, "m"); err == nil {
			t.Errorf("%s: toCompletion() expected error", tt.name)
		}
	}
}
