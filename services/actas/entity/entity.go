package entity

import (
	"io"
	"time"

	"github.com/voxcliente/backend/services/actas/consts"
)

type (
	Transcript struct {
		Text            string  `json:"transcript"`
		ProviderID      string  `json:"provider_id,omitempty"`
		DurationSeconds float64 `json:"audio_duration_seconds"`
		DurationMinutes float64 `json:"audio_duration_minutes"`
		Confidence      float64 `json:"confidence"`
		CostUSD         float64 `json:"cost_usd"`
	}

	ExecutiveSummary struct {
		Objetivo      string `json:"objetivo"`
		Acuerdos      string `json:"acuerdos"`
		ProximosPasos string `json:"proximos_pasos"`
	}

	Acta struct {
		ResumenEjecutivo ExecutiveSummary `json:"resumen_ejecutivo"`
		Acta             string           `json:"acta"`
	}

	TokenUsage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}

	SummarizationCost struct {
		InputCostUSD  float64 `json:"input_cost_usd"`
		OutputCostUSD float64 `json:"output_cost_usd"`
		TotalCostUSD  float64 `json:"total_cost_usd"`
	}

	Summary struct {
		Acta  Acta              `json:"acta"`
		Usage TokenUsage        `json:"usage"`
		Cost  SummarizationCost `json:"cost"`
		Model string            `json:"model,omitempty"`
	}

	CostBreakdown struct {
		TranscriptionUSD float64 `json:"transcription_usd"`
		SummarizationUSD float64 `json:"summarization_usd"`
		EmailUSD         float64 `json:"email_usd"`
		TotalUSD         float64 `json:"total_usd"`
	}
)

type (
	// StoredDocument is a registry record of the transient file store.
	StoredDocument struct {
		ID               string      `json:"id"`
		Path             string      `json:"-"`
		Kind             consts.Kind `json:"kind"`
		OriginalFilename string      `json:"original_filename"`
		CreatedAt        time.Time   `json:"created_at"`
	}

	StoreStats struct {
		TotalFiles     int                 `json:"total_files"`
		ByKind         map[consts.Kind]int `json:"by_kind"`
		TotalSizeBytes int64               `json:"total_size_bytes"`
		TotalSizeMB    float64             `json:"total_size_mb"`
		TTLHours       float64             `json:"file_lifetime_hours"`
	}
)

type (
	ProcessRequest struct {
		// Audio is read once and copied to a scratch file.
		Audio      io.Reader
		Filename   string
		SizeBytes  int64
		Email      string
		ClientName string
	}

	Downloads struct {
		ActaID       string `json:"acta_id,omitempty"`
		TranscriptID string `json:"transcript_id,omitempty"`
	}

	ProcessResponse struct {
		Filename   string        `json:"filename"`
		Email      string        `json:"email"`
		Transcript Transcript    `json:"transcript"`
		Summary    Summary       `json:"summary"`
		Costs      CostBreakdown `json:"costs"`
		EmailSent  bool          `json:"email_sent"`
		Downloads  *Downloads    `json:"downloads,omitempty"`
	}

	ValidateRequest struct {
		Filename  string
		SizeBytes int64
		Email     string
		// ProbePath is optional. When set, the audio duration is estimated from it.
		ProbePath string
	}

	ValidateResponse struct {
		Filename          string   `json:"filename"`
		SanitizedFilename string   `json:"sanitized_filename"`
		SizeBytes         int64    `json:"size_bytes"`
		Email             string   `json:"email"`
		DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
		EstimatedCostUSD  *float64 `json:"estimated_transcription_cost_usd,omitempty"`
	}
)
