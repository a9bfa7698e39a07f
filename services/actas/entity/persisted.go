package entity

import (
	"time"
)

type (
	User struct {
		ID             string    `json:"user_id"`
		AuthProviderID string    `json:"auth_provider_id"`
		Email          string    `json:"email"`
		Cohort         string    `json:"user_cohort"`
		TotalCostUSD   float64   `json:"total_cost_usd"`
		TotalActas     int       `json:"total_actas"`
		CreatedAt      time.Time `json:"created_at"`
	}

	Client struct {
		ID        string    `json:"client_id"`
		UserID    string    `json:"user_id"`
		Name      string    `json:"client_name"`
		Industry  *string   `json:"industry,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	Meeting struct {
		ID                string    `json:"meeting_id"`
		ClientID          *string   `json:"client_id,omitempty"`
		UserID            string    `json:"user_id"`
		TranscriptID      string    `json:"transcript_id"`
		ProviderID        *string   `json:"assemblyai_id,omitempty"`
		MeetingDate       time.Time `json:"meeting_date"`
		Filename          string    `json:"filename"`
		Status            string    `json:"status"`
		DurationMinutes   *float64  `json:"duration_minutes,omitempty"`
		Summary           *string   `json:"summary,omitempty"`
		TranscriptionCost *float64  `json:"transcription_cost,omitempty"`
		LLMCost           *float64  `json:"llm_processing_cost,omitempty"`
		EmailCost         *float64  `json:"email_cost,omitempty"`
		TotalCost         float64   `json:"total_acta_cost"`
		CreatedAt         time.Time `json:"created_at"`
	}

	CreateMeeting struct {
		ClientID     *string
		UserID       string
		TranscriptID string
		MeetingDate  time.Time
		Filename     string
	}

	// MeetingUpdate only touches the non-nil fields.
	MeetingUpdate struct {
		ProviderID        *string
		DurationMinutes   *float64
		Topics            *ExecutiveSummary
		Summary           *string
		TranscriptionCost *float64
		LLMCost           *float64
		EmailCost         *float64
		TotalCost         *float64
		Status            *string
	}
)
