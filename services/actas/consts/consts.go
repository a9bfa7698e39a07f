package consts

import "math"

type Kind string

const (
	KindActa       Kind = "acta"
	KindTranscript Kind = "transcript"
)

func (k Kind) Valid() bool {
	return k == KindActa || k == KindTranscript
}

// Label is the attachment and download name prefix for the kind.
func (k Kind) Label() string {
	switch k {
	case KindActa:
		return "Acta_Reunion"
	case KindTranscript:
		return "Transcripcion_Completa"
	default:
		return string(k)
	}
}

const (
	DocxMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	DocxExt      = ".docx"

	// Default provider rates in USD.
	TranscriptionRatePerMinute = 0.0045
	InputRatePer1K             = 0.00025
	OutputRatePer1K            = 0.002
	EmailCostUSD               = 0.0004

	BytesPerMB = 1024 * 1024

	TranscriptionLanguage = "es"
)

const (
	MeetingStatusPending   = "pending"
	MeetingStatusCompleted = "completed"
	MeetingStatusFailed    = "failed"
)

// Round6 rounds a monetary amount to six decimal places.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
