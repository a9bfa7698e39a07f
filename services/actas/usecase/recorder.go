package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/voxcliente/backend/pkg/gen"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/services/actas/storage"
)

// recorder persists meeting history next to the pipeline. Every call is
// best-effort: errors are logged and the pipeline carries on.
type recorder struct {
	storage storage.Storage
	ids     gen.UUIDGenerator
	log     *slog.Logger
}

func newRecorder(s storage.Storage, log *slog.Logger) *recorder {
	if s == nil {
		return nil
	}
	return &recorder{storage: s, ids: gen.UUID(), log: log}
}

// meetingRecord tracks one pending meeting row. A nil record is inert.
type meetingRecord struct {
	r         *recorder
	userID    string
	meetingID string
}

func (r *recorder) Start(ctx context.Context, email, clientName, filename string) *meetingRecord {
	if r == nil {
		return nil
	}

	user, err := r.storage.UpsertUser(ctx, email)
	if err != nil {
		r.log.Warn("failed to record user", slog.String("error", err.Error()))
		return nil
	}

	var clientID *string
	if name := strings.TrimSpace(clientName); name != "" {
		client, err := r.storage.UpsertClient(ctx, user.ID, name)
		if err != nil {
			r.log.Warn("failed to record client", slog.String("error", err.Error()))
		} else {
			clientID = &client.ID
		}
	}

	meeting, err := r.storage.CreateMeeting(ctx, &entity.CreateMeeting{
		ClientID:     clientID,
		UserID:       user.ID,
		TranscriptID: r.ids.NextString(),
		MeetingDate:  time.Now().UTC(),
		Filename:     filename,
	})
	if err != nil {
		r.log.Warn("failed to record meeting", slog.String("error", err.Error()))
		return nil
	}

	return &meetingRecord{r: r, userID: user.ID, meetingID: meeting.ID}
}

func (m *meetingRecord) Fail(ctx context.Context) {
	if m == nil {
		return
	}
	status := consts.MeetingStatusFailed
	if err := m.r.storage.UpdateMeeting(ctx, m.meetingID, &entity.MeetingUpdate{Status: &status}); err != nil {
		m.r.log.Warn("failed to mark meeting failed",
			slog.String("meeting_id", m.meetingID),
			slog.String("error", err.Error()))
	}
}

func (m *meetingRecord) Complete(ctx context.Context, t *entity.Transcript, s *entity.Summary, costs entity.CostBreakdown) {
	if m == nil {
		return
	}

	status := consts.MeetingStatusCompleted
	topics := s.Acta.ResumenEjecutivo
	upd := &entity.MeetingUpdate{
		DurationMinutes:   &t.DurationMinutes,
		Topics:            &topics,
		Summary:           &s.Acta.Acta,
		TranscriptionCost: &costs.TranscriptionUSD,
		LLMCost:           &costs.SummarizationUSD,
		EmailCost:         &costs.EmailUSD,
		TotalCost:         &costs.TotalUSD,
		Status:            &status,
	}
	if t.ProviderID != "" {
		upd.ProviderID = &t.ProviderID
	}

	if err := m.r.storage.UpdateMeeting(ctx, m.meetingID, upd); err != nil {
		m.r.log.Warn("failed to complete meeting",
			slog.String("meeting_id", m.meetingID),
			slog.String("error", err.Error()))
		return
	}
	if err := m.r.storage.AddUserUsage(ctx, m.userID, costs.TotalUSD); err != nil {
		m.r.log.Warn("failed to add user usage",
			slog.String("user_id", m.userID),
			slog.String("error", err.Error()))
	}
}
