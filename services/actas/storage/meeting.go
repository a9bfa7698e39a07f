package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
)

var meetingColumns = []string{
	"meeting_id", "client_id", "user_id", "transcript_id", "assemblyai_id",
	"meeting_date", "filename", "status", "duration_minutes", "summary",
	"transcription_cost", "llm_processing_cost", "email_cost", "total_acta_cost", "created_at",
}

func (s *storage) CreateMeeting(ctx context.Context, req *entity.CreateMeeting) (*entity.Meeting, error) {
	log := logger.FromContext(ctx)

	query, args, err := psql.Insert("meetings").
		Columns("meeting_id", "client_id", "user_id", "transcript_id", "meeting_date", "filename", "status").
		Values(s.ids.NextString(), req.ClientID, req.UserID, req.TranscriptID, req.MeetingDate, req.Filename, consts.MeetingStatusPending).
		Suffix("RETURNING " + strings.Join(meetingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build create meeting query: %w", err)
	}

	m, err := scanMeeting(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		log.Error("failed to create meeting", "error", err)
		return nil, fmt.Errorf("failed to create meeting: %w", describe(err))
	}
	log.Debug("created meeting", "meeting_id", m.ID)

	return m, nil
}

// UpdateMeeting writes the non-nil fields of upd. An empty update is a no-op.
func (s *storage) UpdateMeeting(ctx context.Context, meetingID string, upd *entity.MeetingUpdate) error {
	builder, ok, err := updateMeetingQuery(meetingID, upd)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update meeting query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", describe(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update meeting %s: %w", meetingID, ErrNotFound)
	}
	return nil
}

func (s *storage) ListMeetingsByUser(ctx context.Context, userID string) ([]*entity.Meeting, error) {
	return s.listMeetings(ctx, sq.Eq{"user_id": userID})
}

func (s *storage) ListMeetingsByClient(ctx context.Context, clientID string) ([]*entity.Meeting, error) {
	return s.listMeetings(ctx, sq.Eq{"client_id": clientID})
}

func (s *storage) listMeetings(ctx context.Context, where sq.Eq) ([]*entity.Meeting, error) {
	query, args, err := listMeetingsQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list meetings query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", describe(err))
	}
	defer rows.Close()

	var meetings []*entity.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}
	return meetings, nil
}

func listMeetingsQuery(where sq.Eq) sq.SelectBuilder {
	return psql.Select(meetingColumns...).
		From("meetings").
		Where(where).
		OrderBy("meeting_date DESC")
}

func updateMeetingQuery(meetingID string, upd *entity.MeetingUpdate) (sq.UpdateBuilder, bool, error) {
	set := map[string]any{}
	if upd != nil {
		if upd.ProviderID != nil {
			set["assemblyai_id"] = *upd.ProviderID
		}
		if upd.DurationMinutes != nil {
			set["duration_minutes"] = *upd.DurationMinutes
		}
		if upd.Topics != nil {
			topics, err := json.Marshal(upd.Topics)
			if err != nil {
				return sq.UpdateBuilder{}, false, fmt.Errorf("failed to encode topics: %w", err)
			}
			set["topics"] = string(topics)
		}
		if upd.Summary != nil {
			set["summary"] = *upd.Summary
		}
		if upd.TranscriptionCost != nil {
			set["transcription_cost"] = *upd.TranscriptionCost
		}
		if upd.LLMCost != nil {
			set["llm_processing_cost"] = *upd.LLMCost
		}
		if upd.EmailCost != nil {
			set["email_cost"] = *upd.EmailCost
		}
		if upd.TotalCost != nil {
			set["total_acta_cost"] = *upd.TotalCost
		}
		if upd.Status != nil {
			set["status"] = *upd.Status
		}
	}
	if len(set) == 0 {
		return sq.UpdateBuilder{}, false, nil
	}

	set["updated_at"] = sq.Expr("NOW()")
	return psql.Update("meetings").
		SetMap(set).
		Where(sq.Eq{"meeting_id": meetingID}), true, nil
}

func scanMeeting(row rowScanner) (*entity.Meeting, error) {
	var m entity.Meeting
	err := row.Scan(
		&m.ID, &m.ClientID, &m.UserID, &m.TranscriptID, &m.ProviderID,
		&m.MeetingDate, &m.Filename, &m.Status, &m.DurationMinutes, &m.Summary,
		&m.TranscriptionCost, &m.LLMCost, &m.EmailCost, &m.TotalCost, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
