package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/delivery"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/topics"
)

type renderedDocs struct {
	actaPath       string
	transcriptPath string
}

// Process runs the full pipeline for one upload: transcription, acta
// generation, document rendering, storage, delivery and cost accounting.
// Only transcription and acta generation can fail the request.
func (u *usecase) Process(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With(
		slog.String("filename", req.Filename),
		slog.String("email", req.Email))
	ctx = logger.WithContext(ctx, log)

	if err := u.validateInput(req.Email, req.Filename, req.SizeBytes); err != nil {
		return nil, err
	}

	scratch, err := u.writeScratch(req.Audio, req.Filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(scratch); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove scratch file", slog.String("path", scratch), slog.String("error", err.Error()))
		}
	}()
	log.Info("processing upload", slog.Int64("size_bytes", req.SizeBytes))

	record := u.recorder.Start(ctx, req.Email, req.ClientName, req.Filename)

	transcript, err := u.transcriber.Transcribe(ctx, scratch)
	if err != nil {
		record.Fail(ctx)
		u.trackFailure(ctx, req, "transcription", err)
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	summary, err := u.summarizer.Summarize(ctx, transcript.Text)
	if err != nil {
		record.Fail(ctx)
		u.trackFailure(ctx, req, "summarization", err)
		return nil, fmt.Errorf("%w: %w", ErrSummarization, err)
	}

	renderDir, err := os.MkdirTemp(u.scratchDir, "render-*")
	if err != nil {
		log.Error("failed to create render dir", slog.String("error", err.Error()))
		renderDir = ""
	} else {
		defer os.RemoveAll(renderDir)
	}

	docs := u.render(ctx, renderDir, summary.Acta, transcript.Text, req.Filename)
	downloads := u.store(ctx, docs, req.Filename)

	emailSent := false
	if docs.actaPath != "" {
		emailSent = u.mailer.Send(ctx, delivery.Message{
			To:             req.Email,
			Filename:       req.Filename,
			Acta:           summary.Acta,
			ActaPath:       docs.actaPath,
			TranscriptPath: docs.transcriptPath,
		})
	} else {
		log.Warn("acta document unavailable, email not sent")
	}

	costs := costBreakdown(transcript.CostUSD, summary.Cost.TotalCostUSD, u.emailCostUSD)
	record.Complete(ctx, transcript, summary, costs)

	u.tracker.Track(ctx, topics.ActaGenerated, req.Email, map[string]any{
		"filename":         req.Filename,
		"file_size_mb":     consts.Round2(float64(req.SizeBytes) / consts.BytesPerMB),
		"duration_minutes": transcript.DurationMinutes,
		"cost_usd":         costs.TotalUSD,
		"cost_breakdown":   costs,
		"llm_usage":        summary.Usage,
		"llm_model":        summary.Model,
		"transcription_id": transcript.ProviderID,
		"email_sent":       emailSent,
	})

	log.Info("upload processed",
		slog.Bool("email_sent", emailSent),
		slog.Float64("total_cost_usd", costs.TotalUSD),
		elapsed(start))

	return &entity.ProcessResponse{
		Filename:   req.Filename,
		Email:      req.Email,
		Transcript: *transcript,
		Summary:    *summary,
		Costs:      costs,
		EmailSent:  emailSent,
		Downloads:  downloads,
	}, nil
}

// render produces both documents. A failed document leaves its path empty.
func (u *usecase) render(ctx context.Context, dir string, acta entity.Acta, transcript, filename string) renderedDocs {
	log := logger.FromContext(ctx)
	var docs renderedDocs
	if dir == "" {
		return docs
	}

	path, err := u.renderer.RenderActa(acta, filename, dir)
	if err != nil {
		log.Error("failed to render acta document", slog.String("error", err.Error()))
	} else {
		docs.actaPath = path
	}

	path, err = u.renderer.RenderTranscript(transcript, filename, dir)
	if err != nil {
		log.Error("failed to render transcript document", slog.String("error", err.Error()))
	} else {
		docs.transcriptPath = path
	}

	return docs
}

// store registers the rendered documents for download and sweeps expired
// ones. It returns nil when nothing could be stored.
func (u *usecase) store(ctx context.Context, docs renderedDocs, filename string) *entity.Downloads {
	log := logger.FromContext(ctx)
	var dl entity.Downloads

	if docs.actaPath != "" {
		id, err := u.files.Save(ctx, docs.actaPath, consts.KindActa, filename)
		if err != nil {
			log.Error("failed to store acta document", slog.String("error", err.Error()))
		} else {
			dl.ActaID = id
		}
	}
	if docs.transcriptPath != "" {
		id, err := u.files.Save(ctx, docs.transcriptPath, consts.KindTranscript, filename)
		if err != nil {
			log.Error("failed to store transcript document", slog.String("error", err.Error()))
		} else {
			dl.TranscriptID = id
		}
	}

	if dl.ActaID == "" && dl.TranscriptID == "" {
		return nil
	}

	if removed := u.files.PurgeExpired(ctx); removed > 0 {
		log.Info("opportunistic purge", slog.Int("removed", removed))
	}
	return &dl
}

func (u *usecase) trackFailure(ctx context.Context, req *entity.ProcessRequest, stage string, err error) {
	logger.FromContext(ctx).Error("pipeline aborted",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	u.tracker.Track(ctx, topics.ActaFailed, req.Email, map[string]any{
		"filename": req.Filename,
		"stage":    stage,
		"error":    err.Error(),
	})
}
