package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/delivery"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/services/actas/filestore"
	"github.com/voxcliente/backend/services/actas/storage"
	"github.com/voxcliente/backend/services/actas/validator"
	"github.com/voxcliente/backend/topics"
)

var (
	ErrValidation       = errors.New("invalid request")
	ErrTranscription    = errors.New("transcription failed")
	ErrSummarization    = errors.New("acta generation failed")
	ErrInvalidKind      = errors.New("invalid document kind")
	ErrDocumentNotFound = errors.New("document not found or expired")
	ErrNoPersistence    = errors.New("persistence is not configured")
)

type Usecase interface {
	Validate(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResponse, error)
	Process(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error)
	Download(ctx context.Context, kind consts.Kind, id string) (entity.StoredDocument, error)
	Cleanup(ctx context.Context) (int, entity.StoreStats)
	PurgeAll(ctx context.Context) (int, entity.StoreStats)
	Stats(ctx context.Context) entity.StoreStats
	Meetings(ctx context.Context, email string) ([]*entity.Meeting, error)
}

type (
	Validator interface {
		ValidateEmail(email string) error
		ValidateAudio(filename string, sizeBytes int64) error
	}

	Transcriber interface {
		Transcribe(ctx context.Context, path string) (*entity.Transcript, error)
		Cost(durationSeconds float64) float64
	}

	Summarizer interface {
		Summarize(ctx context.Context, transcript string) (*entity.Summary, error)
	}

	Renderer interface {
		RenderActa(acta entity.Acta, filename, dir string) (string, error)
		RenderTranscript(transcript, filename, dir string) (string, error)
	}

	FileStore interface {
		Save(ctx context.Context, sourcePath string, kind consts.Kind, originalFilename string) (string, error)
		Resolve(ctx context.Context, id string) (entity.StoredDocument, error)
		PurgeExpired(ctx context.Context) int
		PurgeAll(ctx context.Context) int
		Stats(ctx context.Context) entity.StoreStats
	}

	// Mailer reports delivery success only.
	Mailer interface {
		Send(ctx context.Context, msg delivery.Message) bool
	}

	// Tracker records analytics events without blocking or failing.
	Tracker interface {
		Track(ctx context.Context, topic topics.Topic, distinctID string, props map[string]any)
	}
)

type Deps struct {
	Validator   Validator
	Transcriber Transcriber
	Summarizer  Summarizer
	Renderer    Renderer
	Files       FileStore
	Mailer      Mailer
	Tracker     Tracker
	// Storage is optional; nil disables meeting persistence.
	Storage storage.Storage

	ScratchDir   string
	EmailCostUSD float64
	Log          *slog.Logger
}

type usecase struct {
	validator   Validator
	transcriber Transcriber
	summarizer  Summarizer
	renderer    Renderer
	files       FileStore
	mailer      Mailer
	tracker     Tracker
	recorder    *recorder
	storage     storage.Storage

	scratchDir   string
	emailCostUSD float64
	log          *slog.Logger
}

func New(d Deps) Usecase {
	if d.EmailCostUSD < 0 {
		d.EmailCostUSD = 0
	}
	if d.Tracker == nil {
		d.Tracker = nopTracker{}
	}
	return &usecase{
		validator:    d.Validator,
		transcriber:  d.Transcriber,
		summarizer:   d.Summarizer,
		renderer:     d.Renderer,
		files:        d.Files,
		mailer:       d.Mailer,
		tracker:      d.Tracker,
		recorder:     newRecorder(d.Storage, d.Log),
		storage:      d.Storage,
		scratchDir:   d.ScratchDir,
		emailCostUSD: d.EmailCostUSD,
		log:          d.Log,
	}
}

func (u *usecase) Validate(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResponse, error) {
	if err := u.validateInput(req.Email, req.Filename, req.SizeBytes); err != nil {
		return nil, err
	}

	resp := &entity.ValidateResponse{
		Filename:          req.Filename,
		SanitizedFilename: validator.SanitizeFilename(req.Filename),
		SizeBytes:         req.SizeBytes,
		Email:             req.Email,
	}

	if req.ProbePath != "" {
		d, err := validator.ProbeDuration(req.ProbePath, req.Filename)
		switch {
		case err == nil:
			seconds := consts.Round2(d.Seconds())
			cost := u.transcriber.Cost(d.Seconds())
			resp.DurationSeconds = &seconds
			resp.EstimatedCostUSD = &cost
		case errors.Is(err, validator.ErrProbeUnsupported):
		default:
			u.log.Debug("duration probe failed", slog.String("error", err.Error()))
		}
	}

	return resp, nil
}

func (u *usecase) validateInput(email, filename string, size int64) error {
	if err := u.validator.ValidateEmail(email); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := u.validator.ValidateAudio(filename, size); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Download resolves a stored document of the requested kind.
func (u *usecase) Download(ctx context.Context, kind consts.Kind, id string) (entity.StoredDocument, error) {
	if !kind.Valid() {
		return entity.StoredDocument{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	doc, err := u.files.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return entity.StoredDocument{}, ErrDocumentNotFound
		}
		return entity.StoredDocument{}, err
	}
	if doc.Kind != kind {
		u.log.Warn("document kind mismatch",
			slog.String("id", id),
			slog.String("requested", string(kind)),
			slog.String("stored", string(doc.Kind)))
		return entity.StoredDocument{}, ErrDocumentNotFound
	}

	return doc, nil
}

func (u *usecase) Cleanup(ctx context.Context) (int, entity.StoreStats) {
	removed := u.files.PurgeExpired(ctx)
	return removed, u.files.Stats(ctx)
}

// PurgeAll drops every stored document regardless of age.
func (u *usecase) PurgeAll(ctx context.Context) (int, entity.StoreStats) {
	removed := u.files.PurgeAll(ctx)
	u.log.Info("file store purged", slog.Int("removed", removed))
	return removed, u.files.Stats(ctx)
}

func (u *usecase) Stats(ctx context.Context) entity.StoreStats {
	return u.files.Stats(ctx)
}

// Meetings lists the recorded meetings of the user registered under email.
func (u *usecase) Meetings(ctx context.Context, email string) ([]*entity.Meeting, error) {
	if u.storage == nil {
		return nil, ErrNoPersistence
	}
	if err := u.validator.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	user, err := u.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return u.storage.ListMeetingsByUser(ctx, user.ID)
}

// writeScratch copies the upload to a temp file that keeps the declared
// extension. The caller removes it.
func (u *usecase) writeScratch(r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no audio provided")
	}
	ext := filepath.Ext(validator.SanitizeFilename(filename))

	f, err := os.CreateTemp(u.scratchDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}

	return f.Name(), nil
}

type nopTracker struct{}

func (nopTracker) Track(context.Context, topics.Topic, string, map[string]any) {}

func costBreakdown(transcription, summarization, email float64) entity.CostBreakdown {
	return entity.CostBreakdown{
		TranscriptionUSD: transcription,
		SummarizationUSD: summarization,
		EmailUSD:         email,
		TotalUSD:         consts.Round6(transcription + summarization + email),
	}
}

func elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
