package actas

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	config "github.com/voxcliente/backend/config/actas"
	"github.com/voxcliente/backend/gateways/actas/clients/assemblyai"
	"github.com/voxcliente/backend/gateways/actas/clients/gemini"
	"github.com/voxcliente/backend/gateways/actas/clients/openai"
	"github.com/voxcliente/backend/gateways/actas/clients/posthog"
	"github.com/voxcliente/backend/gateways/actas/clients/resend"
	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/analytics"
	"github.com/voxcliente/backend/services/actas/delivery"
	"github.com/voxcliente/backend/services/actas/document"
	"github.com/voxcliente/backend/services/actas/filestore"
	"github.com/voxcliente/backend/services/actas/storage"
	"github.com/voxcliente/backend/services/actas/summarization"
	"github.com/voxcliente/backend/services/actas/templates"
	"github.com/voxcliente/backend/services/actas/transcription"
	"github.com/voxcliente/backend/services/actas/usecase"
	"github.com/voxcliente/backend/services/actas/validator"
)

// Deps holds every component built from the configuration. The gateway
// and actasctl share it.
type Deps struct {
	Usecase   usecase.Usecase
	Templates *templates.Store
	Tracker   *analytics.Tracker
	Files     *filestore.Store
	// DB is nil when DATABASE_URL is empty.
	DB *sql.DB
}

func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Deps, error) {
	log.Info("building pipeline dependencies")
	dumper := logger.NewDumper(cfg.LogDir, cfg.Debug)

	files, err := filestore.New(cfg.Files.Dir, cfg.Files.TTL, log.With(slog.String("component", "filestore")))
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}

	tmpl, err := templates.New(cfg.Templates.PromptFile, cfg.Templates.EmailTemplateFile, log.With(slog.String("component", "templates")))
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	vocabulary, err := config.LoadVocabulary(cfg.Templates.VocabularyFile)
	if err != nil {
		return nil, err
	}
	spelling := make([]transcription.Spelling, 0, len(vocabulary))
	for _, v := range vocabulary {
		spelling = append(spelling, transcription.Spelling{From: v.From, To: v.To})
	}
	log.Debug("vocabulary loaded", slog.Int("entries", len(spelling)))

	asr := assemblyai.New(assemblyai.Config{
		APIKey:       cfg.AssemblyAI.APIKey,
		BaseURL:      cfg.AssemblyAI.BaseURL,
		Timeout:      cfg.AssemblyAI.Timeout,
		PollInterval: cfg.AssemblyAI.PollInterval,
	}, dumper, log)

	llm, err := summarizationProvider(ctx, cfg, dumper, log)
	if err != nil {
		return nil, err
	}

	mailer := delivery.New(
		resend.New(resend.Config{
			APIKey:  cfg.Resend.APIKey,
			BaseURL: cfg.Resend.BaseURL,
			Timeout: cfg.Resend.Timeout,
		}, log),
		tmpl,
		delivery.Config{
			FromEmail: cfg.Resend.FromEmail,
			FromName:  cfg.Resend.FromName,
			ReplyTo:   cfg.Resend.ReplyTo,
		},
		log.With(slog.String("component", "delivery")),
	)

	var capturer analytics.Capturer
	if cfg.PostHog.APIKey != "" {
		capturer = posthog.New(posthog.Config{
			APIKey:  cfg.PostHog.APIKey,
			Host:    cfg.PostHog.Host,
			Timeout: cfg.PostHog.Timeout,
		}, log)
	} else {
		log.Info("analytics disabled, POSTHOG_API_KEY is not set")
	}
	tracker := analytics.New(capturer, cfg.PostHog.Timeout, log.With(slog.String("component", "analytics")))

	var (
		db    *sql.DB
		store storage.Storage
	)
	if cfg.DatabaseURL != "" {
		db, err = storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = storage.New(db)
		log.Info("meeting persistence enabled")
	}

	uc := usecase.New(usecase.Deps{
		Validator: validator.New(validator.Config{
			MaxFileSizeMB:  cfg.Upload.MaxFileSizeMB,
			EnforceFormats: cfg.Upload.EnforceAudioFormats,
			AllowedFormats: cfg.Upload.AllowedAudioFormats,
		}),
		Transcriber: transcription.New(asr, cfg.AssemblyAI.RatePerMinute, spelling, log.With(slog.String("component", "transcription"))),
		Summarizer: summarization.New(llm, tmpl, summarization.Rates{
			InputPer1K:  cfg.Summarization.InputRatePer1K,
			OutputPer1K: cfg.Summarization.OutputRatePer1K,
		}, log.With(slog.String("component", "summarization"))),
		Renderer:     document.New(log.With(slog.String("component", "document"))),
		Files:        files,
		Mailer:       mailer,
		Tracker:      tracker,
		Storage:      store,
		ScratchDir:   cfg.Upload.ScratchDir,
		EmailCostUSD: cfg.Resend.CostUSD,
		Log:          log.With(slog.String("component", "usecase")),
	})

	log.Info("pipeline dependencies built",
		slog.String("summarization_provider", cfg.Summarization.Provider),
		slog.Bool("persistence", db != nil),
		slog.Bool("analytics", capturer != nil))

	return &Deps{
		Usecase:   uc,
		Templates: tmpl,
		Tracker:   tracker,
		Files:     files,
		DB:        db,
	}, nil
}

func summarizationProvider(ctx context.Context, cfg *config.Config, dumper *logger.Dumper, log *slog.Logger) (summarization.Provider, error) {
	switch cfg.Summarization.Provider {
	case "gemini":
		c, err := gemini.New(ctx, gemini.Config{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		}, dumper, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return c, nil
	default:
		return openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		}, dumper, log), nil
	}
}

// Close waits for pending analytics and releases the database.
func (d *Deps) Close(ctx context.Context) error {
	d.Tracker.Wait(ctx)
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
