package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/voxcliente/backend/pkg/json"
	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/usecase"
	"github.com/voxcliente/backend/services/actas/validator"
)

// multipartOverhead is the room left for boundaries and form fields on
// top of the audio size limit.
const multipartOverhead = 1 << 20

// HealthChecker is satisfied by the grpc health server.
type HealthChecker interface {
	Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error)
}

type Config struct {
	AppName        string
	AppVersion     string
	MaxUploadBytes int64
	// ScratchDir holds uploads that are probed by validate-file.
	ScratchDir string
}

type Handler struct {
	uc     usecase.Usecase
	health HealthChecker
	cfg    Config
	log    *slog.Logger
}

func New(uc usecase.Usecase, health HealthChecker, cfg Config, log *slog.Logger) *Handler {
	log.Debug("creating actas handler",
		slog.Int64("max_upload_bytes", cfg.MaxUploadBytes),
		slog.Bool("grpc_health", health != nil))
	return &Handler{
		uc:     uc,
		health: health,
		cfg:    cfg,
		log:    log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/health/grpc", h.GRPCHealth)
	r.Post("/validate-file", h.ValidateFile)
	r.Post("/transcribe", h.Transcribe)
	r.Get("/download/{kind}/{id}", h.Download)
	r.Post("/cleanup-files", h.CleanupFiles)
	r.Get("/file-stats", h.FileStats)
	h.log.Debug("actas routes registered")
}

func (h *Handler) limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartOverhead)
}

// writeError maps domain errors to status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var tooLarge *http.MaxBytesError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusBadRequest
		err = validator.ErrFileTooLarge
	case errors.Is(err, usecase.ErrValidation), errors.Is(err, usecase.ErrInvalidKind):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrDocumentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrNoPersistence):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("error", err.Error()))
	} else {
		log.Warn("request rejected",
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}

	json.WriteError(w, status, err)
}
