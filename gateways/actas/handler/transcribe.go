package handler

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxcliente/backend/pkg/json"
	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/services/actas/usecase"
	"github.com/voxcliente/backend/services/actas/validator"
)

const maxMemory = 32 << 20

type (
	ValidateFileResponse struct {
		Status string `json:"status"`
		*entity.ValidateResponse
		Message string `json:"message"`
	}

	DownloadLinks struct {
		Acta       string `json:"acta,omitempty"`
		Transcript string `json:"transcript,omitempty"`
	}

	TranscribeResponse struct {
		Status     string               `json:"status"`
		Filename   string               `json:"filename"`
		Email      string               `json:"email"`
		Transcript string               `json:"transcript"`
		Audio      AudioInfo            `json:"audio"`
		Acta       entity.Acta          `json:"acta"`
		Usage      entity.TokenUsage    `json:"usage"`
		Costs      entity.CostBreakdown `json:"costs"`
		EmailSent  bool                 `json:"email_sent"`
		Downloads  *DownloadLinks       `json:"downloads,omitempty"`
		Message    string               `json:"message"`
	}

	AudioInfo struct {
		DurationSeconds float64 `json:"duration_seconds"`
		DurationMinutes float64 `json:"duration_minutes"`
		Confidence      float64 `json:"confidence"`
	}
)

type upload struct {
	file   multipart.File
	header *multipart.FileHeader
	email  string
	client string
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	h.limitBody(w, r)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrValidation, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrValidation, validator.ErrFilenameRequired)
	}

	return &upload{
		file:   file,
		header: header,
		email:  strings.TrimSpace(r.FormValue("email")),
		client: strings.TrimSpace(r.FormValue("client_name")),
	}, nil
}

func (h *Handler) ValidateFile(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer up.file.Close()

	probe, cleanup := h.probeCopy(r, up)
	defer cleanup()

	res, err := h.uc.Validate(r.Context(), &entity.ValidateRequest{
		Filename:  up.header.Filename,
		SizeBytes: up.header.Size,
		Email:     up.email,
		ProbePath: probe,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, ValidateFileResponse{
		Status:           "valid",
		ValidateResponse: res,
		Message:          "Archivo y email válidos",
	})
}

// probeCopy writes the upload to a scratch file for the duration probe.
// Copy failures only disable the probe.
func (h *Handler) probeCopy(r *http.Request, up *upload) (string, func()) {
	noop := func() {}
	ext := filepath.Ext(validator.SanitizeFilename(up.header.Filename))

	f, err := os.CreateTemp(h.cfg.ScratchDir, "probe-*"+ext)
	if err != nil {
		logger.FromContext(r.Context()).Debug("probe disabled", slog.String("error", err.Error()))
		return "", noop
	}
	cleanup := func() { os.Remove(f.Name()) }

	_, err = io.Copy(f, up.file)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.FromContext(r.Context()).Debug("probe disabled", slog.String("error", err.Error()))
		cleanup()
		return "", noop
	}
	return f.Name(), cleanup
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer up.file.Close()

	log.Info("transcription request received",
		slog.String("filename", up.header.Filename),
		slog.Int64("size_bytes", up.header.Size),
		slog.Bool("client_set", up.client != ""))

	res, err := h.uc.Process(r.Context(), &entity.ProcessRequest{
		Audio:      up.file,
		Filename:   up.header.Filename,
		SizeBytes:  up.header.Size,
		Email:      up.email,
		ClientName: up.client,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := TranscribeResponse{
		Status:     "success",
		Filename:   res.Filename,
		Email:      res.Email,
		Transcript: res.Transcript.Text,
		Audio: AudioInfo{
			DurationSeconds: res.Transcript.DurationSeconds,
			DurationMinutes: res.Transcript.DurationMinutes,
			Confidence:      res.Transcript.Confidence,
		},
		Acta:      res.Summary.Acta,
		Usage:     res.Summary.Usage,
		Costs:     res.Costs,
		EmailSent: res.EmailSent,
		Downloads: downloadLinks(res.Downloads),
		Message:   "Transcripción completada y acta enviada por email",
	}
	if !res.EmailSent {
		resp.Message = "Transcripción completada, pero error enviando email"
	}

	log.Info("transcription request completed",
		slog.Bool("email_sent", res.EmailSent),
		slog.Float64("total_cost_usd", res.Costs.TotalUSD))
	json.WriteJSON(w, http.StatusOK, resp)
}

func downloadLinks(d *entity.Downloads) *DownloadLinks {
	if d == nil {
		return nil
	}
	links := &DownloadLinks{}
	if d.ActaID != "" {
		links.Acta = downloadPath(consts.KindActa, d.ActaID)
	}
	if d.TranscriptID != "" {
		links.Transcript = downloadPath(consts.KindTranscript, d.TranscriptID)
	}
	return links
}

func downloadPath(kind consts.Kind, id string) string {
	return "/api/v1/download/" + string(kind) + "/" + id
}
