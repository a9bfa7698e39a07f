package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/health"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/services/actas/usecase"
	"github.com/voxcliente/backend/services/actas/validator"
)

type fakeUsecase struct {
	processErr error
	emailSent  bool
	audio      string
	client     string

	doc    entity.StoredDocument
	docErr error

	purgedAll bool
}

func (f *fakeUsecase) Validate(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResponse, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("%w: %w", usecase.ErrValidation, validator.ErrEmailRequired)
	}
	if req.ProbePath == "" {
		return nil, errors.New("probe path missing")
	}
	return &entity.ValidateResponse{
		Filename:          req.Filename,
		SanitizedFilename: validator.SanitizeFilename(req.Filename),
		SizeBytes:         req.SizeBytes,
		Email:             req.Email,
	}, nil
}

func (f *fakeUsecase) Process(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
	data, _ := io.ReadAll(req.Audio)
	f.audio = string(data)
	f.client = req.ClientName
	if f.processErr != nil {
		return nil, f.processErr
	}
	return &entity.ProcessResponse{
		Filename:   req.Filename,
		Email:      req.Email,
		Transcript: entity.Transcript{Text: "Speaker A: hola", DurationSeconds: 60, DurationMinutes: 1},
		Summary: entity.Summary{
			Acta:  entity.Acta{Acta: "1. **Intro**"},
			Usage: entity.TokenUsage{TotalTokens: 10},
		},
		Costs:     entity.CostBreakdown{TotalUSD: 0.01},
		EmailSent: f.emailSent,
		Downloads: &entity.Downloads{ActaID: "a-1", TranscriptID: "t-1"},
	}, nil
}

func (f *fakeUsecase) Download(ctx context.Context, kind consts.Kind, id string) (entity.StoredDocument, error) {
	if !kind.Valid() {
		return entity.StoredDocument{}, usecase.ErrInvalidKind
	}
	return f.doc, f.docErr
}

func (f *fakeUsecase) Cleanup(ctx context.Context) (int, entity.StoreStats) {
	return 1, entity.StoreStats{TotalFiles: 2}
}

func (f *fakeUsecase) PurgeAll(ctx context.Context) (int, entity.StoreStats) {
	f.purgedAll = true
	return 3, entity.StoreStats{}
}

func (f *fakeUsecase) Stats(ctx context.Context) entity.StoreStats {
	return entity.StoreStats{TotalFiles: 4, TTLHours: 1}
}

func (f *fakeUsecase) Meetings(ctx context.Context, email string) ([]*entity.Meeting, error) {
	return nil, usecase.ErrNoPersistence
}

func newRouter(t *testing.T, uc usecase.Usecase) http.Handler {
	t.Helper()
	h := New(uc, health.NewServer(), Config{
		AppName:        "VoxCliente",
		AppVersion:     "test",
		MaxUploadBytes: 1 << 20,
		ScratchDir:     t.TempDir(),
	}, logger.Discard())

	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := newRouter(t, &fakeUsecase{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode(t, rec)
	if got["status"] != "healthy" || got["app"] != "VoxCliente" || got["grpc"] != "SERVING" {
		t.Errorf("body = %v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/grpc", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "SERVING" {
		t.Errorf("grpc health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fields     map[string]string
		filename   string
		wantStatus int
	}{
		{"valid", map[string]string{"email": "ana@example.com"}, "reunión 1.mp3", http.StatusOK},
		{"missing email", nil, "a.mp3", http.StatusBadRequest},
		{"missing file", map[string]string{"email": "ana@example.com"}, "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, &fakeUsecase{})
			body, ct := multipartBody(t, tt.fields, tt.filename, "audio")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-file", body)
			req.Header.Set("Content-Type", ct)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			got := decode(t, rec)
			if tt.wantStatus == http.StatusOK {
				if got["status"] != "valid" || got["sanitized_filename"] != validator.SanitizeFilename(tt.filename) {
					t.Errorf("body = %v", got)
				}
			} else if got["error"] == nil {
				t.Errorf("error body = %v", got)
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	uc := &fakeUsecase{emailSent: true}
	r := newRouter(t, uc)

	body, ct := multipartBody(t, map[string]string{"email": "ana@example.com", "client_name": " ACME "}, "reunion.mp3", "audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if uc.audio != "audio-bytes" || uc.client != "ACME" {
		t.Errorf("usecase got audio %q client %q", uc.audio, uc.client)
	}

	var got TranscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "success" || !got.EmailSent || got.Transcript != "Speaker A: hola" {
		t.Errorf("response = %+v", got)
	}
	if got.Downloads == nil || got.Downloads.Acta != "/api/v1/download/acta/a-1" || got.Downloads.Transcript != "/api/v1/download/transcript/t-1" {
		t.Errorf("downloads = %+v", got.Downloads)
	}
	if got.Message != "Transcripción completada y acta enviada por email" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestTranscribeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: %w", usecase.ErrValidation, validator.ErrFileTooLarge), http.StatusBadRequest},
		{"transcription", fmt.Errorf("%w: provider status error", usecase.ErrTranscription), http.StatusInternalServerError},
		{"summarization", usecase.ErrSummarization, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, &fakeUsecase{processErr: tt.err})
			body, ct := multipartBody(t, map[string]string{"email": "ana@example.com"}, "a.mp3", "x")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
			req.Header.Set("Content-Type", ct)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if msg, _ := decode(t, rec)["error"].(string); msg != tt.err.Error() {
				t.Errorf("error = %q, want %q", msg, tt.err.Error())
			}
		})
	}
}

func TestTranscribeTooLarge(t *testing.T) {
	t.Parallel()

	r := newRouter(t, &fakeUsecase{})
	body, ct := multipartBody(t, map[string]string{"email": "ana@example.com"}, "a.mp3", strings.Repeat("x", 3<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.docx")
	if err := os.WriteFile(path, []byte("docx-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		url        string
		uc         *fakeUsecase
		wantStatus int
	}{
		{
			name: "ok",
			url:  "/api/v1/download/acta/a-1",
			uc: &fakeUsecase{doc: entity.StoredDocument{
				ID: "a-1", Path: path, Kind: consts.KindActa, OriginalFilename: "reunion.mp3", CreatedAt: time.Now(),
			}},
			wantStatus: http.StatusOK,
		},
		{"not found", "/api/v1/download/acta/missing", &fakeUsecase{docErr: usecase.ErrDocumentNotFound}, http.StatusNotFound},
		{"invalid kind", "/api/v1/download/audio/a-1", &fakeUsecase{}, http.StatusBadRequest},
		{
			name:       "file vanished",
			url:        "/api/v1/download/acta/a-2",
			uc:         &fakeUsecase{doc: entity.StoredDocument{ID: "a-2", Path: filepath.Join(t.TempDir(), "gone.docx"), Kind: consts.KindActa}},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(t, tt.uc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Acta_Reunion_reunion_mp3.docx"` {
				t.Errorf("Content-Disposition = %q", got)
			}
			if got := rec.Header().Get("Content-Type"); got != consts.DocxMIMEType {
				t.Errorf("Content-Type = %q", got)
			}
			if rec.Body.String() != "docx-bytes" {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestCleanupFiles(t *testing.T) {
	t.Parallel()

	uc := &fakeUsecase{}
	r := newRouter(t, uc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cleanup-files", nil))
	if got := decode(t, rec); got["removed"] != float64(1) || uc.purgedAll {
		t.Errorf("cleanup = %v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cleanup-files?all=true", nil))
	if got := decode(t, rec); got["removed"] != float64(3) || !uc.purgedAll {
		t.Errorf("purge all = %v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/file-stats", nil))
	if got := decode(t, rec); got["total_files"] != float64(4) {
		t.Errorf("stats = %v", got)
	}
}
