package handler

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voxcliente/backend/pkg/json"
	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/delivery"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/services/actas/usecase"
)

var dispositionName = strings.NewReplacer(`"`, "", `\`, "", "\r", "", "\n", "")

type CleanupResponse struct {
	Removed int               `json:"removed"`
	Stats   entity.StoreStats `json:"stats"`
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	kind := consts.Kind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	doc, err := h.uc.Download(r.Context(), kind, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		// Purged between resolve and open.
		h.writeError(w, r, usecase.ErrDocumentNotFound)
		return
	}
	defer f.Close()

	name := delivery.AttachmentName(doc.Kind, doc.OriginalFilename)
	w.Header().Set("Content-Type", consts.DocxMIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+dispositionName.Replace(name)+`"`)

	logger.FromContext(r.Context()).Info("serving document",
		slog.String("id", doc.ID),
		slog.String("kind", string(doc.Kind)))
	http.ServeContent(w, r, name, doc.CreatedAt, f)
}

// CleanupFiles purges expired documents, or every document with ?all=true.
func (h *Handler) CleanupFiles(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	var resp CleanupResponse
	if all {
		resp.Removed, resp.Stats = h.uc.PurgeAll(r.Context())
	} else {
		resp.Removed, resp.Stats = h.uc.Cleanup(r.Context())
	}

	logger.FromContext(r.Context()).Info("file cleanup completed",
		slog.Bool("all", all),
		slog.Int("removed", resp.Removed))
	json.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) FileStats(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, h.uc.Stats(r.Context()))
}
