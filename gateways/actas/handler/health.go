package handler

import (
	"log/slog"
	"net/http"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/voxcliente/backend/pkg/json"
)

type HealthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
	GRPC    string `json:"grpc,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		App:     h.cfg.AppName,
		Version: h.cfg.AppVersion,
	}
	if h.health != nil {
		if res, err := h.health.Check(r.Context(), &healthpb.HealthCheckRequest{}); err == nil {
			resp.GRPC = res.GetStatus().String()
		} else {
			resp.GRPC = healthpb.HealthCheckResponse_UNKNOWN.String()
		}
	}
	json.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GRPCHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		json.WriteProtoJSON(w, http.StatusServiceUnavailable, &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_SERVICE_UNKNOWN,
		})
		return
	}

	res, err := h.health.Check(r.Context(), &healthpb.HealthCheckRequest{Service: r.URL.Query().Get("service")})
	if err != nil {
		h.log.Warn("grpc health check failed", slog.String("error", err.Error()))
		json.WriteProtoJSON(w, http.StatusServiceUnavailable, &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_SERVICE_UNKNOWN,
		})
		return
	}

	status := http.StatusOK
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		status = http.StatusServiceUnavailable
	}
	if err := json.WriteProtoJSON(w, status, res); err != nil {
		h.log.Error("failed to write health response", slog.String("error", err.Error()))
	}
}
