package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	applog "cookbook/internal/log"
)

const healthPingTimeout = time.Second

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Health is a readiness handler suitable for infrastructure probes. It pings
// the configured database and answers 503 when the ping fails.
func Health(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "health check requested", "method", r.Method)
	resp := healthResponse{
		Status:   "ok",
		Database: databaseStatus(r.Context()),
		Time:     time.Now().UTC(),
	}

	status := http.StatusOK
	if resp.Database == "unreachable" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		applog.Error(r.Context(), "failed to encode health response", "error", err)
		return
	}
	applog.Debug(r.Context(), "health check responded", "status", resp.Status)
}

func databaseStatus(ctx context.Context) string {
	if database == nil {
		return "unconfigured"
	}
	sqlDB, err := database.DB()
	if err != nil {
		applog.Error(ctx, "health check could not obtain sql db", "error", err)
		return "unreachable"
	}

	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		applog.Error(ctx, "health check database ping failed", "error", err)
		return "unreachable"
	}
	return "ok"
}
