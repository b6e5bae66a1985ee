package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/runbooks/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Service identity reported by the health endpoints.
const (
	ServiceName = "decision-first-runbooks-api"
	Version     = "1.0.0"
	RootMessage = "Decision First Runbooks API is running!"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB  Pinger
	Log *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client and logger.
func NewHandler(db Pinger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

// Service handles GET /health.
//
// On success: 200 and
//
//	{ "ok":true, "data":{"status":"healthy","service":"decision-first-runbooks-api","version":"1.0.0","database":"connected"} }
//
// On DB failure: 503 and
//
//	{ "ok":false, "data":{"status":"unhealthy","database":"disconnected",...}, "error":"…" }
func (h *Handler) Service(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, map[string]string{"service": ServiceName, "version": Version})
}

// API handles GET /api/health. Same check as Service, reporting api_version.
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, map[string]string{"api_version": Version})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, data map[string]string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		data["status"] = "unhealthy"
		data["database"] = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, envelope{OK: false, Data: data, Error: err.Error()})
		return
	}

	data["status"] = "healthy"
	data["database"] = "connected"
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
