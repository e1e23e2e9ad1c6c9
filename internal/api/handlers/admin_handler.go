package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"resale-api/internal/logger"
	"resale-api/internal/services"
)

// AdminHandler exposes maintenance operations for external schedulers and
// operators. Guarded by the admin token middleware.
type AdminHandler struct {
	usageService      services.UsageService
	requestLogService services.RequestLogService
}

func NewAdminHandler(usageService services.UsageService, requestLogService services.RequestLogService) *AdminHandler {
	return &AdminHandler{
		usageService:      usageService,
		requestLogService: requestLogService,
	}
}

type resetResponse struct {
	ProfilesReset int64 `json:"profiles_reset"`
}

// ResetMonthlyUsage zeroes evaluations_this_month across all profiles.
// Intended to be called by a cron at the start of each month.
func (h *AdminHandler) ResetMonthlyUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	affected, err := h.usageService.ResetMonthlyCounters(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Logger.WithField("profiles", affected).Info("Monthly evaluation counters reset")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resetResponse{ProfilesReset: affected})
}

func (h *AdminHandler) ListRecentRequests(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.requestLogService.GetRecent(limit)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
