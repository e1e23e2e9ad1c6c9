package handlers

import (
	"encoding/json"
	"net/http"

	"resale-api/internal/services"
)

// ProfileHandler serves the caller's own profile and usage stats.
type ProfileHandler struct {
	usageService services.UsageService
	authService  services.AuthService
}

func NewProfileHandler(usageService services.UsageService, authService services.AuthService) *ProfileHandler {
	return &ProfileHandler{
		usageService: usageService,
		authService:  authService,
	}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := services.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func (h *ProfileHandler) GetCurrentUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Re-read the profile so the counters reflect evaluations made after the
	// token was verified
	profile, err := h.authService.GetProfile(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Error fetching profile", http.StatusInternalServerError)
		return
	}

	stats := h.usageService.CurrentUsage(profile)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
