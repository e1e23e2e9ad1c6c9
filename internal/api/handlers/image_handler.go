package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"resale-api/internal/services"
)

// ImageEvaluateHandler accepts marketplace screenshots for evaluation.
type ImageEvaluateHandler struct {
	evaluator services.EvaluatorService
}

func NewImageEvaluateHandler(evaluator services.EvaluatorService) *ImageEvaluateHandler {
	return &ImageEvaluateHandler{
		evaluator: evaluator,
	}
}

const maxScreenshotBytes = 10 << 20 // 10 MB

func (h *ImageEvaluateHandler) EvaluateImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxScreenshotBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxScreenshotBytes {
		http.Error(w, "File size exceeds the maximum allowed limit", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := h.evaluator.EvaluateImage(r.Context(), user.ID, data)
	if err != nil {
		writeEvaluationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
