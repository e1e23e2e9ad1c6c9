package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apierrors "resale-api/internal/pkg/errors"
	"resale-api/internal/services"
)

// EvaluateHandler serves text evaluations and the evaluation history.
type EvaluateHandler struct {
	evaluator services.EvaluatorService
}

func NewEvaluateHandler(evaluator services.EvaluatorService) *EvaluateHandler {
	return &EvaluateHandler{
		evaluator: evaluator,
	}
}

type evaluateRequest struct {
	Product     string `json:"product"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url,omitempty"`
}

type listEvaluationsResponse struct {
	Evaluations interface{} `json:"evaluations"`
	Total       int64       `json:"total"`
	Limit       int         `json:"limit"`
	Offset      int         `json:"offset"`
}

func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.evaluator.EvaluateText(r.Context(), user.ID, services.DealInput{
		Product:     req.Product,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
		URL:         req.URL,
	})
	if err != nil {
		writeEvaluationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *EvaluateHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	evaluation, err := h.evaluator.GetEvaluation(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, apierrors.ErrNotFound) {
			http.Error(w, "Evaluation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(evaluation)
}

func (h *EvaluateHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	evaluations, total, err := h.evaluator.ListEvaluations(r.Context(), user.ID, limit, offset)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listEvaluationsResponse{
		Evaluations: evaluations,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

func writeEvaluationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apierrors.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, apierrors.ErrQuotaExceeded):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
