package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/service"
	"github.com/utafrali/catalogstore/pkg/httputil"
	"github.com/utafrali/catalogstore/pkg/validator"
)

// ReviewHandler serves the reviews nested under a product.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateReview handles POST /products/{id}/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var payload domain.ReviewPayload
	if err := validator.Decode(r, &payload); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.CreateReview(r.Context(), chi.URLParam(r, "id"), &payload)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, createdResponse{
		ID:      review.ID,
		Message: fmt.Sprintf("Review with id %s was created successfully", review.ID),
	})
}

// ListReviews handles GET /products/{id}/reviews.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, reviews)
}

// GetReview handles GET /products/{id}/reviews/{reviewId}.
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.GetReview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reviewId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// UpdateReview handles PUT /products/{id}/reviews/{reviewId}.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var payload domain.ReviewPayload
	if err := validator.Decode(r, &payload); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.UpdateReview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reviewId"), &payload)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /products/{id}/reviews/{reviewId}.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reviewId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
