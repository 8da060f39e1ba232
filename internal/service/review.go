package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/event"
	"github.com/utafrali/catalogstore/internal/repository"
	apperrors "github.com/utafrali/catalogstore/pkg/errors"
	"github.com/utafrali/catalogstore/pkg/logger"
	"github.com/utafrali/catalogstore/pkg/validator"
)

// ReviewNotFoundMessage is returned when no review matches both ids.
const ReviewNotFoundMessage = "Request could not be performed because of incorrect reviewId or productId"

// ReviewService implements the business logic for reviews nested under a
// product.
type ReviewService struct {
	reviews repository.ReviewRepository
	events  event.Publisher
	logger  *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(reviews repository.ReviewRepository, events event.Publisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		events:  events,
		logger:  logger,
	}
}

// CreateReview validates the payload and appends a review for productID.
// The body's productId must equal productID; the product itself is not
// looked up.
func (s *ReviewService) CreateReview(ctx context.Context, productID string, payload *domain.ReviewPayload) (*domain.Review, error) {
	if err := validator.Validate(payload); err != nil {
		return nil, apperrors.Validation(domain.ReviewValidationMessage, err)
	}
	if bodyID := payload.ProductIDValue(); bodyID != productID {
		return nil, apperrors.NotFound(fmt.Sprintf("Product with id %s was not found", bodyID))
	}

	now := timeNow().UTC()
	review := domain.Review{
		ID:        newID(),
		ProductID: productID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	payload.ApplyTo(&review)

	err := s.reviews.Mutate(ctx, func(reviews []domain.Review) ([]domain.Review, error) {
		return append(reviews, review), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Float64("rate", review.Rate),
	)

	if err := s.events.PublishReviewCreated(ctx, &review); err != nil {
		publishFailed(ctx, s.logger, event.TopicReviewCreated, err)
	}

	return &review, nil
}

// ListReviews returns the reviews of productID in stored order. No match is
// an empty slice.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	reviews, err := s.reviews.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return domain.ReviewsFor(productID, reviews), nil
}

// GetReview returns the review matching both ids.
func (s *ReviewService) GetReview(ctx context.Context, productID, reviewID string) (*domain.Review, error) {
	reviews, err := s.reviews.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	i := indexOfReview(reviews, productID, reviewID)
	if i < 0 {
		return nil, apperrors.NotFound(ReviewNotFoundMessage)
	}
	return &reviews[i], nil
}

// UpdateReview merges comment and rate over the review matching both ids.
// A body productId naming another product is treated as a missing review.
func (s *ReviewService) UpdateReview(ctx context.Context, productID, reviewID string, payload *domain.ReviewPayload) (*domain.Review, error) {
	if err := validator.Validate(payload); err != nil {
		return nil, apperrors.Validation(domain.ReviewValidationMessage, err)
	}
	if payload.ProductIDValue() != productID {
		return nil, apperrors.NotFound(ReviewNotFoundMessage)
	}

	var updated domain.Review
	err := s.reviews.Mutate(ctx, func(reviews []domain.Review) ([]domain.Review, error) {
		i := indexOfReview(reviews, productID, reviewID)
		if i < 0 {
			return nil, apperrors.NotFound(ReviewNotFoundMessage)
		}
		payload.ApplyTo(&reviews[i])
		reviews[i].UpdatedAt = nextTimestamp(reviews[i].UpdatedAt)
		updated = reviews[i]
		return reviews, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "review updated",
		slog.String("review_id", reviewID),
		slog.String("product_id", productID),
	)

	if err := s.events.PublishReviewUpdated(ctx, &updated); err != nil {
		publishFailed(ctx, s.logger, event.TopicReviewUpdated, err)
	}

	return &updated, nil
}

// DeleteReview removes the review matching both ids. Every other review,
// including those of other products, is kept.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID string) error {
	err := s.reviews.Mutate(ctx, func(reviews []domain.Review) ([]domain.Review, error) {
		i := indexOfReview(reviews, productID, reviewID)
		if i < 0 {
			return nil, apperrors.NotFound(ReviewNotFoundMessage)
		}
		return append(reviews[:i], reviews[i+1:]...), nil
	})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", productID),
	)

	if err := s.events.PublishReviewDeleted(ctx, productID, reviewID); err != nil {
		publishFailed(ctx, s.logger, event.TopicReviewDeleted, err)
	}
	return nil
}

func indexOfReview(reviews []domain.Review, productID, reviewID string) int {
	for i, r := range reviews {
		if r.ProductID == productID && r.ID == reviewID {
			return i
		}
	}
	return -1
}
