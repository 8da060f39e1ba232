package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/event"
	"github.com/utafrali/catalogstore/internal/repository"
	"github.com/utafrali/catalogstore/internal/storage"
	apperrors "github.com/utafrali/catalogstore/pkg/errors"
	"github.com/utafrali/catalogstore/pkg/logger"
	"github.com/utafrali/catalogstore/pkg/validator"
)

// ProductNotFoundMessage names a missing product.
func ProductNotFoundMessage(id string) string {
	return fmt.Sprintf("Product with id %s could not be found", id)
}

// ProductService implements the business logic for product operations.
type ProductService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	images   storage.Storage
	events   event.Publisher
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	products repository.ProductRepository,
	reviews repository.ReviewRepository,
	images storage.Storage,
	events event.Publisher,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		reviews:  reviews,
		images:   images,
		events:   events,
		logger:   logger,
	}
}

// CreateProduct validates the payload and appends a new product with a
// fresh id.
func (s *ProductService) CreateProduct(ctx context.Context, payload *domain.ProductPayload) (*domain.Product, error) {
	if err := validator.Validate(payload); err != nil {
		return nil, apperrors.Validation(domain.ProductValidationMessage, err)
	}

	now := timeNow().UTC()
	product := domain.Product{
		ID:        newID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	payload.ApplyTo(&product)

	err := s.products.Mutate(ctx, func(products []domain.Product) ([]domain.Product, error) {
		return append(products, product), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("category", product.Category),
	)

	if err := s.events.PublishProductCreated(ctx, &product); err != nil {
		publishFailed(ctx, s.logger, event.TopicProductCreated, err)
	}

	return &product, nil
}

// ListProducts returns every product with its reviews attached, in stored
// order. A non-empty category keeps only exact matches.
func (s *ProductService) ListProducts(ctx context.Context, category string) ([]domain.ProductWithReviews, error) {
	products, err := s.products.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	reviews, err := s.reviews.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	out := make([]domain.ProductWithReviews, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p.WithReviews(reviews))
	}
	return out, nil
}

// GetProduct returns one product with its reviews.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.ProductWithReviews, error) {
	products, err := s.products.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	i := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return nil, apperrors.NotFound(ProductNotFoundMessage(id))
	}

	reviews, err := s.reviews.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("get product reviews: %w", err)
	}

	view := products[i].WithReviews(reviews)
	return &view, nil
}

// UpdateProduct validates the payload and merges it over the stored product.
// Fields outside the payload, id and createdAt included, are preserved.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, payload *domain.ProductPayload) (*domain.Product, error) {
	if err := validator.Validate(payload); err != nil {
		return nil, apperrors.Validation(domain.ProductValidationMessage, err)
	}

	var updated domain.Product
	err := s.products.Mutate(ctx, func(products []domain.Product) ([]domain.Product, error) {
		i := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
		if i < 0 {
			return nil, apperrors.NotFound(ProductNotFoundMessage(id))
		}
		payload.ApplyTo(&products[i])
		products[i].UpdatedAt = nextTimestamp(products[i].UpdatedAt)
		updated = products[i]
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "product updated",
		slog.String("product_id", id),
	)

	if err := s.events.PublishProductUpdated(ctx, &updated); err != nil {
		publishFailed(ctx, s.logger, event.TopicProductUpdated, err)
	}

	return &updated, nil
}

// DeleteProduct removes the product and, best effort, its stored image.
// Reviews of the product are kept.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	var removed domain.Product
	err := s.products.Mutate(ctx, func(products []domain.Product) ([]domain.Product, error) {
		kept := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if p.ID == id {
				removed = p
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == len(products) {
			return nil, apperrors.NotFound(ProductNotFoundMessage(id))
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	log := logger.WithContext(ctx, s.logger)
	log.InfoContext(ctx, "product deleted", slog.String("product_id", id))

	if key, ok := imageKey(removed); ok {
		if err := s.images.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.WarnContext(ctx, "failed to delete product image",
				slog.String("product_id", id),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.events.PublishProductDeleted(ctx, id); err != nil {
		publishFailed(ctx, s.logger, event.TopicProductDeleted, err)
	}
	return nil
}

// imageKey returns the storage key of an image this service stored for p.
// URLs set by clients that do not follow the <id><ext> naming are ignored.
func imageKey(p domain.Product) (string, bool) {
	if p.ImageURL == "" {
		return "", false
	}
	key := path.Base(p.ImageURL)
	if key != p.ID+path.Ext(key) {
		return "", false
	}
	return key, true
}
