package repository

import (
	"context"

	"github.com/utafrali/catalogstore/internal/domain"
)

// MutateFunc receives the current collection and returns its replacement.
// Returning an error aborts the mutation and leaves the stored collection
// untouched.
type MutateFunc[T any] func(items []T) ([]T, error)

// ProductRepository gives whole-collection access to the stored products.
type ProductRepository interface {
	// Load returns the full collection in stored order.
	Load(ctx context.Context) ([]domain.Product, error)

	// Save overwrites the full collection.
	Save(ctx context.Context, products []domain.Product) error

	// Mutate loads, transforms and saves the collection while holding the
	// collection's write lock, so concurrent mutations never lose an update.
	Mutate(ctx context.Context, fn MutateFunc[domain.Product]) error
}

// ReviewRepository gives whole-collection access to the stored reviews.
type ReviewRepository interface {
	Load(ctx context.Context) ([]domain.Review, error)
	Save(ctx context.Context, reviews []domain.Review) error
	Mutate(ctx context.Context, fn MutateFunc[domain.Review]) error
}
