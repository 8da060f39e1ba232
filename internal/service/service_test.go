package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/repository/jsonfile"
	"github.com/utafrali/catalogstore/internal/storage/memory"
	apperrors "github.com/utafrali/catalogstore/pkg/errors"
)

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishProductCreated(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPublisher) PublishProductUpdated(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPublisher) PublishProductDeleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPublisher) PublishProductImageAttached(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, productID, reviewID string) error {
	return m.Called(ctx, productID, reviewID).Error(0)
}

// --- Test Helpers ---

const imagesURL = "http://localhost:3001/productsImgs"

type fixture struct {
	store    *jsonfile.Store
	images   *memory.Storage
	events   *mockPublisher
	products *ProductService
	reviews  *ReviewService
	uploads  *ImageService
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)

	images := memory.New(imagesURL)
	events := new(mockPublisher)
	l := newTestLogger()

	return &fixture{
		store:    store,
		images:   images,
		events:   events,
		products: NewProductService(store.Products, store.Reviews, images, events, l),
		reviews:  NewReviewService(store.Reviews, events, l),
		uploads:  NewImageService(store.Products, images, events, l),
	}
}

// freezeClock pins timeNow to t0 for the rest of the test.
func freezeClock(t *testing.T, t0 time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return t0 }
	t.Cleanup(func() { timeNow = prev })
}

func shoePayload() *domain.ProductPayload {
	return &domain.ProductPayload{
		Name:        "Shoe",
		Description: "d",
		Brand:       "B",
		Category:    "footwear",
		Price:       float64(50),
	}
}

func reviewPayload(productID string, rate float64) *domain.ReviewPayload {
	return &domain.ReviewPayload{
		Comment:   "nice",
		Rate:      rate,
		ProductID: productID,
	}
}

func (f *fixture) seedProduct(t *testing.T, p *domain.ProductPayload) *domain.Product {
	t.Helper()
	f.events.On("PublishProductCreated", mock.Anything, mock.Anything).Return(nil).Once()
	created, err := f.products.CreateProduct(context.Background(), p)
	require.NoError(t, err)
	return created
}

func (f *fixture) seedReview(t *testing.T, productID string, rate float64) *domain.Review {
	t.Helper()
	f.events.On("PublishReviewCreated", mock.Anything, mock.Anything).Return(nil).Once()
	created, err := f.reviews.CreateReview(context.Background(), productID, reviewPayload(productID, rate))
	require.NoError(t, err)
	return created
}

func requireAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	return appErr
}
