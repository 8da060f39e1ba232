package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/storage"
	apperrors "github.com/utafrali/catalogstore/pkg/errors"
)

// --- CreateProduct ---

func TestCreateProduct_AssignsIDAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeClock(t, t0)

	f.events.On("PublishProductCreated", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.Name == "Shoe"
	})).Return(nil).Once()

	created, err := f.products.CreateProduct(ctx, shoePayload())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(50), created.Price)
	assert.Equal(t, t0, created.CreatedAt)
	assert.Equal(t, t0, created.UpdatedAt)

	stored, err := f.store.Products.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *created, stored[0])
	f.events.AssertExpectations(t)
}

func TestCreateProduct_IDsAreUnique(t *testing.T) {
	f := newFixture(t)
	a := f.seedProduct(t, shoePayload())
	b := f.seedProduct(t, shoePayload())

	assert.NotEqual(t, a.ID, b.ID)
	stored, err := f.store.Products.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCreateProduct_ValidationListsEveryField(t *testing.T) {
	f := newFixture(t)

	_, err := f.products.CreateProduct(context.Background(), &domain.ProductPayload{})
	appErr := requireAppError(t, err, "VALIDATION_ERROR")

	assert.Equal(t, domain.ProductValidationMessage, appErr.Message)
	fields := make([]string, 0, len(appErr.Fields))
	for _, fe := range appErr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"name", "description", "brand", "price", "category"}, fields)
	assert.Equal(t, "Price of the product is required and must be a number", appErr.Fields[3].Message)

	stored, err := f.store.Products.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
	f.events.AssertNotCalled(t, "PublishProductCreated", mock.Anything, mock.Anything)
}

func TestCreateProduct_RejectsWrongTypes(t *testing.T) {
	f := newFixture(t)
	p := shoePayload()
	p.Price = "fifty"
	p.Name = ""

	_, err := f.products.CreateProduct(context.Background(), p)
	appErr := requireAppError(t, err, "VALIDATION_ERROR")
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "name", appErr.Fields[0].Field)
	assert.Equal(t, "price", appErr.Fields[1].Field)
	assert.Equal(t, "fifty", appErr.Fields[1].Value)
}

func TestCreateProduct_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.events.On("PublishProductCreated", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	created, err := f.products.CreateProduct(context.Background(), shoePayload())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestCreateProduct_MalformedDocumentIsStorageError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.store.Products.Path(), []byte("{not json"), 0o644))

	_, err := f.products.CreateProduct(context.Background(), shoePayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

// --- ListProducts / GetProduct ---

func TestListProducts_AttachesReviewsInOrder(t *testing.T) {
	f := newFixture(t)
	shoe := f.seedProduct(t, shoePayload())

	hat := shoePayload()
	hat.Name = "Hat"
	hat.Category = "headwear"
	hatP := f.seedProduct(t, hat)

	r1 := f.seedReview(t, shoe.ID, 4)
	f.seedReview(t, hatP.ID, 2)
	r3 := f.seedReview(t, shoe.ID, 5)

	all, err := f.products.ListProducts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, shoe.ID, all[0].ID)
	assert.Equal(t, hatP.ID, all[1].ID)
	require.Len(t, all[0].Reviews, 2)
	assert.Equal(t, r1.ID, all[0].Reviews[0].ID)
	assert.Equal(t, r3.ID, all[0].Reviews[1].ID)
	assert.Len(t, all[1].Reviews, 1)
}

func TestListProducts_CategoryIsExactMatch(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, shoePayload())
	other := shoePayload()
	other.Category = "Footwear"
	f.seedProduct(t, other)

	got, err := f.products.ListProducts(context.Background(), "footwear")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "footwear", got[0].Category)

	none, err := f.products.ListProducts(context.Background(), "garden")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetProduct_RoundTripWithEmptyReviews(t *testing.T) {
	f := newFixture(t)
	created := f.seedProduct(t, shoePayload())

	got, err := f.products.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, got.Product)
	assert.NotNil(t, got.Reviews)
	assert.Empty(t, got.Reviews)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.products.GetProduct(context.Background(), "nope")
	appErr := requireAppError(t, err, "NOT_FOUND")
	assert.Equal(t, "Product with id nope could not be found", appErr.Message)
}

// --- UpdateProduct ---

func TestUpdateProduct_MergesAndPreserves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeClock(t, t0)
	created := f.seedProduct(t, shoePayload())

	// Attach an image so a field outside the payload exists.
	require.NoError(t, f.store.Products.Mutate(ctx, func(ps []domain.Product) ([]domain.Product, error) {
		ps[0].ImageURL = imagesURL + "/" + created.ID + ".png"
		return ps, nil
	}))

	f.events.On("PublishProductUpdated", mock.Anything, mock.Anything).Return(nil).Once()
	update := shoePayload()
	update.Name = "Runner"
	update.Price = float64(75)

	updated, err := f.products.UpdateProduct(ctx, created.ID, update)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Runner", updated.Name)
	assert.Equal(t, int64(75), updated.Price)
	assert.Equal(t, "footwear", updated.Category)
	assert.Equal(t, imagesURL+"/"+created.ID+".png", updated.ImageURL)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt must strictly increase on a frozen clock")

	got, err := f.products.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *updated, got.Product)
	f.events.AssertExpectations(t)
}

func TestUpdateProduct_NotFoundWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, shoePayload())
	before, err := os.ReadFile(f.store.Products.Path())
	require.NoError(t, err)

	_, err = f.products.UpdateProduct(context.Background(), "missing", shoePayload())
	appErr := requireAppError(t, err, "NOT_FOUND")
	assert.Equal(t, "Product with id missing could not be found", appErr.Message)

	after, err := os.ReadFile(f.store.Products.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	f.events.AssertNotCalled(t, "PublishProductUpdated", mock.Anything, mock.Anything)
}

func TestUpdateProduct_ValidatesFullPayload(t *testing.T) {
	f := newFixture(t)
	created := f.seedProduct(t, shoePayload())

	_, err := f.products.UpdateProduct(context.Background(), created.ID, &domain.ProductPayload{Name: "Only name"})
	appErr := requireAppError(t, err, "VALIDATION_ERROR")
	assert.Len(t, appErr.Fields, 4)
}

func TestUpdateProduct_ConcurrentUpdatesAreNotLost(t *testing.T) {
	f := newFixture(t)
	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.seedProduct(t, shoePayload()).ID
	}
	f.events.On("PublishProductUpdated", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			p := shoePayload()
			p.Name = fmt.Sprintf("name-%d", i)
			_, err := f.products.UpdateProduct(context.Background(), id, p)
			assert.NoError(t, err)
		}(i, id)
	}
	wg.Wait()

	all, err := f.products.ListProducts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, p := range all {
		assert.Equal(t, fmt.Sprintf("name-%d", i), p.Name)
	}
}

// --- DeleteProduct ---

func TestDeleteProduct_RemovesRecordAndImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.seedProduct(t, shoePayload())
	gone := f.seedProduct(t, shoePayload())

	f.events.On("PublishProductImageAttached", mock.Anything, mock.Anything).Return(nil).Once()
	_, err := f.uploads.AttachImage(ctx, &AttachImageInput{
		ProductID: gone.ID, FileName: "photo.png", Data: pngReader(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.images.Len())

	f.events.On("PublishProductDeleted", mock.Anything, gone.ID).Return(nil).Once()
	require.NoError(t, f.products.DeleteProduct(ctx, gone.ID))

	stored, err := f.store.Products.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, keep.ID, stored[0].ID)
	assert.Equal(t, 0, f.images.Len())
	f.events.AssertExpectations(t)
}

func TestDeleteProduct_KeepsForeignImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.seedProduct(t, shoePayload())
	_, err := f.images.Upload(ctx, &storage.UploadInput{Key: other.ID + ".png", Data: pngReader()})
	require.NoError(t, err)

	p := shoePayload()
	p.ImageURL = imagesURL + "/" + other.ID + ".png"
	target := f.seedProduct(t, p)

	f.events.On("PublishProductDeleted", mock.Anything, target.ID).Return(nil).Once()
	require.NoError(t, f.products.DeleteProduct(ctx, target.ID))
	assert.Equal(t, 1, f.images.Len())
}

func TestDeleteProduct_NotFound(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, shoePayload())

	err := f.products.DeleteProduct(context.Background(), "missing")
	requireAppError(t, err, "NOT_FOUND")

	stored, err := f.store.Products.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestImageKey(t *testing.T) {
	cases := []struct {
		p    domain.Product
		key  string
		want bool
	}{
		{domain.Product{ID: "p1"}, "", false},
		{domain.Product{ID: "p1", ImageURL: "http://x/productsImgs/p1.png"}, "p1.png", true},
		{domain.Product{ID: "p1", ImageURL: "http://x/productsImgs/p1"}, "p1", true},
		{domain.Product{ID: "p1", ImageURL: "http://x/productsImgs/p2.png"}, "", false},
		{domain.Product{ID: "p1", ImageURL: "http://cdn/other.jpg"}, "", false},
	}
	for _, tc := range cases {
		key, ok := imageKey(tc.p)
		assert.Equal(t, tc.want, ok, tc.p.ImageURL)
		assert.Equal(t, tc.key, key, tc.p.ImageURL)
	}
}

func TestNextTimestamp_StrictlyIncreases(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	freezeClock(t, t0)

	assert.Equal(t, t0.Add(time.Nanosecond), nextTimestamp(t0))
	assert.Equal(t, t0, nextTimestamp(t0.Add(-time.Hour)))
}
