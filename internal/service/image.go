package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/event"
	"github.com/utafrali/catalogstore/internal/repository"
	"github.com/utafrali/catalogstore/internal/storage"
	apperrors "github.com/utafrali/catalogstore/pkg/errors"
	"github.com/utafrali/catalogstore/pkg/logger"
)

// safeIDPattern matches ids that can be used as a file name stem.
var safeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

// AttachImageInput holds one uploaded product image.
type AttachImageInput struct {
	ProductID string
	FileName  string
	Data      io.Reader
}

// ImageService stores product images and points products at them.
type ImageService struct {
	products repository.ProductRepository
	images   storage.Storage
	events   event.Publisher
	logger   *slog.Logger
}

// NewImageService creates a new image service.
func NewImageService(products repository.ProductRepository, images storage.Storage, events event.Publisher, logger *slog.Logger) *ImageService {
	return &ImageService{
		products: products,
		images:   images,
		events:   events,
		logger:   logger,
	}
}

// AttachImage stores the image as <productID><ext> and sets the product's
// imageUrl. The file is stored before the product lookup and is kept when
// the product does not exist.
func (s *ImageService) AttachImage(ctx context.Context, input *AttachImageInput) (*domain.Product, error) {
	if !safeIDPattern.MatchString(input.ProductID) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product id %q cannot name an image", input.ProductID))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Data, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperrors.InvalidInput("could not read uploaded file: " + err.Error())
	}
	head = head[:n]
	if n == 0 {
		return nil, apperrors.InvalidInput("uploaded file is empty")
	}

	contentType := baseMediaType(mimetype.Detect(head).String())
	if !domain.IsAllowedImageType(contentType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not an allowed image type", contentType))
	}

	ext := filepath.Ext(input.FileName)
	if domain.ImageTypeForExtension(ext) != contentType {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file extension %q does not match content type %q", ext, contentType))
	}

	key := input.ProductID + ext
	res, err := s.images.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: contentType,
		Data:        io.MultiReader(bytes.NewReader(head), input.Data),
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("file name %q cannot be stored", input.FileName))
		}
		return nil, fmt.Errorf("store image %s: %w", key, err)
	}

	log := logger.WithContext(ctx, s.logger)
	log.InfoContext(ctx, "product image stored",
		slog.String("product_id", input.ProductID),
		slog.String("key", res.Key),
		slog.String("content_type", contentType),
	)

	var updated domain.Product
	err = s.products.Mutate(ctx, func(products []domain.Product) ([]domain.Product, error) {
		i := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == input.ProductID })
		if i < 0 {
			return nil, apperrors.NotFound(fmt.Sprintf("Product with id %s was not found", input.ProductID))
		}
		products[i].ImageURL = res.URL
		products[i].UpdatedAt = nextTimestamp(products[i].UpdatedAt)
		updated = products[i]
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("attach image: %w", err)
	}

	log.InfoContext(ctx, "product image attached",
		slog.String("product_id", input.ProductID),
		slog.String("image_url", res.URL),
	)

	if err := s.events.PublishProductImageAttached(ctx, &updated); err != nil {
		publishFailed(ctx, s.logger, event.TopicProductImageAttached, err)
	}

	return &updated, nil
}

func baseMediaType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
