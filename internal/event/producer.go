package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/catalogstore/internal/domain"
	pkgkafka "github.com/utafrali/catalogstore/pkg/kafka"
	"github.com/utafrali/catalogstore/pkg/logger"
)

// Kafka topics for catalog domain events.
var (
	TopicProductCreated       = pkgkafka.Topic("product", "created")
	TopicProductUpdated       = pkgkafka.Topic("product", "updated")
	TopicProductDeleted       = pkgkafka.Topic("product", "deleted")
	TopicProductImageAttached = pkgkafka.Topic("product", "image_attached")
	TopicReviewCreated        = pkgkafka.Topic("review", "created")
	TopicReviewUpdated        = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted        = pkgkafka.Topic("review", "deleted")
)

// Publisher publishes catalog domain events.
type Publisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, productID string) error
	PublishProductImageAttached(ctx context.Context, product *domain.Product) error
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, productID, reviewID string) error
}

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductDeletedData is the payload of product.deleted.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ImageAttachedData is the payload of product.image_attached.
type ImageAttachedData struct {
	ProductID string `json:"product_id"`
	ImageURL  string `json:"image_url"`
}

// ReviewData is the payload of review.created and review.updated.
type ReviewData struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Comment   string  `json:"comment"`
	Rate      float64 `json:"rate"`
}

// ReviewDeletedData is the payload of review.deleted.
type ReviewDeletedData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
}

type kafkaPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog events to Kafka.
type Producer struct {
	kafka  kafkaPublisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		UpdatedAt:   p.UpdatedAt,
	}
}

func reviewData(r *domain.Review) ReviewData {
	return ReviewData{
		ID:        r.ID,
		ProductID: r.ProductID,
		Comment:   r.Comment,
		Rate:      r.Rate,
	}
}

func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewProductEvent("created", product.ID, productData(product))
	})
}

func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewProductEvent("updated", product.ID, productData(product))
	})
}

func (p *Producer) PublishProductDeleted(ctx context.Context, productID string) error {
	return p.publish(ctx, TopicProductDeleted, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewProductEvent("deleted", productID, ProductDeletedData{ID: productID})
	})
}

func (p *Producer) PublishProductImageAttached(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductImageAttached, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewProductEvent("image_attached", product.ID, ImageAttachedData{
			ProductID: product.ID,
			ImageURL:  product.ImageURL,
		})
	})
}

func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewReviewEvent("created", review.ProductID, review.ID, reviewData(review))
	})
}

func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewReviewEvent("updated", review.ProductID, review.ID, reviewData(review))
	})
}

func (p *Producer) PublishReviewDeleted(ctx context.Context, productID, reviewID string) error {
	return p.publish(ctx, TopicReviewDeleted, func() (*pkgkafka.Event, error) {
		return pkgkafka.NewReviewEvent("deleted", productID, reviewID, ReviewDeletedData{
			ID:        reviewID,
			ProductID: productID,
		})
	})
}

func (p *Producer) publish(ctx context.Context, topic string, build func() (*pkgkafka.Event, error)) error {
	event, err := build()
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("entity_id", event.EntityID),
		slog.String("event_id", event.ID),
	)
	return nil
}

// Noop discards every event. It is wired when Kafka is disabled.
type Noop struct{}

func (Noop) PublishProductCreated(context.Context, *domain.Product) error       { return nil }
func (Noop) PublishProductUpdated(context.Context, *domain.Product) error       { return nil }
func (Noop) PublishProductDeleted(context.Context, string) error                { return nil }
func (Noop) PublishProductImageAttached(context.Context, *domain.Product) error { return nil }
func (Noop) PublishReviewCreated(context.Context, *domain.Review) error         { return nil }
func (Noop) PublishReviewUpdated(context.Context, *domain.Review) error         { return nil }
func (Noop) PublishReviewDeleted(context.Context, string, string) error         { return nil }
