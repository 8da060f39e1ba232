package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every envelope. Bump it when Payload changes
// incompatibly.
const SchemaVersion = 1

// Source identifies events written by this service.
const Source = "catalog-service"

// Entity names the catalog record an event describes.
type Entity string

const (
	EntityProduct Entity = "product"
	EntityReview  Entity = "review"
)

// Event is the envelope written to every catalog topic. ProductID is the
// partition key: a review event carries its parent product so it is ordered
// behind that product's own events.
type Event struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	Entity        Entity          `json:"entity"`
	EntityID      string          `json:"entity_id"`
	ProductID     string          `json:"product_id"`
	Schema        int             `json:"schema"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewProductEvent builds an envelope about product id.
func NewProductEvent(action, id string, payload any) (*Event, error) {
	return newEvent(EntityProduct, action, id, id, payload)
}

// NewReviewEvent builds an envelope about review id of productID.
func NewReviewEvent(action, productID, id string, payload any) (*Event, error) {
	return newEvent(EntityReview, action, id, productID, payload)
}

func newEvent(entity Entity, action, entityID, productID string, payload any) (*Event, error) {
	if productID == "" {
		return nil, errors.New("event has no product id")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s payload: %w", entity, action, err)
	}

	return &Event{
		ID:         uuid.New().String(),
		Topic:      Topic(string(entity), action),
		Entity:     entity,
		EntityID:   entityID,
		ProductID:  productID,
		Schema:     SchemaVersion,
		OccurredAt: time.Now().UTC(),
		Source:     Source,
		Payload:    raw,
	}, nil
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEvent decodes an envelope from a message value. Envelopes written by a
// newer schema are refused rather than half-read.
func ParseEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Schema > SchemaVersion {
		return nil, fmt.Errorf("event %s: unsupported schema %d", event.ID, event.Schema)
	}
	return &event, nil
}

// DecodePayload decodes the event payload into target.
func (e *Event) DecodePayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}
