package domain

import (
	"time"
)

// Review is one record of the reviews collection. ProductID is fixed at
// creation.
type Review struct {
	ID        string    `json:"_id"`
	ProductID string    `json:"productId"`
	Comment   string    `json:"comment"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReviewsFor returns the reviews of productID in stored order. It never
// returns nil.
func ReviewsFor(productID string, all []Review) []Review {
	out := make([]Review, 0)
	for _, r := range all {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}
