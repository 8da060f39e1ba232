package domain

import (
	"mime"
	"strings"
	"time"
)

// Product is one record of the products collection.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductWithReviews is the read view of a product. It is assembled per
// request and never persisted.
type ProductWithReviews struct {
	Product
	Reviews []Review `json:"reviews"`
}

// WithReviews attaches the reviews of all whose ProductID matches p, in
// their stored order. The result always carries a non-nil slice.
func (p Product) WithReviews(all []Review) ProductWithReviews {
	return ProductWithReviews{
		Product: p,
		Reviews: ReviewsFor(p.ID, all),
	}
}

// Allowed content types for product images.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/avif": true,
}

// IsAllowedImageType checks whether the given content type may be stored as
// a product image.
func IsAllowedImageType(contentType string) bool {
	return AllowedImageTypes[contentType]
}

// ImageTypeForExtension returns the allowed image type a file extension
// such as ".png" is served as, or "" when the extension names no allowed
// image type.
func ImageTypeForExtension(ext string) string {
	ct := mime.TypeByExtension(strings.ToLower(ext))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	if !IsAllowedImageType(ct) {
		return ""
	}
	return ct
}
