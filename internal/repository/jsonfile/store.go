package jsonfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/utafrali/catalogstore/internal/domain"
)

// Document file names inside the data directory.
const (
	ProductsFile = "products.json"
	ReviewsFile  = "reviews.json"
)

// Store holds the two catalog collections rooted in one data directory.
type Store struct {
	Dir      string
	Products *Collection[domain.Product]
	Reviews  *Collection[domain.Review]
}

// Open creates dir if needed and returns the collections inside it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{
		Dir:      dir,
		Products: NewCollection[domain.Product]("products", filepath.Join(dir, ProductsFile)),
		Reviews:  NewCollection[domain.Review]("reviews", filepath.Join(dir, ReviewsFile)),
	}, nil
}
