package domain

// Payload fields are untyped so the validator can tell a missing field from
// a mistyped one. A nil field is absent from the request body.

// Validation failure messages returned as the top-level error message.
const (
	ProductValidationMessage = "Some error occurred when trying to validate the product"
	ReviewValidationMessage  = "Some error occurred when trying to validate the review"
)

// ProductPayload is the body of product create and update requests.
type ProductPayload struct {
	Name        any `json:"name" validate:"required,isstring,nonblank" errmsg:"Name of the product is required and must be a string"`
	Description any `json:"description" validate:"required,isstring,nonblank" errmsg:"Description of the product is required and must be a string"`
	Brand       any `json:"brand" validate:"required,isstring,nonblank" errmsg:"Brand of the product is required and must be a string"`
	Price       any `json:"price" validate:"isinteger" errmsg:"Price of the product is required and must be a number"`
	Category    any `json:"category" validate:"required,isstring,nonblank" errmsg:"Category of the product is required and must be a string"`
	ImageURL    any `json:"imageUrl" validate:"omitempty,isstring" errmsg:"Image URL of the product must be a string"`
}

// ApplyTo copies every present field onto p. The payload must have passed
// validation.
func (pl *ProductPayload) ApplyTo(p *Product) {
	if s, ok := pl.Name.(string); ok {
		p.Name = s
	}
	if s, ok := pl.Description.(string); ok {
		p.Description = s
	}
	if s, ok := pl.Brand.(string); ok {
		p.Brand = s
	}
	if s, ok := pl.Category.(string); ok {
		p.Category = s
	}
	if n, ok := asInt64(pl.Price); ok {
		p.Price = n
	}
	if s, ok := pl.ImageURL.(string); ok {
		p.ImageURL = s
	}
}

// ReviewPayload is the body of review create and update requests.
type ReviewPayload struct {
	Comment   any `json:"comment" validate:"required,isstring,nonblank" errmsg:"Comment text is required and must be a string"`
	Rate      any `json:"rate" validate:"isnumber,gte=0,lte=5" errmsg:"Rate is required and must be a number between 0 and 5"`
	ProductID any `json:"productId" validate:"required,isstring,nonblank" errmsg:"Product ID is required and must be a string"`
}

// ProductIDValue returns the productId field, or "" when absent.
func (pl *ReviewPayload) ProductIDValue() string {
	s, _ := pl.ProductID.(string)
	return s
}

// ApplyTo copies comment and rate onto r. ProductID is never copied.
func (pl *ReviewPayload) ApplyTo(r *Review) {
	if s, ok := pl.Comment.(string); ok {
		r.Comment = s
	}
	if f, ok := asFloat64(pl.Rate); ok {
		r.Rate = f
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
