package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/utafrali/catalogstore/pkg/errors"
)

// MessageTag is the struct tag holding the client-facing message reported
// when any rule on the field fails.
const MessageTag = "errmsg"

// maxSafeInteger is the largest integer a JSON number decoded as float64
// represents exactly.
const maxSafeInteger = 1<<53 - 1

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Type rules run on nil values too so a missing field is reported by
	// the same rule as a mistyped one.
	_ = v.RegisterValidation("isstring", isString, true)
	_ = v.RegisterValidation("isinteger", isInteger, true)
	_ = v.RegisterValidation("isnumber", isNumber, true)
	// required accepts any non-nil interface, "" included.
	_ = v.RegisterValidation("nonblank", nonBlank, true)

	return v
}

func isString(fl validator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.String
}

func nonBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return f.IsValid()
	}
	return strings.TrimSpace(f.String()) != ""
}

func isNumber(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

func isInteger(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger
	default:
		return false
	}
}

// Validate validates a struct using go-playground/validator tags. Every
// failing field is reported, in declaration order.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: validationErrors, messages: messagesOf(s)}
		}
		return err
	}
	return nil
}

// messagesOf collects the MessageTag of every top-level field of s.
func messagesOf(s any) map[string]string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	msgs := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if msg := f.Tag.Get(MessageTag); msg != "" {
			msgs[f.Name] = msg
		}
	}
	return msgs
}

// ValidationError wraps validator.ValidationErrors with user-friendly messages.
type ValidationError struct {
	Errors   validator.ValidationErrors
	messages map[string]string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", err.Field(), e.message(err)))
	}
	return strings.Join(msgs, "; ")
}

// FieldErrors lists every failing field with its message and offending value.
func (e *ValidationError) FieldErrors() []apperrors.FieldError {
	out := make([]apperrors.FieldError, 0, len(e.Errors))
	for _, err := range e.Errors {
		out = append(out, apperrors.FieldError{
			Field:   err.Field(),
			Message: e.message(err),
			Value:   err.Value(),
		})
	}
	return out
}

func (e *ValidationError) message(fe validator.FieldError) string {
	if msg, ok := e.messages[fe.StructField()]; ok {
		return msg
	}
	return msgForTag(fe)
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "isstring":
		return "must be a string"
	case "isinteger":
		return "must be an integer"
	case "isnumber":
		return "must be a number"
	case "nonblank":
		return "must not be blank"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// Decode reads a single JSON value from the request body into dst. A
// malformed body, or anything but whitespace after the value, is reported
// as an invalid input error.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.InvalidInput("invalid request body: unexpected data after JSON value")
	}
	return nil
}

// DecodeAndValidate reads JSON from the request body, decodes it into dst,
// and validates it.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := Decode(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}
