package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalogstore/pkg/errors"
)

type itemPayload struct {
	Title any `json:"title" validate:"required,isstring,nonblank" errmsg:"Title is required and must be a string"`
	Count any `json:"count" validate:"isinteger" errmsg:"Count is required and must be a number"`
	Score any `json:"score" validate:"isnumber,gte=0,lte=5"`
	Note  any `json:"note" validate:"omitempty,isstring"`
}

func decodeItem(t *testing.T, body string) *itemPayload {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p itemPayload
	require.NoError(t, Decode(req, &p))
	return &p
}

func fieldErrors(t *testing.T, err error) []apperrors.FieldError {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.FieldErrors()
}

func TestValidate_Success(t *testing.T) {
	p := decodeItem(t, `{"title":"Shoe","count":3,"score":4.5}`)
	assert.NoError(t, Validate(p))
}

func TestValidate_ZeroValuesAreValidNumbers(t *testing.T) {
	p := decodeItem(t, `{"title":"Shoe","count":0,"score":0}`)
	assert.NoError(t, Validate(p))
}

func TestValidate_EmptyBody_ReportsEveryField(t *testing.T) {
	p := decodeItem(t, `{}`)
	fes := fieldErrors(t, Validate(p))

	require.Len(t, fes, 3)
	assert.Equal(t, "title", fes[0].Field)
	assert.Equal(t, "Title is required and must be a string", fes[0].Message)
	assert.Equal(t, "count", fes[1].Field)
	assert.Equal(t, "Count is required and must be a number", fes[1].Message)
	assert.Equal(t, "score", fes[2].Field)
	assert.Equal(t, "must be a number", fes[2].Message)
}

func TestValidate_WrongTypes(t *testing.T) {
	p := decodeItem(t, `{"title":42,"count":"3","score":"high","note":7}`)
	fes := fieldErrors(t, Validate(p))

	fields := make([]string, 0, len(fes))
	for _, fe := range fes {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"title", "count", "score", "note"}, fields)
	assert.Equal(t, "must be a string", fes[3].Message)
}

func TestValidate_EmptyStringIsMissing(t *testing.T) {
	p := decodeItem(t, `{"title":"","count":1,"score":1}`)
	fes := fieldErrors(t, Validate(p))
	require.Len(t, fes, 1)
	assert.Equal(t, "title", fes[0].Field)
}

func TestValidate_BlankStringIsMissing(t *testing.T) {
	p := decodeItem(t, `{"title":"  ","count":1,"score":1}`)
	fes := fieldErrors(t, Validate(p))
	require.Len(t, fes, 1)
	assert.Equal(t, "title", fes[0].Field)
	assert.Equal(t, "Title is required and must be a string", fes[0].Message)
}

func TestValidate_FractionalIntegerRejected(t *testing.T) {
	p := decodeItem(t, `{"title":"Shoe","count":2.5,"score":1}`)
	fes := fieldErrors(t, Validate(p))
	require.Len(t, fes, 1)
	assert.Equal(t, "count", fes[0].Field)
	assert.Equal(t, 2.5, fes[0].Value)
}

func TestValidate_NumberOutOfRange(t *testing.T) {
	p := decodeItem(t, `{"title":"Shoe","count":1,"score":7}`)
	fes := fieldErrors(t, Validate(p))
	require.Len(t, fes, 1)
	assert.Equal(t, "score", fes[0].Field)
	assert.Equal(t, "must be less than or equal to 5", fes[0].Message)
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(&itemPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'title'")
	assert.Contains(t, err.Error(), "Title is required")
}

func TestValidationError_FeedsAppError(t *testing.T) {
	appErr := apperrors.Validation("bad item", Validate(&itemPayload{}))
	assert.Len(t, appErr.Fields, 3)
}

func TestDecode_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))
	var p itemPayload
	err := Decode(req, &p)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestDecode_TrailingValueRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Hat","count":1,"score":2}{"junk":1}`))
	var p itemPayload
	err := Decode(req, &p)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "unexpected data")
}

func TestDecode_TrailingWhitespaceAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{\"title\":\"Hat\"}\n  \n"))
	var p itemPayload
	assert.NoError(t, Decode(req, &p))
}

func TestDecodeAndValidate_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":"Hat","count":1,"score":2}`))

	var p itemPayload
	require.NoError(t, DecodeAndValidate(req, &p))
	assert.Equal(t, "Hat", p.Title)
	assert.Equal(t, float64(1), p.Count)
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":""}`))

	var p itemPayload
	err := DecodeAndValidate(req, &p)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
