package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Read views
// ============================================================================

func TestReviewsFor_FiltersInOrder(t *testing.T) {
	all := []Review{
		{ID: "r1", ProductID: "a"},
		{ID: "r2", ProductID: "b"},
		{ID: "r3", ProductID: "a"},
	}

	got := ReviewsFor("a", all)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "r3", got[1].ID)
}

func TestReviewsFor_NoneIsEmptyNotNil(t *testing.T) {
	got := ReviewsFor("missing", []Review{{ID: "r1", ProductID: "a"}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProductWithReviews_JSONShape(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := Product{ID: "p1", Name: "Shoe", Price: 50, CreatedAt: ts, UpdatedAt: ts}

	raw, err := json.Marshal(p.WithReviews(nil))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "p1", m["id"])
	assert.Equal(t, []any{}, m["reviews"])
	assert.NotContains(t, m, "imageUrl")
	assert.Contains(t, m, "createdAt")
}

func TestReview_JSONUsesUnderscoreID(t *testing.T) {
	raw, err := json.Marshal(Review{ID: "r1", ProductID: "p1", Rate: 4.5})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"_id":"r1"`)
	assert.Contains(t, string(raw), `"productId":"p1"`)
}

// ============================================================================
// Payload merge
// ============================================================================

func decodeProductPayload(t *testing.T, body string) *ProductPayload {
	t.Helper()
	var pl ProductPayload
	require.NoError(t, json.Unmarshal([]byte(body), &pl))
	return &pl
}

func TestProductPayload_ApplyTo_OverwritesPresentFieldsOnly(t *testing.T) {
	p := Product{
		ID: "p1", Name: "Old", Description: "old d", Brand: "B", Category: "c",
		Price: 10, ImageURL: "http://x/p1.png",
	}

	decodeProductPayload(t, `{"name":"New","price":25}`).ApplyTo(&p)

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, int64(25), p.Price)
	assert.Equal(t, "old d", p.Description)
	assert.Equal(t, "http://x/p1.png", p.ImageURL)
}

func TestProductPayload_IDIsNotAField(t *testing.T) {
	p := Product{ID: "p1"}
	decodeProductPayload(t, `{"id":"hijack","name":"n"}`).ApplyTo(&p)
	assert.Equal(t, "p1", p.ID)
}

func TestReviewPayload_ApplyTo_KeepsProductID(t *testing.T) {
	r := Review{ID: "r1", ProductID: "p1", Comment: "meh", Rate: 2}
	pl := ReviewPayload{Comment: "great", Rate: float64(5), ProductID: "p2"}

	pl.ApplyTo(&r)

	assert.Equal(t, "great", r.Comment)
	assert.Equal(t, 5.0, r.Rate)
	assert.Equal(t, "p1", r.ProductID)
	assert.Equal(t, "p2", pl.ProductIDValue())
}

func TestReviewPayload_ProductIDValue_Absent(t *testing.T) {
	assert.Equal(t, "", (&ReviewPayload{}).ProductIDValue())
	assert.Equal(t, "", (&ReviewPayload{ProductID: 12.0}).ProductIDValue())
}

func TestIsAllowedImageType(t *testing.T) {
	assert.True(t, IsAllowedImageType("image/png"))
	assert.True(t, IsAllowedImageType("image/jpeg"))
	assert.False(t, IsAllowedImageType("application/pdf"))
	assert.False(t, IsAllowedImageType("text/plain; charset=utf-8"))
	assert.False(t, IsAllowedImageType("image/svg+xml"))
}

func TestImageTypeForExtension(t *testing.T) {
	cases := map[string]string{
		".png":  "image/png",
		".PNG":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".html": "",
		".svg":  "",
		"":      "",
	}
	for ext, want := range cases {
		assert.Equal(t, want, ImageTypeForExtension(ext), ext)
	}
}
