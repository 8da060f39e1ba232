package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogstore/internal/domain"
)

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngReader() io.Reader {
	return bytes.NewReader(pngHeader)
}

func TestAttachImage_StoresFileAndSetsURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, shoePayload())

	f.events.On("PublishProductImageAttached", mock.Anything, mock.MatchedBy(func(got *domain.Product) bool {
		return got.ID == p.ID
	})).Return(nil).Once()

	// Larger than the sniff window so the reassembled stream is checked.
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0xAB}, 5000)...)
	updated, err := f.uploads.AttachImage(ctx, &AttachImageInput{
		ProductID: p.ID,
		FileName:  "holiday.photo.png",
		Data:      bytes.NewReader(body),
	})
	require.NoError(t, err)

	wantURL := imagesURL + "/" + p.ID + ".png"
	assert.Equal(t, wantURL, updated.ImageURL)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	data, ct, ok := f.images.Get(p.ID + ".png")
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, body, data)

	got, err := f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, wantURL, got.ImageURL)
	f.events.AssertExpectations(t)
}

func TestAttachImage_MissingProductKeepsFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
		ProductID: "ghost",
		FileName:  "x.png",
		Data:      pngReader(),
	})
	appErr := requireAppError(t, err, "NOT_FOUND")
	assert.Equal(t, "Product with id ghost was not found", appErr.Message)

	_, _, ok := f.images.Get("ghost.png")
	assert.True(t, ok, "image is written even when the product is missing")
}

func TestAttachImage_RejectsNonImage(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, shoePayload())

	_, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
		ProductID: p.ID,
		FileName:  "notes.png",
		Data:      strings.NewReader("just some text pretending to be an image"),
	})
	appErr := requireAppError(t, err, "INVALID_INPUT")
	assert.Contains(t, appErr.Message, "text/plain")
	assert.Equal(t, 0, f.images.Len())
}

func TestAttachImage_RejectsEmptyFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
		ProductID: "p1", FileName: "a.png", Data: bytes.NewReader(nil),
	})
	requireAppError(t, err, "INVALID_INPUT")
}

func TestAttachImage_RejectsUnsafeID(t *testing.T) {
	f := newFixture(t)

	_, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
		ProductID: "..", FileName: "a.png", Data: pngReader(),
	})
	requireAppError(t, err, "INVALID_INPUT")
	assert.Equal(t, 0, f.images.Len())
}

func TestAttachImage_KeepsExtensionVerbatim(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, shoePayload())
	f.events.On("PublishProductImageAttached", mock.Anything, mock.Anything).Return(nil)

	updated, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
		ProductID: p.ID, FileName: "SHOT.PNG", Data: pngReader(),
	})
	require.NoError(t, err)
	assert.Equal(t, imagesURL+"/"+p.ID+".PNG", updated.ImageURL)
}

func TestAttachImage_RejectsExtensionMismatch(t *testing.T) {
	gifHTML := "GIF89a\x01\x00\x01\x00<html><script>alert(1)</script></html>"
	cases := map[string]struct {
		fileName string
		data     string
	}{
		"html polyglot": {"evil.html", gifHTML},
		"png as gif":    {"photo.gif", string(pngHeader)},
		"no extension":  {"photo", string(pngHeader)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			p := f.seedProduct(t, shoePayload())

			_, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
				ProductID: p.ID, FileName: tc.fileName, Data: strings.NewReader(tc.data),
			})
			appErr := requireAppError(t, err, "INVALID_INPUT")
			assert.Contains(t, appErr.Message, "does not match")
			assert.Equal(t, 0, f.images.Len())
		})
	}
}

func TestAttachImage_RejectsSVG(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, shoePayload())

	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`
	_, err := f.uploads.AttachImage(context.Background(), &AttachImageInput{
		ProductID: p.ID, FileName: "logo.svg", Data: strings.NewReader(svg),
	})
	requireAppError(t, err, "INVALID_INPUT")
	assert.Equal(t, 0, f.images.Len())
}
