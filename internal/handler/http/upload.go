package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogstore/internal/service"
	"github.com/utafrali/catalogstore/pkg/httputil"
)

// ImageFormField is the multipart field carrying the uploaded image.
const ImageFormField = "productImg"

// multipartOverhead is allowed on top of the file limit for boundaries and
// part headers.
const multipartOverhead = 64 << 10

// UploadHandler attaches uploaded images to products.
type UploadHandler struct {
	service  *service.ImageService
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadHandler creates an upload handler accepting files up to maxBytes.
func NewUploadHandler(svc *service.ImageService, maxBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service:  svc,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

type uploadResponse struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Message  string `json:"message"`
}

// UploadImage handles POST /product/{id}/upload (multipart/form-data).
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteErrorStatus(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("uploaded file exceeds %d bytes", h.maxBytes))
			return
		}
		httputil.WriteErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", "failed to parse multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(ImageFormField)
	if err != nil {
		httputil.WriteErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT",
			fmt.Sprintf("file field %q is required", ImageFormField))
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		httputil.WriteErrorStatus(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("uploaded file exceeds %d bytes", h.maxBytes))
		return
	}

	id := chi.URLParam(r, "id")
	product, err := h.service.AttachImage(r.Context(), &service.AttachImageInput{
		ProductID: id,
		FileName:  header.Filename,
		Data:      file,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, uploadResponse{
		ID:       product.ID,
		ImageURL: product.ImageURL,
		Message:  fmt.Sprintf("The product with id %s has been updated with the correct image", product.ID),
	})
}
