package http

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalogstore/internal/domain"
	"github.com/utafrali/catalogstore/internal/service"
	"github.com/utafrali/catalogstore/pkg/health"
	"github.com/utafrali/catalogstore/pkg/httputil"
	"github.com/utafrali/catalogstore/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "catalog"

// imageCacheAge is the Cache-Control max-age of served product images.
const imageCacheAge = 24 * time.Hour

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Products *service.ProductService
	Reviews  *service.ReviewService
	Images   *service.ImageService
	Health   *health.Handler

	// Limiter throttles the API routes per client. Nil disables throttling.
	Limiter middleware.Limiter

	// TrustedProxyCIDRs may set X-Forwarded-For for rate limiting.
	TrustedProxyCIDRs []string

	AllowedOrigins    []string
	ImagesDir         string
	ImagesPath        string
	MaxUploadBytes    int64
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins...)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorStatus(w, http.StatusNotFound, "NOT_FOUND", "route "+r.URL.Path+" not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorStatus(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"method "+r.Method+" not allowed on "+r.URL.Path)
	})

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	if cfg.ImagesDir != "" && cfg.ImagesPath != "" {
		mountImages(r, cfg.ImagesPath, cfg.ImagesDir)
	}

	products := NewProductHandler(cfg.Products, logger)
	reviews := NewReviewHandler(cfg.Reviews, logger)
	uploads := NewUploadHandler(cfg.Images, cfg.MaxUploadBytes, logger)

	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			ips := middleware.NewClientIPResolver(cfg.TrustedProxyCIDRs, logger)
			r.Use(middleware.RateLimit("api", cfg.Limiter, ips, logger))
		}
		r.Use(ContentTypeJSON)

		r.Route("/products", func(r chi.Router) {
			r.With(limitBody).Post("/", products.CreateProduct)
			r.Get("/", products.ListProducts)
			r.Get("/{id}", products.GetProduct)
			r.With(limitBody).Put("/{id}", products.UpdateProduct)
			r.Delete("/{id}", products.DeleteProduct)

			r.Route("/{id}/reviews", func(r chi.Router) {
				r.With(limitBody).Post("/", reviews.CreateReview)
				r.Get("/", reviews.ListReviews)
				r.Get("/{reviewId}", reviews.GetReview)
				r.With(limitBody).Put("/{reviewId}", reviews.UpdateReview)
				r.Delete("/{reviewId}", reviews.DeleteReview)
			})
		})

		r.Post("/product/{id}/upload", uploads.UploadImage)
	})

	return r
}

// mountImages serves files under dir at mount. Directory listings are not
// exposed. The Content-Type comes from the file extension and is only ever
// an allowed image type; anything else is sent as an opaque download.
func mountImages(r chi.Router, mount, dir string) {
	mount = "/" + strings.Trim(mount, "/")
	fs := http.StripPrefix(mount, http.FileServer(http.Dir(dir)))

	r.With(middleware.CacheControl(imageCacheAge)).Get(mount+"/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")

		name := path.Clean("/" + chi.URLParam(r, "*"))
		if name == "/" {
			httputil.WriteErrorStatus(w, http.StatusNotFound, "NOT_FOUND", "image not found")
			return
		}
		if fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil || fi.IsDir() {
			httputil.WriteErrorStatus(w, http.StatusNotFound, "NOT_FOUND", "image not found")
			return
		}

		if ct := domain.ImageTypeForExtension(path.Ext(name)); ct != "" {
			w.Header().Set("Content-Type", ct)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", "attachment")
		}
		fs.ServeHTTP(w, r)
	})
}
