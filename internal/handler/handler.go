package handler

import (
	"context"
	"net/http"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/localstore"
	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/service"
)

// Pinger reports whether the database is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies needed by the HTTP endpoints.
type Handler struct {
	cfg         *config.Config
	creators    *service.CreatorService
	sanctuary   *service.Sanctuary
	chambers    *service.Chambers
	animator    *service.Animator
	oracle      *service.Oracle
	gallery     *service.GalleryService
	payments    *service.PaymentService
	blobs       *localstore.BlobStore
	rateCounter middleware.RateCounter
	db          Pinger
}

// Deps contains all dependencies required to construct a Handler.
// Gallery and Payments are nil when cloud storage or Stripe is disabled.
type Deps struct {
	Cfg         *config.Config
	Creators    *service.CreatorService
	Sanctuary   *service.Sanctuary
	Chambers    *service.Chambers
	Animator    *service.Animator
	Oracle      *service.Oracle
	Gallery     *service.GalleryService
	Payments    *service.PaymentService
	Blobs       *localstore.BlobStore
	RateCounter middleware.RateCounter
	DB          Pinger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:         deps.Cfg,
		creators:    deps.Creators,
		sanctuary:   deps.Sanctuary,
		chambers:    deps.Chambers,
		animator:    deps.Animator,
		oracle:      deps.Oracle,
		gallery:     deps.Gallery,
		payments:    deps.Payments,
		blobs:       deps.Blobs,
		rateCounter: deps.RateCounter,
		db:          deps.DB,
	}
}

// Routes registers every endpoint and wraps the mux in the middleware chain.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	auth := func(f http.HandlerFunc) http.Handler {
		return middleware.RequireCreator(f)
	}
	limited := func(f http.HandlerFunc) http.Handler {
		return middleware.RequireCreator(middleware.RateLimit(h.rateCounter, h.cfg.RateLimitPerMinute)(f))
	}

	mux.HandleFunc("GET /api/health", h.health)

	// Session
	mux.HandleFunc("POST /api/session", h.login)
	mux.Handle("GET /api/session", auth(h.session))
	mux.HandleFunc("DELETE /api/session", h.logout)

	// Public gallery
	mux.HandleFunc("GET /api/gallery", h.loadGallery)

	// Payment
	mux.HandleFunc("POST /api/checkout", h.createCheckout)
	mux.HandleFunc("GET /api/checkout/status", h.checkoutStatus)

	// Portal and detail views
	mux.Handle("GET /api/stars", auth(h.listStars))
	mux.Handle("GET /api/stars/{id}", auth(h.getStar))
	mux.Handle("GET /api/stars/{id}/prompts", auth(h.starPrompts))
	mux.Handle("POST /api/stars/{id}/image", auth(h.linkImage))
	mux.Handle("GET /api/stars/{id}/media", auth(h.starMedia))
	mux.Handle("DELETE /api/stars/{id}/media/{index}", auth(h.removeMedia))
	mux.Handle("GET /api/media/videos/{starId}", auth(h.serveStarVideo))

	// Chambers
	mux.Handle("POST /api/chambers/forge", limited(h.forge))
	mux.Handle("POST /api/chambers/weaver", limited(h.weave))
	mux.Handle("POST /api/chambers/animator", limited(h.animate))
	mux.Handle("GET /api/chambers/animator/jobs/{id}", auth(h.getJob))
	mux.Handle("DELETE /api/chambers/animator/jobs/{id}", auth(h.cancelJob))
	mux.Handle("GET /api/chambers/animator/jobs/{id}/video", auth(h.serveJobVideo))

	// Oracle tools
	mux.Handle("POST /api/oracle/reflect", limited(h.reflect))
	mux.Handle("GET /api/oracle/reflect", auth(h.transcript))
	mux.Handle("POST /api/oracle/transmission", limited(h.decodeTransmission))
	mux.Handle("POST /api/oracle/ask", limited(h.ask))

	return middleware.Chain(
		middleware.Recover(),
		middleware.CORS(h.cfg.AllowedOrigins),
		middleware.CreatorLoader(h.creators),
		middleware.Logging(),
	)(mux)
}
