package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/api/controllers"
	webhookcontrollers "github.com/yardtrackpro/yardtrack-backend/api/controllers/webhooks"
	"github.com/yardtrackpro/yardtrack-backend/api/middleware"
	"github.com/yardtrackpro/yardtrack-backend/api/responses"
	"github.com/yardtrackpro/yardtrack-backend/internal/inventory"
	"github.com/yardtrackpro/yardtrack-backend/internal/orders"
	"github.com/yardtrackpro/yardtrack-backend/internal/tickets"
	"github.com/yardtrackpro/yardtrack-backend/pkg/config"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

// base64 inflates uploads by a third; the extra room covers the JSON wrapper.
const ticketEnvelopeOverhead = 64 << 10

// redisStore is the subset of the Redis client used by the rate limiter and
// the idempotency middleware.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type inventoryService interface {
	Increase(ctx context.Context, input inventory.IncreaseInput) (*inventory.IncreaseResult, error)
	Decrease(ctx context.Context, input inventory.DecreaseInput) (*inventory.DecreaseResult, error)
	Available(ctx context.Context, productID string) (decimal.Decimal, error)
}

type ticketService interface {
	Extract(ctx context.Context, image string) (*tickets.Ticket, error)
}

type squareGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type squareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

type webhookMetrics interface {
	IncWebhookEvent(eventType, outcome string)
}

// Dependencies carries everything the HTTP surface calls into.
type Dependencies struct {
	Redis         redisStore
	Gatherer      prometheus.Gatherer
	Readiness     []controllers.ReadinessCheck
	Inventory     inventoryService
	Tickets       ticketService
	Orders        orders.Service
	SquareWebhook webhookcontrollers.SquareWebhookService
	SquareSigner  squareSigner
	SquareGuard   squareGuard
	Metrics       webhookMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "Method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Not found"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, deps.Readiness...))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	store := deps.Redis
	ticketPolicy := middleware.NewRateLimitPolicy(
		"ticket-extract",
		cfg.RateLimit.TicketExtractWindow,
		cfg.RateLimit.TicketExtractLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.Idempotency(store, cfg.Orders.IdempotencyTTL, logg)).
			Post("/orders", controllers.SubmitOrder(deps.Orders, logg))

		r.Post("/inventory", controllers.AdjustInventory(deps.Inventory, logg))
		r.Get("/inventory/{productId}", controllers.GetInventory(deps.Inventory, logg))

		r.With(middleware.RateLimit(ticketPolicy, store, logg)).
			Post("/tickets/extract", controllers.ExtractTicket(deps.Tickets, ticketBodyLimit(cfg.Vision), logg))

		r.Post("/webhooks/square", webhookcontrollers.SquareWebhook(
			deps.SquareWebhook, deps.SquareSigner, deps.SquareGuard, deps.Metrics, logg,
		))
	})

	return r
}

func ticketBodyLimit(cfg config.VisionConfig) int64 {
	raw := int64(cfg.MaxUploadMB) << 20
	if raw <= 0 {
		raw = int64(tickets.DefaultImageOptions().MaxBytes)
	}
	return raw*4/3 + ticketEnvelopeOverhead
}
