package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yardtrackpro/yardtrack-backend/api"
	"github.com/yardtrackpro/yardtrack-backend/api/controllers"
	"github.com/yardtrackpro/yardtrack-backend/api/routes"
	"github.com/yardtrackpro/yardtrack-backend/internal/alerts"
	"github.com/yardtrackpro/yardtrack-backend/internal/delivery"
	"github.com/yardtrackpro/yardtrack-backend/internal/inventory"
	"github.com/yardtrackpro/yardtrack-backend/internal/orders"
	"github.com/yardtrackpro/yardtrack-backend/internal/sales"
	"github.com/yardtrackpro/yardtrack-backend/internal/tickets"
	squarewebhook "github.com/yardtrackpro/yardtrack-backend/internal/webhooks/square"
	"github.com/yardtrackpro/yardtrack-backend/pkg/config"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
	"github.com/yardtrackpro/yardtrack-backend/pkg/instance"
	"github.com/yardtrackpro/yardtrack-backend/pkg/lock"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
	"github.com/yardtrackpro/yardtrack-backend/pkg/metrics"
	"github.com/yardtrackpro/yardtrack-backend/pkg/migrate"
	"github.com/yardtrackpro/yardtrack-backend/pkg/pubsub"
	"github.com/yardtrackpro/yardtrack-backend/pkg/redis"
	"github.com/yardtrackpro/yardtrack-backend/pkg/square"
	"github.com/yardtrackpro/yardtrack-backend/pkg/vision"
)

const squareWebhookScope = "square-webhook"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbProvider := db.NewLazyFromConfig(cfg.DB, logg)
	defer func() {
		if err := dbProvider.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbProvider); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	requireResource(ctx, logg, "square client", err)

	alertPublisher, closeAlerts := buildAlertPublisher(ctx, cfg, appMetrics, logg)
	defer closeAlerts()

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repository: inventory.NewRepository(dbProvider),
		Metrics:    appMetrics,
		Logger:     logg,
	})
	requireResource(ctx, logg, "inventory service", err)

	deliveryService, err := delivery.NewService(delivery.NewRepository(dbProvider), cfg.Delivery.SlotsPerTruck, logg)
	requireResource(ctx, logg, "delivery service", err)

	salesRepo := sales.NewRepository(dbProvider)
	rate, surcharge, tax := cfg.Commission.Factors()

	ordersService, err := orders.NewService(orders.ServiceParams{
		Stock:     inventoryService,
		Delivery:  deliveryService,
		Payments:  squareClient,
		Sales:     salesRepo,
		Locker:    lock.New(redisClient.Scripter(), redisClient, cfg.Orders.LockTTL, logg),
		Alerts:    alertPublisher,
		Metrics:   appMetrics,
		Logger:    logg,
		Surcharge: surcharge,
		SalesTax:  tax,
	})
	requireResource(ctx, logg, "orders service", err)

	webhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Sales:   salesRepo,
		Rates:   squarewebhook.Rates{Commission: rate, Surcharge: surcharge, SalesTax: tax},
		Metrics: appMetrics,
		Logger:  logg,
	})
	requireResource(ctx, logg, "square webhook service", err)

	webhookGuard, err := squarewebhook.NewIdempotencyGuard(redisClient, cfg.Square.WebhookEventTTL, squareWebhookScope)
	requireResource(ctx, logg, "square webhook guard", err)

	deps := routes.Dependencies{
		Redis:         redisClient,
		Gatherer:      registry,
		Inventory:     inventoryService,
		Orders:        ordersService,
		SquareWebhook: webhookService,
		SquareSigner:  squareClient,
		SquareGuard:   webhookGuard,
		Metrics:       appMetrics,
		Readiness: []controllers.ReadinessCheck{
			{Name: "database", Ping: dbProvider.Ping},
			{Name: "redis", Ping: redisClient.Ping},
		},
	}

	if cfg.Vision.APIKey != "" {
		ticketService, err := buildTicketService(cfg.Vision, appMetrics, logg)
		requireResource(ctx, logg, "ticket service", err)
		deps.Tickets = ticketService
	} else {
		logg.Warn(ctx, "vision api key not set, ticket extraction disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.ID(),
		"square_env": squareClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(addr, routes.NewRouter(cfg, logg, deps))
	if err := api.Serve(ctx, server, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildTicketService(cfg config.VisionConfig, appMetrics *metrics.Metrics, logg *logger.Logger) (*tickets.Service, error) {
	visionClient, err := vision.NewClient(cfg.APIKey,
		vision.WithBaseURL(cfg.BaseURL),
		vision.WithModel(cfg.Model),
		vision.WithMaxTokens(cfg.MaxTokens),
		vision.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, err
	}
	images := tickets.DefaultImageOptions()
	if cfg.ImageMaxWidth > 0 {
		images.MaxWidth = cfg.ImageMaxWidth
	}
	if cfg.ImageMaxHeight > 0 {
		images.MaxHeight = cfg.ImageMaxHeight
	}
	if cfg.ImageQuality > 0 {
		images.Quality = cfg.ImageQuality
	}
	if cfg.MaxUploadMB > 0 {
		images.MaxBytes = cfg.MaxUploadMB << 20
	}
	return tickets.NewService(tickets.ServiceParams{
		Vision:  visionClient,
		Images:  images,
		Metrics: appMetrics,
		Logger:  logg,
	})
}

// buildAlertPublisher falls back to a log-only publisher when Pub/Sub is
// not configured or cannot be reached.
func buildAlertPublisher(ctx context.Context, cfg *config.Config, appMetrics *metrics.Metrics, logg *logger.Logger) (*alerts.Publisher, func()) {
	noop := func() {}
	if !pubsub.Enabled(cfg.GCP, cfg.PubSub) {
		return alerts.NewPublisher(nil, appMetrics, logg), noop
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "pubsub unavailable, alerts will only be logged", err)
		return alerts.NewPublisher(nil, appMetrics, logg), noop
	}
	return alerts.NewPublisher(client.AlertsPublisher(), appMetrics, logg), func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "resource", name), "failed to initialize", err)
	os.Exit(1)
}
