package main

import (
	"context"
	"net/http"
	"os"

	"github.com/archivobordado/bordado-backend/api/routes"
	"github.com/archivobordado/bordado-backend/internal/auth"
	"github.com/archivobordado/bordado-backend/internal/cart"
	"github.com/archivobordado/bordado-backend/internal/catalog"
	"github.com/archivobordado/bordado-backend/internal/checkout"
	"github.com/archivobordado/bordado-backend/internal/fulfillment"
	"github.com/archivobordado/bordado-backend/internal/orders"
	mpwebhook "github.com/archivobordado/bordado-backend/internal/webhooks/mercadopago"
	"github.com/archivobordado/bordado-backend/pkg/auth/session"
	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/archivobordado/bordado-backend/pkg/mailer"
	"github.com/archivobordado/bordado-backend/pkg/mercadopago"
	"github.com/archivobordado/bordado-backend/pkg/migrate"
	"github.com/archivobordado/bordado-backend/pkg/redis"
	"github.com/archivobordado/bordado-backend/pkg/storage/supabase"
	"github.com/joho/godotenv"
)

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storageClient, err := supabase.NewClient(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}

	mpClient, err := mercadopago.NewClient(
		cfg.MercadoPago.AccessToken,
		cfg.MercadoPago.CurrencyID,
		cfg.MercadoPago.StatementDescriptor,
		mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado pago client", err)
		os.Exit(1)
	}

	mailClient, err := mailer.NewClient(cfg.Mail)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalogRepo, dbClient, storageClient, cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(redisClient, catalogRepo, cfg.Cart, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(ordersRepo, catalogRepo, storageClient, mailClient, cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, fulfillmentService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(ordersRepo, catalogRepo, mpClient, cfg.App, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		AdminConfig:    cfg.Admin,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	webhookGuard, err := mpwebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "mp-payment")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookService, err := mpwebhook.NewService(mpClient, ordersRepo, fulfillmentService, webhookGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			storageClient,
			sessionManager,
			catalogService,
			cartService,
			checkoutService,
			ordersService,
			authService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
