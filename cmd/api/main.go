package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/oaklinehq/oakline-backend/api/routes"
	"github.com/oaklinehq/oakline-backend/internal/addresses"
	"github.com/oaklinehq/oakline-backend/internal/cart"
	"github.com/oaklinehq/oakline-backend/internal/catalog"
	"github.com/oaklinehq/oakline-backend/internal/checkout"
	"github.com/oaklinehq/oakline-backend/internal/coupons"
	"github.com/oaklinehq/oakline-backend/internal/inventory"
	"github.com/oaklinehq/oakline-backend/internal/orders"
	"github.com/oaklinehq/oakline-backend/internal/settings"
	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/db"
	"github.com/oaklinehq/oakline-backend/pkg/gateway"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
	"github.com/oaklinehq/oakline-backend/pkg/migrate"
	"github.com/oaklinehq/oakline-backend/pkg/outbox"
	"github.com/oaklinehq/oakline-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	ledger, err := inventory.NewLedger(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	addressService, err := addresses.NewService(addresses.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}
	couponService, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}
	settingsService, err := settings.NewService(settings.NewRepository(conn), cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(ordersRepo, dbClient, ledger, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(checkout.Deps{
		CartRepo:    cartRepo,
		CatalogRepo: catalogRepo,
		Addresses:   addressService,
		Coupons:     couponService,
		Settings:    settingsService,
		Ledger:      ledger,
		OrdersRepo:  ordersRepo,
		Gateway:     gatewayClient,
		Outbox:      outboxService,
		Idempotency: redisClient,
		Tx:          dbClient,
		Config:      cfg.Checkout,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		CartService:     cartService,
		AddressService:  addressService,
		CheckoutService: checkoutService,
		OrderService:    orderService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
