package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-discount-engine/internal/client"
	"github.com/fairyhunter13/coupon-discount-engine/internal/config"
	"github.com/fairyhunter13/coupon-discount-engine/internal/couponstate"
	"github.com/fairyhunter13/coupon-discount-engine/internal/discount"
	"github.com/fairyhunter13/coupon-discount-engine/internal/handler"
	"github.com/fairyhunter13/coupon-discount-engine/internal/repository"
	"github.com/fairyhunter13/coupon-discount-engine/internal/service"
	"github.com/fairyhunter13/coupon-discount-engine/internal/validator"
	"github.com/fairyhunter13/coupon-discount-engine/migrations"
	"github.com/fairyhunter13/coupon-discount-engine/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool, migrations.FS); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	var rdb *redis.Client
	var store couponstate.KeyValueStore = couponstate.NewMemoryStore()
	var cachePinger handler.Pinger
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		store = couponstate.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		cachePinger = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis session store enabled")
	} else {
		log.Warn().Msg("redis disabled, sessions are kept in process memory")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Coupon Discount Engine",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit
	})

	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	validate := validator.New()
	calc := discount.New(discount.WithCurrency(cfg.Pricing.Currency))

	couponRepo := repository.NewCouponRepository(pool)
	redemptionRepo := repository.NewRedemptionRepository(pool)
	couponService := service.NewCouponService(pool, couponRepo, redemptionRepo, calc)

	// Sessions validate against a remote service when one is configured.
	var sessionValidator couponstate.Validator = couponService
	if cfg.Validation.URL != "" {
		sessionValidator = client.NewValidationClient(cfg.Validation.URL, cfg.Validation.Timeout)
		log.Info().Str("url", cfg.Validation.URL).Msg("using remote coupon validation")
	}

	couponHandler := handler.NewCouponHandler(couponService, validate)
	redemptionHandler := handler.NewRedemptionHandler(couponService, validate)
	discountHandler := handler.NewDiscountHandler(couponService, calc, validate)
	sessionHandler := handler.NewSessionHandler(sessionValidator, store, calc, validate,
		couponstate.WithApplyTimeout(cfg.Session.ApplyTimeout),
		couponstate.WithHistoryLimit(cfg.Session.HistoryLimit),
		couponstate.WithStructValidator(validate),
	)
	healthHandler := handler.NewHealthHandler(pool, cachePinger)

	app.Get("/health", healthHandler.Check)

	// Coupon routes
	app.Post("/api/coupons", couponHandler.CreateCoupon)
	app.Post("/api/coupons/validate", couponHandler.ValidateCoupon)
	app.Post("/api/coupons/redeem", redemptionHandler.RedeemCoupon)
	app.Get("/api/coupons/:code", couponHandler.GetCoupon)

	// Discount quote routes
	app.Post("/api/discounts/price", discountHandler.QuotePrice)
	app.Post("/api/discounts/range", discountHandler.QuoteRange)

	// Session routes
	app.Post("/api/sessions", sessionHandler.CreateSession)
	app.Get("/api/sessions/:id/coupon", sessionHandler.GetSession)
	app.Post("/api/sessions/:id/coupon", sessionHandler.ApplyCoupon)
	app.Delete("/api/sessions/:id/coupon", sessionHandler.ClearCoupon)
	app.Get("/api/sessions/:id/quote", sessionHandler.Quote)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close backing stores AFTER server shutdown (even if shutdown timed out)
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
