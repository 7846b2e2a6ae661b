package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"delivery-and-compliance/internal/config"
	"delivery-and-compliance/internal/middleware"
	"delivery-and-compliance/internal/models"
	"delivery-and-compliance/internal/modules/checkout"
	"delivery-and-compliance/internal/modules/compliance"
	"delivery-and-compliance/internal/modules/geofence"
	"delivery-and-compliance/pkg/geo"
	"delivery-and-compliance/pkg/notify"
	"delivery-and-compliance/pkg/payment"
	"delivery-and-compliance/pkg/validation"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.String("tz", cfg.Timezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}

	// Zones are static configuration: loaded and validated once, then the
	// evaluator runs over the in-memory list. A bad polygon fails startup.
	zoneRepo := geofence.NewRepository(db)
	zones, err := zoneRepo.ListZones(ctx)
	if err != nil {
		logger.Fatal("zone load failed", zap.Error(err))
	}
	logger.Info("delivery zones loaded", zap.Int("count", len(zones)))

	store := geo.Coordinate{Lat: cfg.StoreLat, Lng: cfg.StoreLng}
	geofenceSvc := geofence.NewService(zones, store, loc, cfg.GoogleMapsAPIKey, logger)

	complianceRepo := compliance.NewRepository(db)
	complianceSvc := compliance.NewService(complianceRepo, models.DefaultLimitConfig(), loc, logger)

	payments := payment.NewStripeService(cfg.StripeAPIKey)

	var mailer notify.Sender
	if cfg.SESSender != "" {
		sesMailer, err := notify.NewSESMailer(ctx, cfg.SESRegion, cfg.SESSender)
		if err != nil {
			logger.Fatal("ses mailer setup failed", zap.Error(err))
		}
		mailer = sesMailer
	} else {
		mailer = &notify.LogSender{Logger: logger}
	}

	orderRepo := checkout.NewRepository(db)
	checkoutSvc := checkout.NewService(orderRepo, geofenceSvc, complianceSvc, payments, mailer, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api")
	geofence.NewHandler(geofenceSvc).RegisterRoutes(api)

	protected := e.Group("/api", middleware.JWT(cfg.JWTSecret))
	compliance.NewHandler(complianceSvc).RegisterRoutes(protected)
	checkout.NewHandler(checkoutSvc).RegisterRoutes(protected)

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.ServerPort))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
