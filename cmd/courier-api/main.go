// README: Entry point; loads config, wires services, starts HTTP server and the zone change subscriber.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"courier/internal/config"
	httptransport "courier/internal/http"
	"courier/internal/http/handlers"
	"courier/internal/infra"
	"courier/internal/maps"
	"courier/internal/metrics"
	"courier/internal/modules/delivery"
	"courier/internal/modules/pricing"
	"courier/internal/modules/zone"
)

const serviceName = "courier-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		infra.NewLogger(serviceName, "", "error", os.Stderr).Error("load config", "error", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(serviceName, cfg.Log.Environment, cfg.Log.Level, os.Stdout)
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		fatal("firebase init", errors.New("COURIER_FIREBASE_PROJECT_ID is required"))
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		fatal("firebase init", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		fatal("connect db", err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	m := metrics.New("courier")

	zoneStore := zone.NewStore(dbPool)
	registry := zone.NewRegistry(zoneStore, logger, m)
	feed := zone.NewChangeFeed(redisClient, logger)
	zoneSvc := zone.NewService(zoneStore, registry, feed, logger)

	pricingSvc := pricing.NewService(registry, pricing.SystemClock(cfg.Pricing.Location), logger, m)

	var (
		geo        delivery.DistrictResolver
		geoBreaker handlers.BreakerReporter
	)
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocoder(cfg.Maps.APIKey, logger)
		if err != nil {
			fatal("maps init", err)
		}
		geo, geoBreaker = g, g
	} else {
		logger.Warn("COURIER_MAPS_API_KEY not set; packages must carry districts")
	}

	deliverySvc := delivery.NewService(delivery.NewStore(dbPool), pricingSvc, geo, logger, m)

	go func() {
		if err := feed.Run(ctx, pricingSvc.OnZoneMappingChanged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("zone change feed stopped", "error", err)
		}
	}()

	if cfg.Log.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Pricing:  pricingSvc,
		Zones:    zoneSvc,
		Packages: deliverySvc,
		Verifier: verifier,
		Geocoder: geoBreaker,
		Logger:   logger,
		Metrics:  m,
	})

	if err := httptransport.NewServer(cfg.HTTP.Addr, router, logger).Run(ctx); err != nil {
		fatal("http server", err)
	}
}
