package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"ecomdash/internal/api"
	"ecomdash/internal/config"
	"ecomdash/internal/dashboard"
	"ecomdash/internal/logger"
	"ecomdash/internal/metrics"
	"ecomdash/internal/resource"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yml (defaults only when empty)")
	flag.Parse()

	log := logger.New()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Fatal("failed to configure logger")
	}
	entry := log.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Echo (Starts Instantly)
	m := metrics.New()
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.WARN)
	e.JSONSerializer = api.JSONSerializer{}
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Server.AllowOrigins}))
	e.Use(api.RequestID())
	e.Use(api.RequestLogger(log))
	e.Use(api.RequestMetrics(m))

	// 2. Handler starts without data and answers 503 until the load finishes
	h := api.NewHandler(nil, m)
	h.RegisterRoutes(e)

	var s3 resource.Provider
	if cfg.Storage.S3.Region != "" {
		p, err := resource.NewS3Provider(ctx, resource.S3Options{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			PathStyle:       cfg.Storage.S3.PathStyle,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		})
		if err != nil {
			entry.WithError(err).Warn("s3 disabled")
		} else {
			s3 = p
		}
	}
	provider := resource.NewRouter(cfg.Dataset.FetchTimeout, s3)

	// 3. Load the dataset in the background
	go func() {
		entry.Info("loading dataset")
		t0 := time.Now()

		svc, err := dashboard.Load(ctx, cfg, provider, log, m)
		if err != nil {
			entry.WithError(err).Error("dataset load failed")
			h.SetLoadError(err)
			return
		}
		h.SetService(svc)
		entry.LogPerformance("startup_load", time.Since(t0), logger.Fields{"orders": svc.Rows(), "points": svc.Points()})
	}()

	// 4. Start Server
	go func() {
		entry.WithFields(logger.Fields{"address": cfg.Server.Address}).Info("server ready, data loading in background")
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Error("shutdown failed")
	}
	entry.Info("server stopped")
}
