package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"decostore-rest-api/internal/cache"
	"decostore-rest-api/internal/config"
	"decostore-rest-api/internal/email"
	"decostore-rest-api/internal/handler"
	"decostore-rest-api/internal/metrics"
	"decostore-rest-api/internal/middleware"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/internal/proxy"
	"decostore-rest-api/internal/publisher"
	"decostore-rest-api/internal/repository"
	"decostore-rest-api/internal/router"
	"decostore-rest-api/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.MustLoad()

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if cfg.App.IsDevelopment() {
		logger.SetReportCaller(true)
	}
	if cfg.App.IsProduction() && len(cfg.Auth.APIKeys) == 0 {
		logger.Warn("STAFF_API_KEYS is empty, staff routes will reject every request")
	}
	logger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	}).Info("starting decostore API")

	m := metrics.New()
	readiness := make(map[string]handler.ReadinessCheck)

	// Cart mirror repository based on config
	mirror, err := openMirror(cfg.Mirror, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize cart mirror")
	}
	defer mirror.Close()
	readiness["mirror"] = func(ctx context.Context) error {
		_, err := mirror.GetStats(ctx)
		return err
	}

	// Price cache: Redis when configured, memory otherwise
	var priceCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, falling back to memory cache")
			priceCache = cache.NewMemoryCache()
		} else {
			logger.Info("redis price cache initialized")
			priceCache = redisCache
			readiness["cache"] = func(ctx context.Context) error {
				_, err := redisCache.Exists(ctx, "ready")
				return err
			}
		}
	default:
		priceCache = cache.NewMemoryCache()
	}
	defer priceCache.Close()

	// Quote log (optional)
	var quoteLogs repository.QuoteLogRepository
	if cfg.Mirror.MongoURI != "" {
		mongoRepo, err := repository.NewMongoQuoteLogRepository(
			cfg.Mirror.MongoURI,
			cfg.Mirror.MongoDatabase,
			cfg.Mirror.MongoCollection,
		)
		if err != nil {
			logger.WithError(err).Warn("MongoDB quote log unavailable")
		} else {
			defer mongoRepo.Close()
			quoteLogs = mongoRepo
			logger.Info("MongoDB quote log initialized")
		}
	}

	proxyClient := proxy.New(proxy.Options{
		BaseURL: cfg.Proxy.BaseURL,
		APIKey:  cfg.Proxy.APIKey,
		Timeout: cfg.Proxy.Timeout,
		Logger:  logger,
	})

	ltm := pricing.LTMConfig{
		Threshold: cfg.Pricing.LTMThreshold,
		Fee:       decimal.NewFromFloat(cfg.Pricing.LTMFee),
	}

	// Services
	registry := service.NewCartRegistry(service.CartDeps{
		Backend: proxyClient,
		Mirror:  mirror,
		LTM:     ltm,
		Logger:  logger,
		Metrics: m,
	})

	var events *publisher.KafkaPublisher
	if cfg.Kafka.Enabled() {
		events = publisher.NewKafkaPublisher(publisher.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, m, logger)
		registry.Subscribe(events.Publish)
		logger.WithField("topic", cfg.Kafka.Topic).Info("cart event publisher initialized")
	}

	priceService := service.NewPriceCacheService(proxyClient, priceCache, cfg.Cache.PriceTTL, logger)

	staff := email.NewDirectory(email.DefaultStaff, cfg.Email.DefaultSales)
	quoteDeps := service.QuoteDeps{
		Backend:    proxyClient,
		Calculator: pricing.NewCalculator(ltm),
		TemplateID: cfg.Email.TemplateID,
		Directory:  staff,
		Logs:       quoteLogs,
		Metrics:    m,
		Logger:     logger,
	}
	if cfg.Email.Enabled {
		quoteDeps.Email = email.NewClient(email.Options{
			BaseURL:   cfg.Email.BaseURL,
			ServiceID: cfg.Email.ServiceID,
			PublicKey: cfg.Email.PublicKey,
			Timeout:   cfg.Email.Timeout,
			Logger:    logger,
		})
	}
	quoteService := service.NewQuoteService(quoteDeps)

	cleanup := service.NewCleanupScheduler(mirror, service.CleanupConfig{
		StaleThreshold:  cfg.Cleanup.Threshold,
		CleanupInterval: cfg.Cleanup.Interval,
		InitialDelay:    time.Minute,
	}, logger)
	cleanup.Start()

	// Handlers
	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Name, cfg.App.Version, readiness),
		CartHandler:    handler.NewCartHandler(registry, logger),
		PricingHandler: handler.NewPricingHandler(priceService, logger),
		QuoteHandler:   handler.NewQuoteHandler(quoteService, staff, logger),
		AdminHandler: handler.NewAdminHandler(handler.AdminDeps{
			Mirror:     mirror,
			MirrorType: cfg.Mirror.Type,
			Prices:     priceService,
			Carts:      registry,
			Cleanup:    cleanup,
			QuoteLogs:  quoteLogs,
			Logger:     logger,
		}),
		StaffAuth:   middleware.NewStaffAuth(cfg.Auth.APIKeys),
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Address()).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		config.LogError(logger, "main", "shutdown", nil, err)
	}

	cleanup.Stop()

	// Carts are persisted to the mirror before the publisher drains.
	if err := registry.Close(); err != nil {
		config.LogError(logger, "cart_registry", "close", registry.Len(), err)
	}
	if events != nil {
		if err := events.Close(); err != nil {
			config.LogError(logger, "publisher", "close", cfg.Kafka.Topic, err)
		}
	}

	logger.Info("server stopped")
}

func openMirror(cfg config.MirrorConfig, logger logrus.FieldLogger) (repository.MirrorRepository, error) {
	switch cfg.Type {
	case "postgres", "postgresql":
		repo, err := repository.NewPostgresMirrorRepository(cfg.PostgresDSN(), logger)
		if err != nil {
			return nil, err
		}
		logger.Info("PostgreSQL cart mirror initialized")
		return repo, nil
	case "mysql":
		repo, err := repository.NewMySQLMirrorRepository(cfg.MySQLDSN(), logger)
		if err != nil {
			return nil, err
		}
		logger.Info("MySQL cart mirror initialized")
		return repo, nil
	default: // sqlite
		repo, err := repository.NewSQLiteMirrorRepository(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("SQLite cart mirror initialized")
		return repo, nil
	}
}
