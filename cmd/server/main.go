package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sifan077/LinkLedger/config"
	"github.com/sifan077/LinkLedger/internal/app/filter"
	appmodel "github.com/sifan077/LinkLedger/internal/app/model"
	"github.com/sifan077/LinkLedger/internal/app/report"
	apprepository "github.com/sifan077/LinkLedger/internal/app/repository"
	appserver "github.com/sifan077/LinkLedger/internal/app/server"
	"github.com/sifan077/LinkLedger/internal/app/service"
	"github.com/sifan077/LinkLedger/internal/infra/logger"
	infraNATS "github.com/sifan077/LinkLedger/internal/infra/nats"
	infraPostgres "github.com/sifan077/LinkLedger/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/LinkLedger/internal/infra/prometheus"
	infraRedis "github.com/sifan077/LinkLedger/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.MustInit(logger.FromEnv(cfg.Server.Env, cfg.Server.LogLevel, "linkledger"))
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.Server.Env),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	defer func() { _ = infraPostgres.Close(gormDB) }()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}, &appmodel.DownloadLog{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))
	}

	var events service.EventPublisher
	if cfg.NATS.Enabled {
		natsConn, publisher, err := connectEvents(cfg.NATS)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer func() { _ = natsConn.Drain() }()
		events = publisher
		log.Info("Connected to NATS successfully", zap.String("stream", cfg.NATS.Stream))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infraPrometheus.NewMetrics(registry)

	if cfg.Prometheus.Enabled {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, registry)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	seen := filter.NewSeenURLs(cfg.Dedupe.Capacity, cfg.Dedupe.FalsePositiveRate)

	linkService := service.NewLinkService(service.LinkDeps{
		Repo:    linkRepo,
		Seen:    seen,
		Events:  events,
		Metrics: metrics,
		Logger:  log.Named("links"),
	})
	if n, err := linkService.WarmDedupe(ctx); err != nil {
		log.Warn("Failed to warm dedupe filter", zap.Error(err))
	} else {
		log.Info("Dedupe filter warmed", zap.Int("urls", n))
	}

	reportService := service.NewReportService(service.ReportDeps{
		Links: linkRepo,
		Builder: report.NewBuilder(report.Header{
			Title:    cfg.Report.Title,
			Subtitle: cfg.Report.Subtitle,
			Author:   cfg.Report.Author,
		}),
		Events:  events,
		Metrics: metrics,
		Logger:  log.Named("reports"),
	})
	logService := service.NewDownloadLogService(
		apprepository.NewDownloadLogRepository(gormDB),
		cfg.Report.DefaultUser,
		nil,
	)

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Server:    cfg.Server,
		RateLimit: cfg.RateLimit,
		Postgres:  pool,
		Redis:     redisClient,
		Metrics:   metrics,
		Links:     linkService,
		Logs:      logService,
		Reports:   reportService,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down Fiber server", zap.Error(err))
		}
	}
}

func connectEvents(cfg config.NATSConfig) (*nats.Conn, *service.JetStreamPublisher, error) {
	conn, js, err := infraNATS.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}

	publisher := service.NewJetStreamPublisher(js)
	if err := publisher.EnsureStream(cfg.Stream); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, publisher, nil
}
