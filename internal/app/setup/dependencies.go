package setup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/config"
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/lock"
	runlogger "github.com/LavaJover/shvark-commission-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/processor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Publisher interface {
	domain.EventPublisher
	Close() error
}

type Dependencies struct {
	Config       *config.CommissionConfig
	DB           *gorm.DB
	Logger       *slog.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.CommissionMetrics
	Publisher    Publisher
	Processor    domain.PaymentProcessor
	AccountCache *cache.CachedAccountReader
	Redis        *redis.Client
	RunGuard     lock.RunGuard
	Repositories *Repositories
}

type Repositories struct {
	SaleRepo         *repository.DefaultSaleRepository
	PaymentRepo      *repository.DefaultPaymentRepository
	AffiliateRepo    *repository.DefaultAffiliateRepository
	NotificationRepo *repository.DefaultNotificationRepository
	RunLog           *runlogger.PGRunLogger
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		SaleRepo:         repository.NewDefaultSaleRepository(db),
		PaymentRepo:      repository.NewDefaultPaymentRepository(db),
		AffiliateRepo:    repository.NewDefaultAffiliateRepository(db),
		NotificationRepo: repository.NewDefaultNotificationRepository(db),
		RunLog:           runlogger.NewPGRunLogger(db),
	}
}

func InitializeDependencies(cfg *config.CommissionConfig, logger *slog.Logger) (*Dependencies, error) {
	db, err := postgres.InitDB(cfg.CommissionDB.Dsn)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCommissionMetrics(registry)

	stripeProcessor := processor.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.RatePerSecond, cfg.Stripe.Burst, m)

	redisClient, guard, err := initRunGuard(cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Registry:     registry,
		Metrics:      m,
		Publisher:    initPublisher(cfg.KafkaService, logger),
		Processor:    stripeProcessor,
		AccountCache: cache.NewCachedAccountReader(stripeProcessor, cfg.Onboarding.StatusCacheTTL),
		Redis:        redisClient,
		RunGuard:     guard,
		Repositories: NewRepositories(db),
	}, nil
}

func initPublisher(cfg config.KafkaService, logger *slog.Logger) Publisher {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Warn("kafka host not configured, events are not published")
		return kafka.NoopPublisher{}
	}
	return kafka.NewKafkaPublisher(brokers, cfg.NotificationsTopic, cfg.PayoutsTopic)
}

func initRunGuard(cfg config.Redis, logger *slog.Logger) (*redis.Client, lock.RunGuard, error) {
	if cfg.URL == "" {
		logger.Warn("redis not configured, job guard is process local")
		return nil, lock.NewLocalRunGuard(), nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	host, _ := os.Hostname()
	owner := fmt.Sprintf("%s:%d", host, os.Getpid())
	return client, lock.NewRedisRunGuard(client, cfg.LockTTL, owner), nil
}

func (d *Dependencies) Close() {
	if err := d.Publisher.Close(); err != nil {
		d.Logger.Error("failed to close publisher", "error", err)
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("failed to close redis", "error", err)
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
