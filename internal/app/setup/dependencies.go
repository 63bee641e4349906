package setup

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/config"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/callback"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/kafka"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/metrics"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/migrate"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/repository"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/providers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/redislock"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.PaymentConfig
	Logger       *slog.Logger
	DB           *gorm.DB
	Redis        *redis.Client
	Locker       *redislock.Locker
	Publisher    *kafka.DefaultKafkaPublisher
	Dispatcher   *callback.Dispatcher
	Providers    *providers.Registry
	Metrics      *metrics.PaymentMetrics
	Repositories *Repositories
}

type Repositories struct {
	Store           domain.SettlementStore
	EscrowRepo      domain.EscrowRepository
	TransactionRepo domain.TransactionRepository
	WalletRepo      domain.WalletRepository
	CashoutRepo     domain.CashoutRepository
	ExchangeRepo    domain.ExchangeOrderRepository
	DisputeRepo     domain.DisputeRepository
	OTPRepo         domain.OTPRepository
	StatsRepo       domain.StatsRepository
	AuditRepo       domain.AuditRepository
	DeliveryRepo    domain.WebhookDeliveryRepository
	CleanupRepo     domain.CleanupRepository
}

func InitializeDependencies() (*Dependencies, error) {
	cfg := config.MustLoad()

	logger := initLogger(cfg.LogConfig)

	db := postgres.MustInitDB(cfg)

	if cfg.PaymentDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(db, cfg.PaymentDB.MigrationsPath); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})

	locker := redislock.NewLocker(redisClient, time.Duration(cfg.LockConfig.TTLSeconds)*time.Second)

	publisher := initPublisher(cfg)

	registry, err := initProviderRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("provider registry: %w", err)
	}

	paymentMetrics := metrics.NewPaymentMetrics()

	repos := &Repositories{
		Store:           repository.NewGormSettlementStore(db),
		EscrowRepo:      repository.NewDefaultEscrowRepository(db),
		TransactionRepo: repository.NewDefaultTransactionRepository(db),
		WalletRepo:      repository.NewDefaultWalletRepository(db),
		CashoutRepo:     repository.NewDefaultCashoutRepository(db),
		ExchangeRepo:    repository.NewDefaultExchangeOrderRepository(db),
		DisputeRepo:     repository.NewDefaultDisputeRepository(db),
		OTPRepo:         repository.NewDefaultOTPRepository(db),
		StatsRepo:       repository.NewDefaultStatsRepository(db),
		AuditRepo:       repository.NewDefaultAuditRepository(db),
		DeliveryRepo:    repository.NewDefaultWebhookDeliveryRepository(db),
		CleanupRepo:     repository.NewDefaultCleanupRepository(db),
	}

	dispatcher := callback.NewDispatcher(repos.DeliveryRepo, cfg.CallbackConfig.SigningSecret, cfg.CallbackConfig.MaxAttempts, paymentMetrics)

	return &Dependencies{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Redis:        redisClient,
		Locker:       locker,
		Publisher:    publisher,
		Dispatcher:   dispatcher,
		Providers:    registry,
		Metrics:      paymentMetrics,
		Repositories: repos,
	}, nil
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stdout
	if cfg.LogOutput == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func initPublisher(cfg *config.PaymentConfig) *kafka.DefaultKafkaPublisher {
	brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
	return kafka.NewDefaultKafkaPublisher(brokers)
}

// initProviderRegistry registers one adapter per configured provider. An
// unknown provider name is a config mistake and refuses to boot; ignoring
// it would silently turn that provider's webhooks into 401s.
func initProviderRegistry(cfg *config.PaymentConfig) (*providers.Registry, error) {
	registry := providers.NewRegistry()
	for _, p := range cfg.Providers {
		switch p.Name {
		case "dynopay":
			registry.Register(providers.NewDynopay(), p.Secret)
		case "fincra":
			registry.Register(providers.NewFincra(), p.Secret)
		case "blockbee":
			registry.Register(providers.NewBlockBee(), p.Secret)
		default:
			return nil, fmt.Errorf("unknown provider %q in config", p.Name)
		}
	}
	return registry, nil
}
