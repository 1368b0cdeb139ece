package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kursadbilgin/interview-dispatch/internal/config"
	"github.com/kursadbilgin/interview-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/interview-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/interview-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/interview-dispatch/internal/notify"
	"github.com/kursadbilgin/interview-dispatch/internal/observability"
	"github.com/kursadbilgin/interview-dispatch/internal/provider"
	"github.com/kursadbilgin/interview-dispatch/internal/repository"
	"github.com/kursadbilgin/interview-dispatch/internal/service"
	"go.uber.org/zap"
)

type options struct {
	csvPath    string
	sendOnly   bool
	probeEmail string
}

func (o options) mode() string {
	switch {
	case strings.TrimSpace(o.probeEmail) != "":
		return observability.ModeProbe
	case o.sendOnly:
		return observability.ModeSendOnly
	default:
		return observability.ModeIngest
	}
}

func main() {
	var opts options
	flag.StringVar(&opts.csvPath, "csv", "", "candidate CSV path (overrides CSV_INPUT_PATH)")
	flag.BoolVar(&opts.sendOnly, "send-only", false, "skip CSV ingest and only send invitations for pending records")
	flag.StringVar(&opts.probeEmail, "probe-email", "", "send a single test email to this address and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if opts.csvPath != "" {
		cfg.CSVInputPath = opts.csvPath
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = observability.WithRunMode(observability.WithRunID(ctx, runID), opts.mode())

	if err := run(ctx, cfg, opts, logger); err != nil {
		observability.WithContextLogger(logger, ctx).Fatal("interview dispatch failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	metrics := observability.NewMetrics()

	mailer, err := provider.New(provider.Config{
		Name: cfg.EmailProvider,
		Demo: cfg.DemoMode,
		MailerSend: provider.MailerSendConfig{
			APIKey:    cfg.MailerSendAPIKey,
			BaseURL:   cfg.MailerSendAPIURL,
			FromEmail: cfg.MailerSendFromEmail,
			FromName:  cfg.MailerSendFromName,
			ReplyTo:   cfg.MailerSendReplyTo,
		},
		Mailgun: provider.MailgunConfig{
			APIKey:    cfg.MailgunAPIKey,
			Domain:    cfg.MailgunDomain,
			BaseURL:   cfg.MailgunAPIURL,
			FromEmail: cfg.MailgunFromEmail,
		},
	})
	if err != nil {
		return fmt.Errorf("email provider initialization failed: %w", err)
	}

	sender, err := notify.NewSender(mailer, logger)
	if err != nil {
		return err
	}
	sender.SetMetrics(metrics)

	runLogger := observability.WithContextLogger(logger, ctx)
	runLogger.Info("email provider ready",
		zap.String("provider", sender.Provider()),
		zap.Bool("demo", cfg.DemoMode),
	)

	if strings.TrimSpace(opts.probeEmail) != "" {
		return service.SendProbe(ctx, sender, opts.probeEmail, runLogger)
	}

	store, closeStore, err := newStore(ctx, cfg, runLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	dispatcher, err := service.NewDispatcher(store, sender, service.DispatcherConfig{
		BatchSize: cfg.EmailBatchSize,
		Delay:     cfg.EmailDelay(),
	}, logger)
	if err != nil {
		return err
	}
	dispatcher.SetMetrics(metrics)

	pipeline, err := service.NewPipeline(store, dispatcher, service.PipelineConfig{
		CSVPath:        cfg.CSVInputPath,
		SendOnly:       opts.sendOnly,
		PushgatewayURL: cfg.PushgatewayURL,
	}, logger)
	if err != nil {
		return err
	}
	pipeline.SetMetrics(metrics)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()

		ttl, err := cfg.RunLockDuration()
		if err != nil {
			return err
		}
		lock, err := infraredis.NewRunLock(rdb, infraredis.DefaultRunLockKey, ttl)
		if err != nil {
			return err
		}
		pipeline.SetRunLock(lock)
	}

	_, err = pipeline.Run(ctx)
	return err
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.RoundRepository, func(), error) {
	switch cfg.Backend() {
	case config.StorePostgres:
		db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres initialization failed: %w", err)
		}
		if err := migrations.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("postgres underlying db init failed: %w", err)
		}

		logger.Info("record store ready", zap.String("backend", config.StorePostgres))
		return repository.NewGormRoundRepo(db), func() { _ = sqlDB.Close() }, nil
	default:
		store, err := repository.NewAirtableRoundRepo(repository.AirtableConfig{
			APIKey:  cfg.AirtableAPIKey,
			BaseID:  cfg.AirtableBaseID,
			Table:   cfg.AirtableTableName,
			BaseURL: cfg.AirtableAPIURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("airtable initialization failed: %w", err)
		}

		logger.Info("record store ready",
			zap.String("backend", config.StoreAirtable),
			zap.String("baseId", cfg.AirtableBaseID),
			zap.String("apiKey", observability.Mask(cfg.AirtableAPIKey)),
		)
		return store, func() {}, nil
	}
}
