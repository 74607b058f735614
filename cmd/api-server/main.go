package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-operations/internal/api"
	"github.com/hackgods/clinic-operations/internal/appointment"
	"github.com/hackgods/clinic-operations/internal/calendar"
	"github.com/hackgods/clinic-operations/internal/config"
	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/identity"
	"github.com/hackgods/clinic-operations/internal/kyc"
	"github.com/hackgods/clinic-operations/internal/logging"
	"github.com/hackgods/clinic-operations/internal/mailer"
	"github.com/hackgods/clinic-operations/internal/metrics"
	"github.com/hackgods/clinic-operations/internal/notification"
	redisclient "github.com/hackgods/clinic-operations/internal/redis"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	logger := logging.New("api-server", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.DBMaxConns)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Redis is optional; without it transitions rely on conditional updates alone.
	var (
		locker      redisclient.Locker = redisclient.NoopLocker{}
		redisHealth api.Pinger
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.ClientOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisRecordLocker(rdb, cfg.LockTTL)
		redisHealth = redisclient.NewHealth(rdb)
		logger.Info().Msg("connected to Redis")
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, record locks disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sender, err := buildSender(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mail sender setup error")
	}
	dispatcher := mailer.NewDispatcher(sender, mailer.DispatcherOptions{
		Workers:     cfg.MailWorkers,
		QueueSize:   cfg.MailQueueSize,
		SendTimeout: cfg.MailSendTimeout,
	}, logger, mailer.MetricsObserver(m))
	dispatcher.Start(rootCtx)

	identities := identity.NewPgRepository(pgPool)
	notifier := notification.NewEngine(notification.NewPgRepository(pgPool), logger, m)

	appointments := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		identities,
		appointment.NewFallbackChain(identities, cfg.DefaultDoctorID, cfg.DefaultDoctorEmail),
		locker,
		notifier,
		dispatcher,
		m,
		logger,
		appointment.Options{NotificationMailbox: cfg.NotificationMailbox},
	)
	reviews := kyc.NewService(kyc.NewPgRepository(pgPool), identities, locker, notifier, dispatcher, m, logger)
	events := calendar.NewService(calendar.NewPgRepository(pgPool), notifier, m, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments:       appointments,
		KYC:                reviews,
		Notifications:      notifier,
		Calendar:           events,
		Health:             api.NewHealthHandler(pgPool, redisHealth, cfg.Env, version),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Metrics:            m,
		Logger:             logger,
		ExposeErrorDetails: !cfg.IsProd(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	dispatcher.Close()
	logger.Info().Msg("api-server stopped")
}

func buildSender(ctx context.Context, cfg config.Config, logger zerolog.Logger) (mailer.Sender, error) {
	switch cfg.MailProvider {
	case "sendgrid":
		return mailer.NewSendGridSender(mailer.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, logger), nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return mailer.NewSESSender(sesv2.NewFromConfig(awsCfg), mailer.SESConfig{
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, logger), nil
	default:
		return mailer.NewStubSender(logger), nil
	}
}
