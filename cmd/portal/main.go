package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/config"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/adapters/billing"
	"hotspot-portal/internal/infra/adapters/router"
	pg "hotspot-portal/internal/infra/db/postgres"
	"hotspot-portal/internal/infra/i18n"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/infra/metrics"
	red "hotspot-portal/internal/infra/redis"
	"hotspot-portal/internal/infra/scheduler"
	"hotspot-portal/internal/infra/security"
	"hotspot-portal/internal/infra/web"
	"hotspot-portal/internal/infra/worker"
	"hotspot-portal/internal/usecase"
)

// set via -ldflags
var (
	version = "dev"
	commit  = "none"
)

const memBackendURL = "mem://"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (in-memory backend, verbose logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("DEV MODE enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Encryption ----
	sealer, err := newSealer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	sessionStore := red.NewSessionStore(redisClient, sealer, cfg.Session.TTL)
	watchStore := red.NewPaymentWatchStore(redisClient, cfg.Payment.WatchRetention)
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Postgres (optional audit log) ----
	var activityRepo repository.ActivationLogRepository
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrate")
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
		activityRepo = pg.NewActivationLogRepo(pool)
	} else {
		logger.Info().Msg("database.url not set; activation log disabled")
	}

	// ---- Billing backend ----
	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("billing backend")
	}

	// ---- Gateways ----
	inspector := security.JWTInspector{}
	bridge := router.NewBridge(cfg.Portal.DefaultLoginURL, cfg.Portal.DefaultDst, cfg.Portal.UseDefaultLogin)

	pool := worker.NewPool(cfg.Payment.Workers, logger)
	pool.Start(ctx)

	// ---- Use cases ----
	sessionUC := usecase.NewSessionUseCase(sessionStore, backend, inspector, logger)
	paymentUC := usecase.NewPaymentUseCase(backend, activityRepo, logger, cfg.Runtime.Dev)
	portalUC := usecase.NewPortalUseCase(backend, sessionStore, bridge, paymentUC, activityRepo, logger)
	voucherUC := usecase.NewVoucherUseCase(
		backend, sessionStore, bridge, rateLimiter, inspector, portalUC,
		usecase.RedeemLimit{Limit: cfg.Portal.RedeemLimit, Window: cfg.Portal.RedeemWindow},
		activityRepo, logger, cfg.Runtime.Dev,
	)
	batchUC := usecase.NewBatchUseCase(backend, logger)
	activityUC := usecase.NewActivityUseCase(activityRepo)

	tracker := usecase.NewPaymentTracker(backend, usecase.TrackerConfig{
		Interval:    cfg.Payment.PollInterval,
		MaxAttempts: cfg.Payment.MaxAttempts,
		MaxWait:     cfg.Payment.MaxWait,
	}, logger)
	watcher := usecase.NewPaymentWatcher(tracker, watchStore, pool, locker, logger)

	// ---- Audit log retention ----
	var pruner *scheduler.Scheduler
	if activityRepo != nil {
		retention := cfg.Database.Retention
		pruner = scheduler.NewScheduler("activation-prune", cfg.Database.PruneInterval, func(ctx context.Context) error {
			n, err := activityUC.Prune(ctx, retention)
			if n > 0 {
				logger.Info().Int64("deleted", n).Msg("activation events pruned")
			}
			return err
		}, logger)
		pruner.Start(ctx)
	}

	// ---- HTTP ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Portal.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	auth := web.NewAuthManager(cfg.Session.Secret, cfg.Session.SecureCookie, cfg.Session.CookieDomain, cfg.Session.TTL)
	srv, err := web.NewServer(web.Deps{
		Sessions: sessionUC,
		Portal:   portalUC,
		Vouchers: voucherUC,
		Payments: paymentUC,
		Watcher:  watcher,
		Batches:  batchUC,
		Activity: activityUC,
	}, auth, tr, web.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		PollInterval:   cfg.Payment.PollInterval,
		SuccessDelay:   cfg.Payment.SuccessDelay,
		LoginPath:      cfg.Portal.LoginPath,
		DashboardPath:  cfg.Portal.DashboardPath,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("web server")
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("portal listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	watcher.StopAll()
	if pruner != nil {
		pruner.Stop()
	}
	cancel()
	pool.Stop()
	logger.Info().Msg("bye")
}

// newSealer uses the configured key, or derives an insecure one in dev mode.
func newSealer(cfg *config.Config, logger *zerolog.Logger) (*security.EncryptionService, error) {
	key := cfg.Security.EncryptionKey
	if key == "" && cfg.Runtime.Dev {
		logger.Warn().Msg("security.encryption_key not set; using a derived dev key (INSECURE)")
		return security.NewDevEncryptionService(cfg.Session.Secret)
	}
	return security.NewEncryptionService(key)
}

func newBackend(cfg *config.Config, logger *zerolog.Logger) (adapter.BillingBackend, error) {
	if strings.HasPrefix(cfg.Billing.BaseURL, memBackendURL) {
		if !cfg.Runtime.Dev {
			return nil, errors.New("the in-memory billing backend requires -dev")
		}
		logger.Warn().Msg("using the in-memory billing backend")
		return seedDemo(billing.NewMemoryBackend()), nil
	}
	return billing.NewRESTClient(cfg.Billing.BaseURL, cfg.Billing.Timeout, logger)
}
