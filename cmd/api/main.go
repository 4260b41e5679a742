package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/gateway"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/sla"
	"github.com/spec-kit/sla-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	metricsServer := observability.ServeMetrics(cfg.Metrics.Addr, registry, logger)

	pool := pg.PoolHandle()
	policyRepo := repository.NewPolicyRepository(pool)
	complianceRepo := repository.NewComplianceRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)

	ticketGateway := gateway.NewHTTPTicketGateway(cfg.Tickets.BaseURL, cfg.Tickets.Token, cfg.Tickets.Timeout())

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		ClaimRepo:        escalationRepo,
		TicketGateway:    ticketGateway,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Metrics:          metrics,
		FallbackAssignee: cfg.SLA.FallbackAssigneeID,
	})

	clock := sla.NewClock(logger)
	slaService := service.NewSLAService(service.SLADependencies{
		PolicyRepo:     policyRepo,
		ComplianceRepo: complianceRepo,
		AlertRepo:      alertRepo,
		TicketGateway:  ticketGateway,
		Escalation:     escalationService,
		Tracker:        sla.NewTracker(clock),
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
		Defaults: sla.Thresholds{
			WarningPercent:  cfg.SLA.DefaultWarningPercent,
			CriticalPercent: cfg.SLA.DefaultCriticalPercent,
		},
	})

	sweepWorker := worker.NewSweepWorker(slaService, policyRepo, redis.Client, metrics, cfg.Sweep, logger)
	if cfg.Sweep.Enabled {
		if err := sweepWorker.Start(); err != nil {
			logger.Fatal("failed to start sweep worker", zap.Error(err))
		}
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Compliance:     handlers.NewComplianceHandler(slaService),
		Alerts:         handlers.NewAlertsHandler(alertRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if cfg.Sweep.Enabled {
		<-sweepWorker.Stop().Done()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	observability.ShutdownMetrics(shutdownCtx, metricsServer)
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
