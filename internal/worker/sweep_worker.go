package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
)

const sweepCursorKeyPrefix = "sla:sweep:cursor:"

// SweepWorker periodically evaluates every open ticket so breaches that
// happen purely from the passage of time are caught without any ticket
// activity. Progress is checkpointed to Redis per batch, so an interrupted
// sweep resumes where it stopped; every pipeline step is idempotent, so
// re-running a partial sweep is always safe.
type SweepWorker struct {
	slaService *service.SLAService
	policies   repository.PolicyRepository
	redis      *redis.Client
	cron       *cron.Cron
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.SweepConfig

	mu       sync.Mutex
	running  bool
	sweeping bool
}

// NewSweepWorker creates the worker.
func NewSweepWorker(slaService *service.SLAService, policies repository.PolicyRepository, redisClient *redis.Client, metrics *observability.Metrics, cfg config.SweepConfig, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{
		slaService: slaService,
		policies:   policies,
		redis:      redisClient,
		cron:       cron.New(),
		logger:     logger.With(zap.String("component", "sweep")),
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Start schedules the periodic sweep.
func (w *SweepWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("sweep worker already running")
	}

	if _, err := w.cron.AddFunc("@every "+w.cfg.Interval().String(), w.runSweep); err != nil {
		return err
	}
	w.cron.Start()
	w.running = true

	w.logger.Info("sweep worker started",
		zap.Duration("interval", w.cfg.Interval()),
		zap.Int("batch_size", w.cfg.BatchSize))
	return nil
}

// Stop stops the scheduler gracefully and returns a context that is done
// once any in-flight sweep finished.
func (w *SweepWorker) Stop() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	w.running = false
	w.logger.Info("stopping sweep worker")
	return w.cron.Stop()
}

// RunNow triggers an immediate sweep, useful for tests and operations.
func (w *SweepWorker) RunNow() {
	w.runSweep()
}

func (w *SweepWorker) runSweep() {
	w.mu.Lock()
	if w.sweeping {
		w.mu.Unlock()
		w.logger.Debug("previous sweep still running, skipping")
		return
	}
	w.sweeping = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.sweeping = false
		w.mu.Unlock()
	}()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Interval())
	defer cancel()

	tenants, err := w.policies.ListTenants(ctx)
	if err != nil {
		w.logger.Error("sweep could not list tenants", zap.Error(err))
		return
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			w.logger.Warn("sweep interrupted, cursor kept for resume")
			return
		}
		w.sweepTenant(ctx, tenant)
	}

	w.metrics.RecordSweep(time.Since(start))
	w.logger.Info("sweep completed",
		zap.Int("tenants", len(tenants)),
		zap.Duration("duration", time.Since(start)))
}

// sweepTenant walks the tenant's open tickets in bounded batches. The
// cursor survives in Redis between batches and process restarts; it is
// cleared once a full pass finishes.
func (w *SweepWorker) sweepTenant(ctx context.Context, tenantID string) {
	cursorKey := sweepCursorKeyPrefix + tenantID
	cursor := w.loadCursor(ctx, cursorKey)

	for {
		lastID, count, err := w.slaService.SweepBatch(ctx, tenantID, cursor, w.cfg.BatchSize)
		if err != nil {
			w.logger.Warn("sweep batch failed, resuming next cycle",
				zap.String("tenant_id", tenantID),
				zap.String("cursor", cursor),
				zap.Error(err))
			return
		}
		if count == 0 {
			w.clearCursor(ctx, cursorKey)
			return
		}
		cursor = lastID
		w.saveCursor(ctx, cursorKey, cursor)
		if ctx.Err() != nil {
			return
		}
	}
}

func (w *SweepWorker) loadCursor(ctx context.Context, key string) string {
	if w.redis == nil {
		return ""
	}
	cursor, err := w.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			w.logger.Warn("sweep cursor read failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return cursor
}

func (w *SweepWorker) saveCursor(ctx context.Context, key, cursor string) {
	if w.redis == nil {
		return
	}
	if err := w.redis.Set(ctx, key, cursor, 24*time.Hour).Err(); err != nil {
		w.logger.Warn("sweep cursor write failed", zap.String("key", key), zap.Error(err))
	}
}

func (w *SweepWorker) clearCursor(ctx context.Context, key string) {
	if w.redis == nil {
		return
	}
	if err := w.redis.Del(ctx, key).Err(); err != nil {
		w.logger.Warn("sweep cursor delete failed", zap.String("key", key), zap.Error(err))
	}
}
