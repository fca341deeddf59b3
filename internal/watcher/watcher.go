package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
	"github.com/vipul43/listing-sync/internal/service"
)

// SyncRunner interface for dependency injection
type SyncRunner interface {
	RunFullSync(ctx context.Context, trigger models.SyncTrigger) (*models.SyncRun, error)
}

// TokenRefresher interface for dependency injection
type TokenRefresher interface {
	Refresh(ctx context.Context) (*models.Credential, error)
}

// Watcher drives the two independent schedules: the full sync and the
// keep-alive refresh that stops the refresh token going stale when no sync
// has needed one.
type Watcher struct {
	syncer          SyncRunner
	refresher       TokenRefresher
	syncSchedule    string
	refreshSchedule string
	logger          *zap.Logger
}

func New(syncer SyncRunner, refresher TokenRefresher, syncSchedule, refreshSchedule string, logger *zap.Logger) *Watcher {
	return &Watcher{
		syncer:          syncer,
		refresher:       refresher,
		syncSchedule:    syncSchedule,
		refreshSchedule: refreshSchedule,
		logger:          logger.With(zap.String("component", "watcher")),
	}
}

// Start registers both jobs and blocks until ctx is done. Jobs still
// running at that point are waited for.
func (w *Watcher) Start(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(w.logger))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	if _, err := c.AddFunc(w.syncSchedule, func() { w.runSync(ctx) }); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", w.syncSchedule, err)
	}
	if _, err := c.AddFunc(w.refreshSchedule, func() { w.runRefresh(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", w.refreshSchedule, err)
	}

	w.logger.Info("Starting scheduler",
		zap.String("sync_schedule", w.syncSchedule),
		zap.String("refresh_schedule", w.refreshSchedule))
	c.Start()

	<-ctx.Done()
	w.logger.Info("Scheduler shutting down...")
	<-c.Stop().Done()
	return ctx.Err()
}

func (w *Watcher) runSync(ctx context.Context) {
	run, err := w.syncer.RunFullSync(ctx, models.TriggerScheduled)
	if errors.Is(err, service.ErrSyncInProgress) {
		w.logger.Info("Skipping scheduled sync, a run is already in progress")
		return
	}
	if err != nil {
		w.logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}
	w.logger.Info("Scheduled sync finished",
		zap.String("run_id", run.ID),
		zap.Int("total", run.Total()))
}
