package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

// ErrSyncInProgress is returned when another run holds the lease.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// Validator checks run preconditions.
type Validator interface {
	Validate() error
}

// AccountProcessor interface for dependency injection
type AccountProcessor interface {
	ProcessAccount(ctx context.Context, account models.SourceAccount, pageSize int) (int, error)
}

type Syncer struct {
	validator Validator
	processor AccountProcessor
	roster    []models.SourceAccount
	pageSize  int
	running   atomic.Bool
	logger    *zap.Logger
}

func NewSyncer(validator Validator, processor AccountProcessor, roster []models.SourceAccount, pageSize int, logger *zap.Logger) *Syncer {
	return &Syncer{
		validator: validator,
		processor: processor,
		roster:    roster,
		pageSize:  pageSize,
		logger:    logger.With(zap.String("component", "syncer")),
	}
}

// Running reports whether a run currently holds the lease.
func (s *Syncer) Running() bool {
	return s.running.Load()
}

// RunFullSync walks the roster sequentially. A configuration error aborts
// the run before any account is touched; an account whose listing fetch
// fails is counted as 0 and the run moves on.
func (s *Syncer) RunFullSync(ctx context.Context, trigger models.SyncTrigger) (*models.SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	run := &models.SyncRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    models.SyncRunRunning,
		StartedAt: time.Now(),
		Counts:    make(map[string]int, len(s.roster)),
	}
	log := s.logger.With(zap.String("run_id", run.ID), zap.String("trigger", string(trigger)))

	if err := s.validator.Validate(); err != nil {
		s.finish(run, models.SyncRunFailed)
		log.Error("Sync aborted", zap.Error(err))
		return run, fmt.Errorf("failed to start sync: %w", err)
	}

	log.Info("Sync started", zap.Int("accounts", len(s.roster)))
	for _, account := range s.roster {
		count, err := s.processor.ProcessAccount(ctx, account, s.pageSize)
		if err != nil {
			log.Error("Failed to process account", zap.String("account", account.Name), zap.Error(err))
			count = 0
		}
		run.Counts[account.Name] = count
	}

	s.finish(run, models.SyncRunCompleted)
	log.Info("Sync completed",
		zap.Any("counts", run.Counts),
		zap.Int("total", run.Total()),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)))
	return run, nil
}

func (s *Syncer) finish(run *models.SyncRun, status models.SyncRunStatus) {
	now := time.Now()
	run.Status = status
	run.FinishedAt = &now
}
