package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cs-ops-service/internal/config"
	"github.com/spec-kit/cs-ops-service/internal/service"
)

// SyncWorker runs the periodic background maintenance pass: reconcile
// mirrored tracker tasks first, then recompute health tiers so that freshly
// reconciled actions feed into segmentation in the same tick.
type SyncWorker struct {
	ongoing      *service.OngoingService
	segmentation *service.SegmentationService
	logger       *zap.Logger
	cfg          config.SyncConfig

	mu            sync.RWMutex
	lastSync      *service.SyncSummary
	lastRecompute *service.RecomputeSummary
}

// NewSyncWorker constructs the worker.
func NewSyncWorker(ongoing *service.OngoingService, segmentation *service.SegmentationService, logger *zap.Logger, cfg config.SyncConfig) *SyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncWorker{
		ongoing:      ongoing,
		segmentation: segmentation,
		logger:       logger,
		cfg:          cfg,
	}
}

// Start launches the tick loop in a goroutine. It returns immediately; the
// loop stops when ctx is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	if !w.cfg.Enabled {
		w.logger.Info("sync worker disabled")
		return
	}
	go w.run(ctx)
}

func (w *SyncWorker) run(ctx context.Context) {
	interval := w.cfg.Interval()
	w.logger.Info("sync worker started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes one maintenance pass. It is also the body of the manual
// admin trigger, so every error is logged and absorbed here.
func (w *SyncWorker) RunOnce(ctx context.Context) {
	syncSummary, err := w.ongoing.SyncExternalTasks(ctx)
	if err != nil {
		w.logger.Error("tracker reconciliation failed", zap.Error(err))
	} else {
		w.logger.Info("tracker reconciliation finished",
			zap.Int("cycles_scanned", syncSummary.CyclesScanned),
			zap.Int("actions_updated", syncSummary.ActionsUpdated),
			zap.Int("errors", syncSummary.Errors))
	}

	recomputeSummary, err := w.segmentation.RecomputeAll(ctx)
	if err != nil {
		w.logger.Error("segmentation sweep failed", zap.Error(err))
	} else {
		w.logger.Info("segmentation sweep finished",
			zap.Int("customers_scanned", recomputeSummary.CustomersScanned),
			zap.Int("tiers_changed", recomputeSummary.TiersChanged),
			zap.Int("errors", recomputeSummary.Errors))
	}

	w.mu.Lock()
	if syncSummary != nil {
		w.lastSync = syncSummary
	}
	if recomputeSummary != nil {
		w.lastRecompute = recomputeSummary
	}
	w.mu.Unlock()
}

// LastSync returns the most recent reconciliation summary, nil before the
// first pass.
func (w *SyncWorker) LastSync() *service.SyncSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastSync
}

// LastRecompute returns the most recent segmentation sweep summary.
func (w *SyncWorker) LastRecompute() *service.RecomputeSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRecompute
}
