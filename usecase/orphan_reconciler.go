package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"
	"course-service/infrastructure/retry"

	"github.com/robfig/cron/v3"
)

// ReconcileResult counts what one reconciliation pass did.
type ReconcileResult struct {
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
	Abandoned int `json:"abandoned"`
}

// OrphanReconciler retries deletes recorded in the orphan ledger.
type OrphanReconciler struct {
	ledger      repository.IOrphanAsset
	uploader    repository.IMediaUploader
	batchSize   int
	maxAttempts int

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

func NewOrphanReconciler(ledger repository.IOrphanAsset, uploader repository.IMediaUploader, batchSize, maxAttempts int) *OrphanReconciler {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &OrphanReconciler{ledger: ledger, uploader: uploader, batchSize: batchSize, maxAttempts: maxAttempts}
}

// RunOnce processes one batch of pending orphans. A remote 404 counts as resolved.
// Transient failures never abandon an orphan; the store is expected to recover.
func (r *OrphanReconciler) RunOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	lg := logger.GetLogger()

	pending, err := r.ledger.FetchPending(ctx, r.batchSize)
	if err != nil {
		return res, fmt.Errorf("failed to fetch orphaned assets: %w", err)
	}
	for _, a := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		entry := lg.WithField("storageId", a.StorageID).WithField("ledgerId", a.ID)

		delErr := r.uploader.Delete(ctx, a.Kind, a.StorageID)
		if delErr == nil || errors.Is(delErr, model.ErrAssetNotFound) {
			if err := r.ledger.MarkResolved(ctx, a.ID); err != nil {
				entry.WithError(err).Error("Failed to mark orphan resolved")
				continue
			}
			res.Resolved++
			continue
		}

		abandon := a.Attempts+1 >= r.maxAttempts && !retry.IsTransient(delErr)
		if err := r.ledger.MarkFailed(ctx, a.ID, delErr.Error(), abandon); err != nil {
			entry.WithError(err).Error("Failed to update orphan attempts")
			continue
		}
		if abandon {
			entry.WithField("attempts", a.Attempts+1).Error("Orphaned asset abandoned")
			res.Abandoned++
		} else {
			entry.WithError(delErr).Warn("Orphan delete retry failed")
			res.Failed++
		}
	}
	if len(pending) > 0 {
		lg.Infof("Orphan reconciliation: %d resolved, %d failed, %d abandoned", res.Resolved, res.Failed, res.Abandoned)
	}
	return res, nil
}

// Start schedules RunOnce on a cron schedule such as "@every 5m". Overlapping
// runs are skipped.
func (r *OrphanReconciler) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if !r.tryAcquire() {
			logger.GetLogger().Debug("Orphan reconciliation still running, skipping tick")
			return
		}
		defer r.release()
		if _, err := r.RunOnce(ctx); err != nil {
			logger.GetLogger().WithError(err).Error("Orphan reconciliation failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconciler schedule %q: %w", schedule, err)
	}
	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	c.Start()
	logger.GetLogger().Infof("Orphan reconciler scheduled: %s", schedule)
	return nil
}

// Stop waits for a running pass to finish.
func (r *OrphanReconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

func (r *OrphanReconciler) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *OrphanReconciler) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}
