package usecase

import (
	"context"
	"errors"

	"course-service/domain/model"
	"course-service/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// trackedAsset is a remote asset uploaded by the running mutation.
type trackedAsset struct {
	kind  model.MediaKind
	asset *model.MediaAsset
}

// mutation follows one create/edit/delete request through its stages.
type mutation struct {
	u        *CourseMutationUseCase
	id       string
	op       model.MutationOp
	courseID string
	stage    model.Stage
	batch    []trackedAsset
	uploaded int
	deleted  int
	log      *logrus.Entry
}

func (u *CourseMutationUseCase) begin(op model.MutationOp, mutationID, courseID string) *mutation {
	if mutationID == "" {
		mutationID = uuid.NewString()
	}
	return &mutation{
		u:        u,
		id:       mutationID,
		op:       op,
		courseID: courseID,
		log: logger.GetLogger().WithFields(logrus.Fields{
			"mutationId": mutationID,
			"op":         op,
			"courseId":   courseID,
		}),
	}
}

func (m *mutation) advance(stage model.Stage) {
	m.stage = stage
	m.log.WithField("stage", stage).Debug("Mutation stage reached")
	m.publish(model.MutationEvent{Stage: stage})
}

// progress reports per-item work without changing the stage.
func (m *mutation) progress(item string) {
	m.publish(model.MutationEvent{Stage: m.stage, Item: item})
}

func (m *mutation) publish(evt model.MutationEvent) {
	if m.u.events == nil {
		return
	}
	evt.MutationID = m.id
	evt.Op = m.op
	evt.CourseID = m.courseID
	evt.At = m.u.now()
	m.u.events.Publish(evt)
}

func (m *mutation) track(kind model.MediaKind, asset *model.MediaAsset) {
	m.batch = append(m.batch, trackedAsset{kind: kind, asset: asset})
	if kind == model.MediaKindVideo {
		m.uploaded++
	}
}

// fail moves the mutation to Failed, removes whatever this batch uploaded and
// returns the error envelope the caller sees.
func (m *mutation) fail(ctx context.Context, err error) error {
	failedAt := m.stage
	if failedAt == "" {
		failedAt = model.StageValidated
	}
	m.compensate(ctx)

	entry := m.log.WithField("stage", failedAt).WithError(err)
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) || errors.Is(err, model.ErrCourseNotFound) {
		entry.Warn("Mutation rejected")
	} else {
		entry.Error("Mutation aborted")
	}

	m.stage = model.StageFailed
	m.publish(model.MutationEvent{Stage: model.StageFailed, FailedAt: failedAt, Reason: err.Error()})
	merr := &model.MutationError{Op: m.op, Stage: failedAt, Err: err}
	m.audit(ctx, merr)
	return merr
}

// compensate deletes the assets uploaded by this mutation. It runs detached
// from the request context so a client disconnect still gets cleaned up.
func (m *mutation) compensate(ctx context.Context) {
	if len(m.batch) == 0 {
		return
	}
	cleanup := context.WithoutCancel(ctx)
	for i := len(m.batch) - 1; i >= 0; i-- {
		t := m.batch[i]
		if err := m.u.uploader.Delete(cleanup, t.kind, t.asset.StorageID); err != nil {
			m.u.orphan(cleanup, m, t.kind, t.asset.StorageID, "compensation: "+err.Error())
			continue
		}
		m.log.WithField("storageId", t.asset.StorageID).Info("Removed asset uploaded by failed mutation")
	}
	m.batch = nil
}

// removeRemote issues exactly one delete for an asset the mutation no longer
// references. A failure is recorded in the orphan ledger and never returned.
func (m *mutation) removeRemote(ctx context.Context, kind model.MediaKind, storageID string) {
	if storageID == "" {
		return
	}
	if err := m.u.uploader.Delete(ctx, kind, storageID); err != nil {
		m.u.orphan(context.WithoutCancel(ctx), m, kind, storageID, err.Error())
		return
	}
	m.log.WithField("storageId", storageID).Debug("Remote asset deleted")
}

func (m *mutation) succeed(ctx context.Context) {
	m.log.WithFields(logrus.Fields{"uploaded": m.uploaded, "deleted": m.deleted}).Info("Mutation completed")
	m.audit(ctx, nil)
}

func (m *mutation) audit(ctx context.Context, err error) {
	if m.u.audit == nil {
		return
	}
	row := &model.MutationAudit{
		MutationID: m.id,
		Op:         string(m.op),
		CourseID:   m.courseID,
		Stage:      string(m.stage),
		Outcome:    "success",
		Uploaded:   m.uploaded,
		Deleted:    m.deleted,
	}
	if err != nil {
		row.Outcome = "failed"
		row.Error = err.Error()
	}
	if aerr := m.u.audit.Append(context.WithoutCancel(ctx), row); aerr != nil {
		m.log.WithError(aerr).Warn("Failed to append mutation audit")
	}
}

// orphan records an asset whose delete failed and announces it.
func (u *CourseMutationUseCase) orphan(ctx context.Context, m *mutation, kind model.MediaKind, storageID, reason string) {
	lg := m.log.WithFields(logrus.Fields{"storageId": storageID, "kind": kind})
	lg.WithField("reason", reason).Warn("Remote delete failed, asset orphaned")
	if u.orphans == nil {
		return
	}
	asset := &model.OrphanedAsset{
		StorageID:  storageID,
		Kind:       kind,
		CourseID:   m.courseID,
		MutationID: m.id,
		Reason:     reason,
		Status:     model.OrphanStatusPending,
	}
	if err := u.orphans.Record(ctx, asset); err != nil {
		lg.WithError(err).Error("Failed to record orphaned asset")
		return
	}
	if u.assetEvents == nil {
		return
	}
	if err := u.assetEvents.PublishOrphaned(ctx, asset); err != nil {
		lg.WithError(err).Warn("Failed to publish orphaned asset event")
	}
}

func (u *CourseMutationUseCase) invalidate(ctx context.Context, m *mutation, when string) {
	n, err := u.cache.Invalidate(ctx, m.courseID)
	lg := m.log.WithField("phase", when)
	if err != nil {
		lg.WithError(err).Error("Cache invalidation failed")
		return
	}
	lg.WithField("keys", n).Debug("Cache invalidated")
}
