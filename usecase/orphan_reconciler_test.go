package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"course-service/domain/model"
	"course-service/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrphanReconciler_RunOnce(t *testing.T) {
	ledger, uploader := new(MockLedger), new(MockUploader)
	r := usecase.NewOrphanReconciler(ledger, uploader, 20, 3)

	pending := []*model.OrphanedAsset{
		{ID: 1, StorageID: "v-ok", Kind: model.MediaKindVideo, Attempts: 0},
		{ID: 2, StorageID: "v-gone", Kind: model.MediaKindVideo, Attempts: 1},
		{ID: 3, StorageID: "img-flaky", Kind: model.MediaKindImage, Attempts: 0},
		{ID: 4, StorageID: "v-stuck", Kind: model.MediaKindVideo, Attempts: 2},
	}
	ledger.On("FetchPending", mock.Anything, 20).Return(pending, nil).Once()

	uploader.On("Delete", mock.Anything, model.MediaKindVideo, "v-ok").Return(nil).Once()
	uploader.On("Delete", mock.Anything, model.MediaKindVideo, "v-gone").
		Return(&model.RemoteDeleteError{StorageID: "v-gone", Err: fmt.Errorf("404: %w", model.ErrAssetNotFound)}).Once()
	uploader.On("Delete", mock.Anything, model.MediaKindImage, "img-flaky").Return(errors.New("503")).Once()
	uploader.On("Delete", mock.Anything, model.MediaKindVideo, "v-stuck").Return(errors.New("403")).Once()

	ledger.On("MarkResolved", mock.Anything, int64(1)).Return(nil).Once()
	ledger.On("MarkResolved", mock.Anything, int64(2)).Return(nil).Once()
	ledger.On("MarkFailed", mock.Anything, int64(3), "503", false).Return(nil).Once()
	ledger.On("MarkFailed", mock.Anything, int64(4), "403", true).Return(nil).Once()

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.ReconcileResult{Resolved: 2, Failed: 1, Abandoned: 1}, res)
	ledger.AssertExpectations(t)
	uploader.AssertExpectations(t)
}

func TestOrphanReconciler_TransientFailureIsNotAbandoned(t *testing.T) {
	ledger, uploader := new(MockLedger), new(MockUploader)
	r := usecase.NewOrphanReconciler(ledger, uploader, 5, 3)

	ledger.On("FetchPending", mock.Anything, 5).
		Return([]*model.OrphanedAsset{{ID: 7, StorageID: "v-outage", Kind: model.MediaKindVideo, Attempts: 5}}, nil).Once()
	uploader.On("Delete", mock.Anything, model.MediaKindVideo, "v-outage").
		Return(&model.RemoteDeleteError{StorageID: "v-outage", Err: fmt.Errorf("503: %w", model.ErrTransient)}).Once()
	ledger.On("MarkFailed", mock.Anything, int64(7), mock.Anything, false).Return(nil).Once()

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.ReconcileResult{Failed: 1}, res)
	ledger.AssertExpectations(t)
}

func TestOrphanReconciler_FetchError(t *testing.T) {
	ledger, uploader := new(MockLedger), new(MockUploader)
	r := usecase.NewOrphanReconciler(ledger, uploader, 0, 0)

	ledger.On("FetchPending", mock.Anything, 50).Return(nil, errors.New("conn refused")).Once()

	_, err := r.RunOnce(context.Background())
	assert.Error(t, err)
	uploader.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrphanReconciler_StopsOnCancelledContext(t *testing.T) {
	ledger, uploader := new(MockLedger), new(MockUploader)
	r := usecase.NewOrphanReconciler(ledger, uploader, 5, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger.On("FetchPending", mock.Anything, 5).Return([]*model.OrphanedAsset{{ID: 1, StorageID: "v"}}, nil).Once()

	_, err := r.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	uploader.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrphanReconciler_Schedule(t *testing.T) {
	r := usecase.NewOrphanReconciler(new(MockLedger), new(MockUploader), 5, 3)

	assert.Error(t, r.Start(context.Background(), "every now and then"))

	require.NoError(t, r.Start(context.Background(), "@every 1h"))
	r.Stop()
}
