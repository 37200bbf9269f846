package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"course-service/domain/model"
	"course-service/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func testUploader(video, image *mockStore) *Uploader {
	return NewUploader(video, image, UploaderConfig{MaxAttempts: 3, VideoFolder: "courses/videos", ImageFolder: "courses/thumbnails"})
}

func TestUploader_SucceedsOnThirdAttempt(t *testing.T) {
	video := new(mockStore)
	path := writeTemp(t, "lesson.mp4", 2048)
	transient := fmt.Errorf("503: %w", model.ErrTransient)

	video.On("Upload", mock.Anything, mock.AnythingOfType("repository.MediaUploadInput")).Return(nil, transient).Twice()
	video.On("Upload", mock.Anything, mock.AnythingOfType("repository.MediaUploadInput")).
		Return(&model.MediaAsset{StorageID: "vid-1", URL: "https://youtu.be/vid-1"}, nil).Once()

	asset, err := testUploader(video, nil).Upload(context.Background(), model.MediaKindVideo, path, "Lesson")

	require.NoError(t, err)
	assert.Equal(t, "vid-1", asset.StorageID)
	assert.Equal(t, model.MediaKindVideo, asset.Kind)
	assert.Equal(t, int64(2048), asset.Bytes)
	video.AssertNumberOfCalls(t, "Upload", 3)
}

func TestUploader_GivesUpAfterMaxAttempts(t *testing.T) {
	video := new(mockStore)
	path := writeTemp(t, "lesson.mp4", 2048)

	video.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Times(4)

	asset, err := testUploader(video, nil).Upload(context.Background(), model.MediaKindVideo, path, "Lesson")

	assert.Nil(t, asset)
	var failed *model.UploadFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, "lesson.mp4", failed.FileName)
	assert.EqualError(t, failed.LastErr, "connection reset")
	assert.True(t, failed.Retryable())
	video.AssertNumberOfCalls(t, "Upload", 3)
}

func TestUploader_RejectedUploadIsNotRetried(t *testing.T) {
	video := new(mockStore)
	path := writeTemp(t, "lesson.mp4", 2048)

	video.On("Upload", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("googleapi: Error 403: quotaExceeded: %w", model.ErrRejected)).Once()

	_, err := testUploader(video, nil).Upload(context.Background(), model.MediaKindVideo, path, "Lesson")

	var failed *model.UploadFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 1, failed.Attempts)
	assert.False(t, failed.Retryable())
	video.AssertNumberOfCalls(t, "Upload", 1)
}

func TestUploader_ReopensFileEachAttempt(t *testing.T) {
	video := new(mockStore)
	path := writeTemp(t, "lesson.mp4", 1500)
	var sizes []int

	video.On("Upload", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(repository.MediaUploadInput)
		buf := make([]byte, 4096)
		n, _ := in.Body.Read(buf)
		sizes = append(sizes, n)
		assert.Equal(t, "courses/videos", in.Folder)
	}).Return(nil, model.ErrTransient).Once()
	video.On("Upload", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(repository.MediaUploadInput)
		buf := make([]byte, 4096)
		n, _ := in.Body.Read(buf)
		sizes = append(sizes, n)
	}).Return(&model.MediaAsset{StorageID: "vid-2"}, nil).Once()

	_, err := testUploader(video, nil).Upload(context.Background(), model.MediaKindVideo, path, "Lesson")

	require.NoError(t, err)
	assert.Equal(t, []int{1500, 1500}, sizes)
}

func TestUploader_ImageUsesImageStore(t *testing.T) {
	video, image := new(mockStore), new(mockStore)
	path := writeTemp(t, "thumb.png", 10)

	image.On("Upload", mock.Anything, mock.MatchedBy(func(in repository.MediaUploadInput) bool {
		return in.Folder == "courses/thumbnails" && in.FileName == "thumb.png"
	})).Return(&model.MediaAsset{StorageID: "img-1"}, nil).Once()

	asset, err := testUploader(video, image).Upload(context.Background(), model.MediaKindImage, path, "")

	require.NoError(t, err)
	assert.Equal(t, model.MediaKindImage, asset.Kind)
	video.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploader_MissingFileFailsWithoutCallingStore(t *testing.T) {
	video := new(mockStore)

	_, err := testUploader(video, nil).Upload(context.Background(), model.MediaKindVideo, "/does/not/exist.mp4", "x")

	var failed *model.UploadFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 0, failed.Attempts)
	video.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploader_CancelledContext(t *testing.T) {
	video := new(mockStore)
	path := writeTemp(t, "lesson.mp4", 2048)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testUploader(video, nil).Upload(ctx, model.MediaKindVideo, path, "Lesson")

	assert.ErrorIs(t, err, context.Canceled)
	video.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploader_CancelledDuringBackoff(t *testing.T) {
	video := new(mockStore)
	path := writeTemp(t, "lesson.mp4", 2048)
	ctx, cancel := context.WithCancel(context.Background())

	video.On("Upload", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(nil, fmt.Errorf("503: %w", model.ErrTransient)).Once()

	_, err := testUploader(video, nil).Upload(ctx, model.MediaKindVideo, path, "Lesson")

	assert.ErrorIs(t, err, context.Canceled)
	var failed *model.UploadFailedError
	assert.False(t, errors.As(err, &failed))
	video.AssertNumberOfCalls(t, "Upload", 1)
}

func TestUploader_DeleteWrapsRemoteError(t *testing.T) {
	video := new(mockStore)
	video.On("Delete", mock.Anything, "vid-9").Return(errors.New("quota exceeded")).Once()

	err := testUploader(video, nil).Delete(context.Background(), model.MediaKindVideo, "vid-9")

	var rde *model.RemoteDeleteError
	require.ErrorAs(t, err, &rde)
	assert.Equal(t, "vid-9", rde.StorageID)
}
