package media

import (
	"context"

	"course-service/domain/model"
	"course-service/domain/repository"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, in repository.MediaUploadInput) (*model.MediaAsset, error) {
	args := m.Called(ctx, in)
	if a, ok := args.Get(0).(*model.MediaAsset); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, storageID string) error {
	args := m.Called(ctx, storageID)
	return args.Error(0)
}

func (m *mockStore) Probe(ctx context.Context, storageID string) (*model.MediaMetadata, error) {
	args := m.Called(ctx, storageID)
	if md, ok := args.Get(0).(*model.MediaMetadata); ok {
		return md, args.Error(1)
	}
	return nil, args.Error(1)
}
