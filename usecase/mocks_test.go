package usecase_test

import (
	"context"
	"sync"

	"course-service/domain/dto"
	"course-service/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockCourseRepo struct {
	mock.Mock
}

func (m *MockCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*model.Course); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCourseRepo) List(ctx context.Context, q dto.ListCoursesQuery) ([]model.Course, error) {
	args := m.Called(ctx, q)
	if list, ok := args.Get(0).([]model.Course); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCourseRepo) Insert(ctx context.Context, course *model.Course) error {
	return m.Called(ctx, course).Error(0)
}

func (m *MockCourseRepo) Replace(ctx context.Context, course *model.Course, expectedVersion *int64) error {
	return m.Called(ctx, course, expectedVersion).Error(0)
}

func (m *MockCourseRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockCourseCache struct {
	mock.Mock
}

func (m *MockCourseCache) GetCourse(ctx context.Context, courseID string) (*model.Course, bool) {
	args := m.Called(ctx, courseID)
	c, _ := args.Get(0).(*model.Course)
	return c, args.Bool(1)
}

func (m *MockCourseCache) PutCourse(ctx context.Context, course *model.Course) {
	m.Called(ctx, course)
}

func (m *MockCourseCache) GetContent(ctx context.Context, courseID string) ([]model.ContentItem, bool) {
	args := m.Called(ctx, courseID)
	items, _ := args.Get(0).([]model.ContentItem)
	return items, args.Bool(1)
}

func (m *MockCourseCache) PutContent(ctx context.Context, courseID string, items []model.ContentItem) {
	m.Called(ctx, courseID, items)
}

func (m *MockCourseCache) GetListing(ctx context.Context, fingerprint string) ([]model.Course, bool) {
	args := m.Called(ctx, fingerprint)
	list, _ := args.Get(0).([]model.Course)
	return list, args.Bool(1)
}

func (m *MockCourseCache) PutListing(ctx context.Context, fingerprint string, courses []model.Course) {
	m.Called(ctx, fingerprint, courses)
}

func (m *MockCourseCache) Invalidate(ctx context.Context, courseID string) (int64, error) {
	args := m.Called(ctx, courseID)
	return int64(args.Int(0)), args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, kind model.MediaKind, localPath, title string) (*model.MediaAsset, error) {
	args := m.Called(ctx, kind, localPath, title)
	if a, ok := args.Get(0).(*model.MediaAsset); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUploader) Delete(ctx context.Context, kind model.MediaKind, storageID string) error {
	return m.Called(ctx, kind, storageID).Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, src model.DurationSource) int {
	return m.Called(ctx, src).Int(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Record(ctx context.Context, asset *model.OrphanedAsset) error {
	return m.Called(ctx, asset).Error(0)
}

func (m *MockLedger) FetchPending(ctx context.Context, limit int) ([]*model.OrphanedAsset, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]*model.OrphanedAsset); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedger) MarkResolved(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLedger) MarkFailed(ctx context.Context, id int64, reason string, abandon bool) error {
	return m.Called(ctx, id, reason, abandon).Error(0)
}

type MockAssetEvents struct {
	mock.Mock
}

func (m *MockAssetEvents) PublishOrphaned(ctx context.Context, asset *model.OrphanedAsset) error {
	return m.Called(ctx, asset).Error(0)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Append(ctx context.Context, audit *model.MutationAudit) error {
	return m.Called(ctx, audit).Error(0)
}

// recordedEvents keeps every stage event in order.
type recordedEvents struct {
	mu     sync.Mutex
	events []model.MutationEvent
}

func (r *recordedEvents) Publish(evt model.MutationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// stages drops per-item progress events.
func (r *recordedEvents) stages() []model.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Stage
	for _, e := range r.events {
		if e.Item != "" {
			continue
		}
		out = append(out, e.Stage)
	}
	return out
}

func (r *recordedEvents) last() model.MutationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
