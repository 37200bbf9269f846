package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func courseWithContent() *model.Course {
	return &model.Course{
		ID:    bson.NewObjectID(),
		Name:  "Gated",
		Price: 30,
		Content: []model.ContentItem{{
			ID:           bson.NewObjectID(),
			Title:        "Video 1",
			VideoURL:     "https://www.youtube.com/watch?v=secret",
			VideoSection: "A",
			Links:        []model.Link{{Title: "Slides", URL: "https://example.com/slides"}},
		}},
	}
}

func TestGetCourse_CacheHitSkipsStore(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)
	cached := &model.Course{ID: bson.NewObjectID(), Name: "Cached"}

	cache.On("GetCourse", mock.Anything, cached.ID.Hex()).Return(cached, true).Once()

	got, err := uc.GetCourse(context.Background(), cached.ID.Hex())
	require.NoError(t, err)
	assert.Same(t, cached, got)
	courses.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestGetCourse_MissStoresPublicView(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)
	course := courseWithContent()
	id := course.ID.Hex()

	cache.On("GetCourse", mock.Anything, id).Return(nil, false).Once()
	courses.On("FindByID", mock.Anything, id).Return(course, nil).Once()
	cache.On("PutCourse", mock.Anything, mock.MatchedBy(func(c *model.Course) bool {
		return c.Content[0].VideoURL == "" && c.Content[0].Links == nil
	})).Once()

	got, err := uc.GetCourse(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, got.Content[0].VideoURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=secret", course.Content[0].VideoURL)
	cache.AssertExpectations(t)
}

func TestGetCourse_NotFound(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)
	id := bson.NewObjectID().Hex()

	cache.On("GetCourse", mock.Anything, id).Return(nil, false)
	courses.On("FindByID", mock.Anything, id).Return(nil, &model.NotFoundError{Resource: "course", ID: id})

	_, err := uc.GetCourse(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrCourseNotFound)
	cache.AssertNotCalled(t, "PutCourse", mock.Anything, mock.Anything)
}

func TestListCourses_ReadThroughByFingerprint(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)
	q := dto.ListCoursesQuery{Category: "go"}
	fp := "category=go&order=desc&sort=createdAt"

	cache.On("GetListing", mock.Anything, fp).Return(nil, false).Once()
	courses.On("List", mock.Anything, mock.MatchedBy(func(q dto.ListCoursesQuery) bool {
		return q.Sort == "createdAt" && q.Order == "desc"
	})).Return([]model.Course{*courseWithContent()}, nil).Once()
	cache.On("PutListing", mock.Anything, fp, mock.MatchedBy(func(list []model.Course) bool {
		return len(list) == 1 && list[0].Content[0].VideoURL == ""
	})).Once()

	got, err := uc.ListCourses(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	cache.AssertExpectations(t)
	courses.AssertExpectations(t)
}

func TestListCourses_RejectsUnknownSort(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)

	_, err := uc.ListCourses(context.Background(), dto.ListCoursesQuery{Sort: "secret"})
	var verrs model.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	cache.AssertNotCalled(t, "GetListing", mock.Anything, mock.Anything)
}

func TestListCourses_StoreError(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)

	cache.On("GetListing", mock.Anything, mock.Anything).Return(nil, false)
	courses.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := uc.ListCourses(context.Background(), dto.ListCoursesQuery{})
	assert.Error(t, err)
	cache.AssertNotCalled(t, "PutListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetCourseContent_AlwaysReadsStore(t *testing.T) {
	courses, cache := new(MockCourseRepo), new(MockCourseCache)
	uc := usecase.NewCourseQueryUseCase(courses, cache)
	course := courseWithContent()
	id := course.ID.Hex()
	written := make(chan struct{})

	courses.On("FindByID", mock.Anything, id).Return(course, nil).Once()
	cache.On("PutContent", mock.Anything, id, course.Content).
		Run(func(mock.Arguments) { close(written) }).Once()

	items, err := uc.GetCourseContent(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=secret", items[0].VideoURL)

	select {
	case <-written:
	case <-time.After(2 * time.Second):
		t.Fatal("content cache was not refreshed")
	}
	cache.AssertNotCalled(t, "GetContent", mock.Anything, mock.Anything)
	courses.AssertExpectations(t)
}
