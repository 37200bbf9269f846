package usecase

import (
	"context"
	"fmt"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"
)

// ICourseQueryUseCase serves reads. The cache is consulted for public views
// only; course content always comes from the store.
type ICourseQueryUseCase interface {
	GetCourse(ctx context.Context, courseID string) (*model.Course, error)
	ListCourses(ctx context.Context, q dto.ListCoursesQuery) ([]model.Course, error)
	GetCourseContent(ctx context.Context, courseID string) ([]model.ContentItem, error)
}

type CourseQueryUseCase struct {
	courses repository.ICourse
	cache   repository.ICourseCache
}

func NewCourseQueryUseCase(courses repository.ICourse, cache repository.ICourseCache) *CourseQueryUseCase {
	return &CourseQueryUseCase{courses: courses, cache: cache}
}

// GetCourse returns the public projection, read through course:{id}.
func (u *CourseQueryUseCase) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	if err := dto.ValidateCourseID(courseID); err != nil {
		return nil, err
	}
	if cached, ok := u.cache.GetCourse(ctx, courseID); ok {
		return cached, nil
	}

	course, err := u.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	public := course.PublicView()
	u.cache.PutCourse(ctx, &public)
	return &public, nil
}

// ListCourses returns public projections, read through allCourses:{fingerprint}.
func (u *CourseQueryUseCase) ListCourses(ctx context.Context, q dto.ListCoursesQuery) ([]model.Course, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	fingerprint := q.Fingerprint()
	if cached, ok := u.cache.GetListing(ctx, fingerprint); ok {
		return cached, nil
	}

	courses, err := u.courses.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	out := make([]model.Course, len(courses))
	for i, c := range courses {
		out[i] = c.PublicView()
	}
	u.cache.PutListing(ctx, fingerprint, out)
	return out, nil
}

// GetCourseContent never serves from cache. The courseContent:{id} entry is
// refreshed as a write-behind for consumers that tolerate staleness.
func (u *CourseQueryUseCase) GetCourseContent(ctx context.Context, courseID string) ([]model.ContentItem, error) {
	if err := dto.ValidateCourseID(courseID); err != nil {
		return nil, err
	}
	course, err := u.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	items := course.Content
	go func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.GetLogger().WithField("courseId", courseID).Errorf("Content write-behind panicked: %v", r)
			}
		}()
		u.cache.PutContent(ctx, courseID, items)
	}(context.WithoutCancel(ctx))

	return items, nil
}

var _ ICourseQueryUseCase = (*CourseQueryUseCase)(nil)
