package repository

import (
	"context"

	"course-service/domain/dto"
	"course-service/domain/model"
)

// ICourse is the persistent document store for courses.
type ICourse interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, q dto.ListCoursesQuery) ([]model.Course, error)
	// Insert assigns identities to the course and every content item.
	Insert(ctx context.Context, course *model.Course) error
	// Replace writes the whole document. When expectedVersion is non-nil the write
	// only succeeds if the stored version still matches.
	Replace(ctx context.Context, course *model.Course, expectedVersion *int64) error
	Delete(ctx context.Context, id string) error
}

// ICourseCache is the read-through accelerator in front of ICourse. It is never authoritative.
type ICourseCache interface {
	GetCourse(ctx context.Context, courseID string) (*model.Course, bool)
	PutCourse(ctx context.Context, course *model.Course)
	GetContent(ctx context.Context, courseID string) ([]model.ContentItem, bool)
	PutContent(ctx context.Context, courseID string, items []model.ContentItem)
	GetListing(ctx context.Context, fingerprint string) ([]model.Course, bool)
	PutListing(ctx context.Context, fingerprint string, courses []model.Course)
	// Invalidate removes every key that could serve stale data for the course
	// and reports how many keys were deleted.
	Invalidate(ctx context.Context, courseID string) (int64, error)
}
