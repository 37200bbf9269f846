package persistence

import (
	"context"
	"errors"
	"regexp"
	"time"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"
	"course-service/infrastructure/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const coursesCollection = "courses"

// CourseRepository stores each course as one document with its content
// items embedded under courseData.
type CourseRepository struct {
	coll       *mongo.Collection
	optimistic bool
}

var _ repository.ICourse = (*CourseRepository)(nil)

func NewCourseRepository(db *mongo.Database, optimisticLocking bool) *CourseRepository {
	return &CourseRepository{coll: db.Collection(coursesCollection), optimistic: optimisticLocking}
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, &model.NotFoundError{Resource: "course", ID: id}
	}

	var course model.Course
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&course); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &model.NotFoundError{Resource: "course", ID: id}
		}
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context, q dto.ListCoursesQuery) ([]model.Course, error) {
	opts := options.Find().SetSort(sortFor(q))
	cursor, err := r.coll.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	courses := make([]model.Course, 0)
	for cursor.Next(ctx) {
		var course model.Course
		if err := cursor.Decode(&course); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding course")
			continue
		}
		courses = append(courses, course)
	}
	return courses, cursor.Err()
}

// Insert assigns ids to the course and every content item, then stores it at version 1.
func (r *CourseRepository) Insert(ctx context.Context, course *model.Course) error {
	now := utils.GetCurrentTime()
	if course.ID.IsZero() {
		course.ID = bson.NewObjectID()
	}
	assignItemIDs(course.Content)
	course.Version = 1
	course.CreatedAt = now
	course.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, course)
	return err
}

// Replace writes the whole document. With optimistic locking on, the write
// only lands if the stored version still equals expectedVersion (or the
// version the course was loaded at when nil).
func (r *CourseRepository) Replace(ctx context.Context, course *model.Course, expectedVersion *int64) error {
	expected := course.Version
	if expectedVersion != nil {
		expected = *expectedVersion
	}

	filter := bson.D{{Key: "_id", Value: course.ID}}
	if r.optimistic {
		filter = append(filter, versionFilter(expected))
	}

	assignItemIDs(course.Content)
	restore := stamp(course, expected+1, utils.GetCurrentTime())

	res, err := r.coll.ReplaceOne(ctx, filter, course)
	var matched int64
	if res != nil {
		matched = res.MatchedCount
	}
	err = replaceOutcome(matched, err, course.ID, expected, func() (int64, error) {
		return r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: course.ID}})
	})
	if err != nil {
		restore()
		return err
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return &model.NotFoundError{Resource: "course", ID: id}
	}
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &model.NotFoundError{Resource: "course", ID: id}
	}
	return nil
}

// stamp sets the version and update time a write carries and returns a func
// that undoes it, so a rejected write leaves the caller's copy untouched.
func stamp(course *model.Course, version int64, at time.Time) (restore func()) {
	prevVersion, prevUpdated := course.Version, course.UpdatedAt
	course.Version, course.UpdatedAt = version, at
	return func() { course.Version, course.UpdatedAt = prevVersion, prevUpdated }
}

// replaceOutcome maps a ReplaceOne result onto repository errors. A write that
// matched nothing is a conflict while the course still exists.
func replaceOutcome(matched int64, writeErr error, id bson.ObjectID, expected int64, count func() (int64, error)) error {
	if writeErr != nil {
		return writeErr
	}
	if matched > 0 {
		return nil
	}
	n, err := count()
	if err != nil {
		return err
	}
	if n == 0 {
		return &model.NotFoundError{Resource: "course", ID: id.Hex()}
	}
	return &model.ConflictError{CourseID: id.Hex(), ExpectedVersion: expected}
}

// Documents written before versioning have no version field; they count as 0.
func versionFilter(expected int64) bson.E {
	if expected == 0 {
		return bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "version", Value: 0}},
			bson.D{{Key: "version", Value: bson.D{{Key: "$exists", Value: false}}}},
		}}
	}
	return bson.E{Key: "version", Value: expected}
}

func assignItemIDs(items []model.ContentItem) {
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = bson.NewObjectID()
		}
	}
}

func listFilter(q dto.ListCoursesQuery) bson.D {
	filter := bson.D{}
	if q.Category != "" {
		filter = append(filter, bson.E{Key: "categories", Value: q.Category})
	}
	if q.MaxPrice != nil {
		filter = append(filter, bson.E{Key: "price", Value: bson.D{{Key: "$lte", Value: *q.MaxPrice}}})
	}
	if q.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		}})
	}
	return filter
}

func sortFor(q dto.ListCoursesQuery) bson.D {
	field := q.Sort
	if field == "" {
		field = "createdAt"
	}
	dir := -1
	if q.Order == "asc" {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
