package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const (
	listingPattern = "allCourses:*"
	scanCount      = 100
)

type TTL struct {
	Course  time.Duration
	Content time.Duration
	Listing time.Duration
}

// CourseCache is a read-through accelerator in front of the course store.
// Reads that miss or fail report (nil, false); writes are best-effort.
type CourseCache struct {
	rdb redis.UniversalClient
	ttl TTL
}

var _ repository.ICourseCache = (*CourseCache)(nil)

func NewCourseCache(rdb redis.UniversalClient, ttl TTL) *CourseCache {
	if ttl.Course <= 0 {
		ttl.Course = time.Hour
	}
	if ttl.Content <= 0 {
		ttl.Content = 24 * time.Hour
	}
	if ttl.Listing <= 0 {
		ttl.Listing = 30 * time.Minute
	}
	return &CourseCache{rdb: rdb, ttl: ttl}
}

func CourseKey(id string) string           { return "course:" + id }
func ContentKey(id string) string          { return "courseContent:" + id }
func ListingKey(fingerprint string) string { return "allCourses:" + fingerprint }

// LegacyKeys are aliases older deployments wrote a course under.
func LegacyKeys(id string) []string {
	return []string{id, "course_" + id, "courses:" + id, "singleCourse:" + id, "courseById:" + id}
}

func (c *CourseCache) GetCourse(ctx context.Context, id string) (*model.Course, bool) {
	var course model.Course
	if !c.get(ctx, CourseKey(id), &course) {
		return nil, false
	}
	return &course, true
}

func (c *CourseCache) PutCourse(ctx context.Context, course *model.Course) {
	c.put(ctx, CourseKey(course.ID.Hex()), course, c.ttl.Course)
}

func (c *CourseCache) GetContent(ctx context.Context, id string) ([]model.ContentItem, bool) {
	var items []model.ContentItem
	if !c.get(ctx, ContentKey(id), &items) {
		return nil, false
	}
	return items, true
}

func (c *CourseCache) PutContent(ctx context.Context, id string, items []model.ContentItem) {
	c.put(ctx, ContentKey(id), items, c.ttl.Content)
}

func (c *CourseCache) GetListing(ctx context.Context, fingerprint string) ([]model.Course, bool) {
	var courses []model.Course
	if !c.get(ctx, ListingKey(fingerprint), &courses) {
		return nil, false
	}
	return courses, true
}

func (c *CourseCache) PutListing(ctx context.Context, fingerprint string, courses []model.Course) {
	c.put(ctx, ListingKey(fingerprint), courses, c.ttl.Listing)
}

// Invalidate removes every key that can hold a copy of the course, including
// all listing pages, and returns how many keys were deleted. Listings are
// swept with SCAN so a large keyspace never blocks Redis.
func (c *CourseCache) Invalidate(ctx context.Context, courseID string) (int64, error) {
	keys := append([]string{CourseKey(courseID), ContentKey(courseID)}, LegacyKeys(courseID)...)
	removed, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}

	var errs []error
	iter := c.rdb.Scan(ctx, 0, listingPattern, scanCount).Iterator()
	batch := make([]string, 0, scanCount)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			errs = append(errs, err)
		}
		removed += n
		batch = batch[:0]
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanCount {
			flush()
		}
	}
	flush()
	if err := iter.Err(); err != nil {
		errs = append(errs, err)
	}

	logger.GetLogger().WithField("courseId", courseID).WithField("keys", removed).Debug("Course cache invalidated")
	return removed, errors.Join(errs...)
}

func (c *CourseCache) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.GetLogger().WithField("key", key).Warnf("Cache read failed: %v", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.GetLogger().WithField("key", key).Warnf("Discarding undecodable cache entry: %v", err)
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *CourseCache) put(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.GetLogger().WithField("key", key).Warnf("Cache encode failed: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.GetLogger().WithField("key", key).Warnf("Cache write failed: %v", err)
	}
}
