package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/domain/section"
	"course-service/infrastructure/utils"
)

// ICourseMutationUseCase orchestrates every write to a course.
type ICourseMutationUseCase interface {
	Create(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResult, error)
	Edit(ctx context.Context, req *dto.EditCourseRequest) (*dto.CourseResult, error)
	Delete(ctx context.Context, req *dto.DeleteCourseRequest) error
	// DeleteContentItem is an edit that only removes one item.
	DeleteContentItem(ctx context.Context, mutationID, courseID, contentID string) (*dto.CourseResult, error)
	// ClearCourseCache reports how many cache keys were removed.
	ClearCourseCache(ctx context.Context, courseID string) (int64, error)
}

// CourseMutationUseCase runs create, edit and delete as
// Validated -> AssetsUploading -> AssetsResolved -> Organized -> Persisted -> CacheInvalidated,
// failing into Failed from any of them. Uploads within one request are sequential.
type CourseMutationUseCase struct {
	courses   repository.ICourse
	cache     repository.ICourseCache
	uploader  repository.IMediaUploader
	durations repository.IDurationResolver

	// optional
	orphans     repository.IOrphanAsset
	assetEvents repository.IAssetEvents
	audit       repository.IMutationAudit
	events      repository.IMutationEvents

	now func() time.Time
}

func NewCourseMutationUseCase(courses repository.ICourse, cache repository.ICourseCache, uploader repository.IMediaUploader, durations repository.IDurationResolver) *CourseMutationUseCase {
	return &CourseMutationUseCase{
		courses:   courses,
		cache:     cache,
		uploader:  uploader,
		durations: durations,
		now:       utils.GetCurrentTime,
	}
}

// WithOrphanLedger records failed remote deletes and publishes them (fluent).
func (u *CourseMutationUseCase) WithOrphanLedger(orphans repository.IOrphanAsset, events repository.IAssetEvents) *CourseMutationUseCase {
	u.orphans = orphans
	u.assetEvents = events
	return u
}

// WithAudit enables the mutation audit trail (fluent).
func (u *CourseMutationUseCase) WithAudit(audit repository.IMutationAudit) *CourseMutationUseCase {
	u.audit = audit
	return u
}

// WithEvents broadcasts stage transitions (fluent).
func (u *CourseMutationUseCase) WithEvents(events repository.IMutationEvents) *CourseMutationUseCase {
	u.events = events
	return u
}

// Create uploads every item, organizes the list and inserts the course. Any
// failure removes the assets uploaded so far and nothing is persisted.
func (u *CourseMutationUseCase) Create(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResult, error) {
	m := u.begin(model.OpCreate, req.MutationID, "")
	if err := req.Validate(); err != nil {
		return nil, m.fail(ctx, err)
	}
	m.advance(model.StageValidated)

	course := &model.Course{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       *req.Price,
		Tags:        req.Tags,
		Level:       req.Level,
		Categories:  req.Categories,
		DemoURL:     req.DemoURL,
	}
	if req.EstimatedPrice != nil {
		course.EstimatedPrice = *req.EstimatedPrice
	}

	m.advance(model.StageAssetsUploading)
	if req.Thumbnail != nil {
		thumb, err := u.uploadThumbnail(ctx, m, req.Thumbnail)
		if err != nil {
			return nil, m.fail(ctx, err)
		}
		course.Thumbnail = thumb
	}

	perSection := map[string]int{}
	items := make([]model.ContentItem, 0, len(req.Items))
	for _, in := range req.Items {
		label := sectionOf(in)
		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = section.NextTitle(perSection[label])
		}
		perSection[label]++

		item, err := u.ingest(ctx, m, in, label, title)
		if err != nil {
			return nil, m.fail(ctx, err)
		}
		items = append(items, item)
	}
	m.advance(model.StageAssetsResolved)

	course.Content = section.Organize(items)
	m.advance(model.StageOrganized)

	if err := requireUploaded(course.Content); err != nil {
		return nil, m.fail(ctx, err)
	}
	if err := u.courses.Insert(ctx, course); err != nil {
		return nil, m.fail(ctx, fmt.Errorf("failed to insert course: %w", err))
	}
	m.courseID = course.ID.Hex()
	m.batch = nil
	m.advance(model.StagePersisted)

	u.invalidate(ctx, m, "post-write")
	m.advance(model.StageCacheInvalidated)
	m.succeed(ctx)

	return &dto.CourseResult{MutationID: m.id, Course: course, Stats: model.StatsOf(course.Content)}, nil
}

// Edit applies deletions, uploads new items and writes the merged document.
// Deletions already applied stay applied when a later step fails.
func (u *CourseMutationUseCase) Edit(ctx context.Context, req *dto.EditCourseRequest) (*dto.CourseResult, error) {
	m := u.begin(model.OpEdit, req.MutationID, req.CourseID)
	if err := req.Validate(); err != nil {
		return nil, m.fail(ctx, err)
	}

	course, err := u.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, m.fail(ctx, err)
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != course.Version {
		return nil, m.fail(ctx, &model.ConflictError{CourseID: req.CourseID, ExpectedVersion: *req.ExpectedVersion})
	}
	expected := course.Version

	removed, kept, err := splitContent(course.Content, req.VideosToDelete)
	if err != nil {
		return nil, m.fail(ctx, err)
	}
	m.advance(model.StageValidated)

	u.invalidate(ctx, m, "pre-write")

	for _, item := range removed {
		if item.StorageType != model.StorageTypeExternal {
			m.removeRemote(ctx, model.MediaKindVideo, item.VideoStorageID)
		}
		m.deleted++
		m.progress(item.ID.Hex())
	}
	course.Content = kept

	m.advance(model.StageAssetsUploading)
	oldThumb := course.Thumbnail
	newThumb := false
	if req.Thumbnail != nil {
		thumb, err := u.uploadThumbnail(ctx, m, req.Thumbnail)
		if err != nil {
			return nil, m.fail(ctx, err)
		}
		course.Thumbnail = thumb
		newThumb = true
	}

	added := make([]model.ContentItem, 0, len(req.Items))
	for _, in := range req.Items {
		label := sectionOf(in)
		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = section.NextTitle(section.CountIn(course.Content, label) + section.CountIn(added, label))
		}
		item, err := u.ingest(ctx, m, in, label, title)
		if err != nil {
			return nil, m.fail(ctx, err)
		}
		added = append(added, item)
	}
	m.advance(model.StageAssetsResolved)

	applyMetadata(course, req)
	course.Content = section.Organize(append(course.Content, added...))
	m.advance(model.StageOrganized)

	if err := requireUploaded(course.Content); err != nil {
		return nil, m.fail(ctx, err)
	}
	if err := u.courses.Replace(ctx, course, &expected); err != nil {
		return nil, m.fail(ctx, fmt.Errorf("failed to write course: %w", err))
	}
	m.batch = nil
	m.advance(model.StagePersisted)

	if newThumb && oldThumb.StorageID != "" && oldThumb.StorageID != course.Thumbnail.StorageID {
		m.removeRemote(ctx, model.MediaKindImage, oldThumb.StorageID)
	}

	u.invalidate(ctx, m, "post-write")
	m.advance(model.StageCacheInvalidated)
	m.succeed(ctx)

	fresh, err := u.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		m.log.WithError(err).Warn("Failed to re-read course after edit, returning written document")
		fresh = course
	}
	return &dto.CourseResult{MutationID: m.id, Course: fresh, Stats: model.StatsOf(fresh.Content)}, nil
}

// Delete removes every remote asset of the course best-effort, then the document.
func (u *CourseMutationUseCase) Delete(ctx context.Context, req *dto.DeleteCourseRequest) error {
	m := u.begin(model.OpDelete, req.MutationID, req.CourseID)
	if err := req.Validate(); err != nil {
		return m.fail(ctx, err)
	}
	course, err := u.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return m.fail(ctx, err)
	}
	m.advance(model.StageValidated)

	u.invalidate(ctx, m, "pre-write")

	m.removeRemote(ctx, model.MediaKindImage, course.Thumbnail.StorageID)
	for _, item := range course.Content {
		if item.StorageType != model.StorageTypeExternal {
			m.removeRemote(ctx, model.MediaKindVideo, item.VideoStorageID)
		}
		m.deleted++
	}

	if err := u.courses.Delete(ctx, req.CourseID); err != nil {
		return m.fail(ctx, fmt.Errorf("failed to delete course: %w", err))
	}
	m.advance(model.StagePersisted)

	u.invalidate(ctx, m, "post-write")
	m.advance(model.StageCacheInvalidated)
	m.succeed(ctx)
	return nil
}

func (u *CourseMutationUseCase) DeleteContentItem(ctx context.Context, mutationID, courseID, contentID string) (*dto.CourseResult, error) {
	return u.Edit(ctx, &dto.EditCourseRequest{
		MutationID:     mutationID,
		CourseID:       courseID,
		VideosToDelete: []string{contentID},
	})
}

func (u *CourseMutationUseCase) ClearCourseCache(ctx context.Context, courseID string) (int64, error) {
	if err := dto.ValidateCourseID(courseID); err != nil {
		return 0, err
	}
	n, err := u.cache.Invalidate(ctx, courseID)
	if err != nil {
		return n, fmt.Errorf("failed to clear cache for course %s: %w", courseID, err)
	}
	return n, nil
}

func (u *CourseMutationUseCase) uploadThumbnail(ctx context.Context, m *mutation, file *dto.MediaFile) (model.Thumbnail, error) {
	asset, err := u.uploader.Upload(ctx, model.MediaKindImage, file.Path, file.Name)
	if err != nil {
		return model.Thumbnail{}, err
	}
	m.track(model.MediaKindImage, asset)
	m.progress(file.Name)
	return model.Thumbnail{StorageID: asset.StorageID, URL: asset.URL}, nil
}

// ingest uploads one item when it carries a file and resolves its duration.
func (u *CourseMutationUseCase) ingest(ctx context.Context, m *mutation, in dto.NewContentItem, label, title string) (model.ContentItem, error) {
	item := model.ContentItem{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		VideoSection: label,
		Links:        in.Links,
	}
	if item.Description == "" {
		item.Description = "Description for " + title
	}

	if in.File == nil {
		item.VideoURL = strings.TrimSpace(in.ExternalURL)
		item.StorageType = model.StorageTypeExternal
		item.VideoLength = u.durations.Resolve(ctx, model.DurationSource{URL: item.VideoURL})
		m.progress(title)
		return item, nil
	}

	asset, err := u.uploader.Upload(ctx, model.MediaKindVideo, in.File.Path, title)
	if err != nil {
		return model.ContentItem{}, err
	}
	m.track(model.MediaKindVideo, asset)

	item.VideoURL = asset.URL
	item.VideoStorageID = asset.StorageID
	item.StorageType = asset.StorageType
	item.VideoLength = u.durations.Resolve(ctx, model.DurationSource{
		LocalPath: in.File.Path,
		StorageID: asset.StorageID,
		URL:       asset.URL,
	})
	m.log.WithField("storageId", asset.StorageID).WithField("videoLength", item.VideoLength).Debug("Content item uploaded")
	m.progress(title)
	return item, nil
}

// splitContent separates the items named for deletion. Every id must exist.
// requireUploaded keeps items that never reached the media store out of the
// course document.
func requireUploaded(items []model.ContentItem) error {
	var errs model.ValidationErrors
	for i, item := range items {
		if !item.Uploaded() {
			errs = append(errs, &model.ValidationError{
				Field:   fmt.Sprintf("content[%d]", i),
				Message: fmt.Sprintf("%q has no stored video", item.Title),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func splitContent(items []model.ContentItem, ids []string) (removed, kept []model.ContentItem, err error) {
	if len(ids) == 0 {
		return nil, items, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	kept = make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if want[item.ID.Hex()] {
			removed = append(removed, item)
			delete(want, item.ID.Hex())
			continue
		}
		kept = append(kept, item)
	}
	for _, id := range ids {
		if want[id] {
			return nil, nil, &model.NotFoundError{Resource: "content item", ID: id}
		}
	}
	return removed, kept, nil
}

func applyMetadata(course *model.Course, req *dto.EditCourseRequest) {
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.EstimatedPrice != nil {
		course.EstimatedPrice = *req.EstimatedPrice
	}
	if req.Tags != nil {
		course.Tags = *req.Tags
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Categories != nil {
		course.Categories = *req.Categories
	}
	if req.DemoURL != nil {
		course.DemoURL = *req.DemoURL
	}
}

func sectionOf(in dto.NewContentItem) string {
	if s := strings.TrimSpace(in.Section); s != "" {
		return s
	}
	return model.DefaultSection
}

var _ ICourseMutationUseCase = (*CourseMutationUseCase)(nil)
