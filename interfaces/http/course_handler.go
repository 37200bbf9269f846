package http

import (
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/infrastructure/logger"
	"course-service/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const mutationHeader = "X-Mutation-ID"

type ICourseHandler interface {
	CreateCourse(ctx *gin.Context)
	EditCourse(ctx *gin.Context)
	DeleteCourse(ctx *gin.Context)
	DeleteContentItem(ctx *gin.Context)
	ClearCourseCache(ctx *gin.Context)
	GetCourse(ctx *gin.Context)
	ListCourses(ctx *gin.Context)
	GetCourseContent(ctx *gin.Context)
}

// UploadLimits bounds how multipart bodies are spooled to disk.
type UploadLimits struct {
	TempDir  string
	MaxBytes int64
}

type CourseHandler struct {
	mutations usecase.ICourseMutationUseCase
	queries   usecase.ICourseQueryUseCase
	limits    UploadLimits
}

func NewCourseHandler(mutations usecase.ICourseMutationUseCase, queries usecase.ICourseQueryUseCase, limits UploadLimits) ICourseHandler {
	return &CourseHandler{mutations: mutations, queries: queries, limits: limits}
}

// CreateCourse handles POST /api/courses
func (h *CourseHandler) CreateCourse(ctx *gin.Context) {
	mutationID := h.mutationID(ctx)
	dir, form, ok := h.openForm(ctx)
	if !ok {
		return
	}
	defer h.cleanup(dir)

	price, err := requiredFloat(form, "price")
	if err != nil {
		writeError(ctx, err)
		return
	}
	estimated, err := optionalFloat(form, "estimatedPrice")
	if err != nil {
		writeError(ctx, err)
		return
	}
	items, thumb, err := h.spool(ctx, dir, form)
	if err != nil {
		writeError(ctx, err)
		return
	}

	req := &dto.CreateCourseRequest{
		MutationID:     mutationID,
		Name:           formValue(form, "name"),
		Description:    formValue(form, "description"),
		Price:          price,
		EstimatedPrice: estimated,
		Tags:           formValue(form, "tags"),
		Level:          formValue(form, "level"),
		Categories:     formValue(form, "categories"),
		DemoURL:        formValue(form, "demoUrl"),
		Thumbnail:      thumb,
		Items:          items,
	}
	res, err := h.mutations.Create(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, res)
}

// EditCourse handles PUT /api/courses/:id
func (h *CourseHandler) EditCourse(ctx *gin.Context) {
	mutationID := h.mutationID(ctx)
	dir, form, ok := h.openForm(ctx)
	if !ok {
		return
	}
	defer h.cleanup(dir)

	req := &dto.EditCourseRequest{
		MutationID:     mutationID,
		CourseID:       ctx.Param("id"),
		Name:           optionalString(form, "name"),
		Description:    optionalString(form, "description"),
		Tags:           optionalString(form, "tags"),
		Level:          optionalString(form, "level"),
		Categories:     optionalString(form, "categories"),
		DemoURL:        optionalString(form, "demoUrl"),
		VideosToDelete: listValue(form, "videosToDelete"),
	}
	var err error
	if req.Price, err = optionalFloat(form, "price"); err != nil {
		writeError(ctx, err)
		return
	}
	if req.EstimatedPrice, err = optionalFloat(form, "estimatedPrice"); err != nil {
		writeError(ctx, err)
		return
	}
	if req.ExpectedVersion, err = expectedVersion(ctx, form); err != nil {
		writeError(ctx, err)
		return
	}
	if req.Items, req.Thumbnail, err = h.spool(ctx, dir, form); err != nil {
		writeError(ctx, err)
		return
	}

	res, err := h.mutations.Edit(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Header("ETag", strconv.FormatInt(res.Course.Version, 10))
	ctx.JSON(http.StatusOK, res)
}

// DeleteCourse handles DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(ctx *gin.Context) {
	req := &dto.DeleteCourseRequest{MutationID: h.mutationID(ctx), CourseID: ctx.Param("id")}
	if err := h.mutations.Delete(ctx.Request.Context(), req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"mutationId": req.MutationID, "message": "Course deleted successfully"})
}

// DeleteContentItem handles DELETE /api/courses/:id/contents/:contentId
func (h *CourseHandler) DeleteContentItem(ctx *gin.Context) {
	res, err := h.mutations.DeleteContentItem(ctx.Request.Context(), h.mutationID(ctx), ctx.Param("id"), ctx.Param("contentId"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// ClearCourseCache handles POST /api/courses/:id/cache/clear
func (h *CourseHandler) ClearCourseCache(ctx *gin.Context) {
	n, err := h.mutations.ClearCourseCache(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"courseId": ctx.Param("id"), "clearedKeys": n})
}

// GetCourse handles GET /courses/:id
func (h *CourseHandler) GetCourse(ctx *gin.Context) {
	course, err := h.queries.GetCourse(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, course)
}

// ListCourses handles GET /courses
func (h *CourseHandler) ListCourses(ctx *gin.Context) {
	var q dto.ListCoursesQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		writeError(ctx, model.ValidationErrors{{Message: err.Error()}})
		return
	}
	courses, err := h.queries.ListCourses(ctx.Request.Context(), q)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"courses": courses, "total": len(courses)})
}

// GetCourseContent handles GET /api/courses/:id/content
func (h *CourseHandler) GetCourseContent(ctx *gin.Context) {
	items, err := h.queries.GetCourseContent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"content": items})
}

func (h *CourseHandler) mutationID(ctx *gin.Context) string {
	id := strings.TrimSpace(ctx.GetHeader(mutationHeader))
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Header(mutationHeader, id)
	return id
}

// openForm parses the multipart body into a private temp directory.
func (h *CourseHandler) openForm(ctx *gin.Context) (string, *multipart.Form, bool) {
	if h.limits.MaxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.limits.MaxBytes)
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, dto.Res{ResponseCode: "413", ResponseMessage: "Upload too large"})
			return "", nil, false
		}
		writeError(ctx, model.ValidationErrors{{Message: "expected a multipart form: " + err.Error()}})
		return "", nil, false
	}
	dir, err := os.MkdirTemp(h.limits.TempDir, "course-upload-*")
	if err != nil {
		writeError(ctx, fmt.Errorf("failed to create upload directory: %w", err))
		return "", nil, false
	}
	return dir, form, true
}

func (h *CourseHandler) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger.GetLogger().WithField("dir", dir).WithError(err).Warn("Failed to remove upload directory")
	}
}

// spool saves the attached files and pairs each with its positional
// videoTitles/videoDescriptions/videoSections entry. External URLs follow the
// files in the same positional arrays.
func (h *CourseHandler) spool(ctx *gin.Context, dir string, form *multipart.Form) ([]dto.NewContentItem, *dto.MediaFile, error) {
	titles := form.Value["videoTitles"]
	descriptions := form.Value["videoDescriptions"]
	sections := form.Value["videoSections"]

	var items []dto.NewContentItem
	for _, fh := range form.File["videos"] {
		file, err := save(ctx, dir, fh)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, dto.NewContentItem{File: file})
	}
	for _, u := range form.Value["externalUrls"] {
		if strings.TrimSpace(u) != "" {
			items = append(items, dto.NewContentItem{ExternalURL: strings.TrimSpace(u)})
		}
	}
	for i := range items {
		items[i].Title = at(titles, i)
		items[i].Description = at(descriptions, i)
		items[i].Section = at(sections, i)
	}

	var thumb *dto.MediaFile
	if files := form.File["thumbnail"]; len(files) > 0 {
		var err error
		if thumb, err = save(ctx, dir, files[0]); err != nil {
			return nil, nil, err
		}
	}
	return items, thumb, nil
}

func save(ctx *gin.Context, dir string, fh *multipart.FileHeader) (*dto.MediaFile, error) {
	dst := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := ctx.SaveUploadedFile(fh, dst); err != nil {
		return nil, fmt.Errorf("failed to spool %s: %w", fh.Filename, err)
	}
	return &dto.MediaFile{Path: dst, Name: filepath.Base(fh.Filename), Size: fh.Size}, nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}
	return ""
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func optionalString(form *multipart.Form, key string) *string {
	if v, ok := form.Value[key]; ok && len(v) > 0 {
		s := strings.TrimSpace(v[0])
		return &s
	}
	return nil
}

// listValue accepts repeated fields as well as one comma separated value.
func listValue(form *multipart.Form, key string) []string {
	var out []string
	for _, v := range form.Value[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optionalFloat(form *multipart.Form, key string) (*float64, error) {
	raw := formValue(form, key)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, model.ValidationErrors{{Field: key, Message: "must be a finite number"}}
	}
	return &f, nil
}

func requiredFloat(form *multipart.Form, key string) (*float64, error) {
	f, err := optionalFloat(form, key)
	if err == nil && f == nil {
		return nil, model.ValidationErrors{{Field: key, Message: "is required"}}
	}
	return f, err
}

// expectedVersion comes from If-Match or the expectedVersion form field.
func expectedVersion(ctx *gin.Context, form *multipart.Form) (*int64, error) {
	raw := strings.Trim(ctx.GetHeader("If-Match"), `"W/ `)
	if raw == "" {
		raw = formValue(form, "expectedVersion")
	}
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, model.ValidationErrors{{Field: "expectedVersion", Message: "must be an integer"}}
	}
	return &v, nil
}
