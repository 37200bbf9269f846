package dto

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"course-service/domain/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-querystring/query"
)

var validate = newValidator()

// newValidator adds a finite tag; gte/lte accept Inf and NaN, which JSON cannot encode.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return v
}

// MediaFile is an uploaded binary spooled to local disk by the transport layer.
type MediaFile struct {
	Path string `json:"-"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// NewContentItem describes one item to add. Either File or ExternalURL must be set.
type NewContentItem struct {
	File        *MediaFile   `json:"file,omitempty"`
	ExternalURL string       `json:"externalUrl,omitempty" validate:"omitempty,http_url"`
	Title       string       `json:"title,omitempty"       validate:"max=200"`
	Description string       `json:"description,omitempty"`
	Section     string       `json:"section,omitempty"     validate:"max=200"`
	Links       []model.Link `json:"links,omitempty"`
}

type CreateCourseRequest struct {
	MutationID     string           `json:"-"`
	Name           string           `json:"name"           validate:"required,max=200"`
	Description    string           `json:"description"`
	Price          *float64         `json:"price"          validate:"required,finite,gte=0"`
	EstimatedPrice *float64         `json:"estimatedPrice" validate:"omitempty,finite,gte=0"`
	Tags           string           `json:"tags"`
	Level          string           `json:"level"`
	Categories     string           `json:"categories"`
	DemoURL        string           `json:"demoUrl"        validate:"omitempty,http_url"`
	Thumbnail      *MediaFile       `json:"-"`
	Items          []NewContentItem `json:"items"          validate:"required,min=1,dive"`
}

func (r *CreateCourseRequest) Validate() error {
	errs := collect(validate.Struct(r))
	errs = append(errs, checkItems(r.Items)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// EditCourseRequest only changes the metadata fields that are non-nil.
type EditCourseRequest struct {
	MutationID      string           `json:"-"`
	CourseID        string           `json:"courseId"        validate:"required,mongodb"`
	ExpectedVersion *int64           `json:"expectedVersion" validate:"omitempty,gte=0"`
	Name            *string          `json:"name"            validate:"omitempty,min=1,max=200"`
	Description     *string          `json:"description"`
	Price           *float64         `json:"price"           validate:"omitempty,finite,gte=0"`
	EstimatedPrice  *float64         `json:"estimatedPrice"  validate:"omitempty,finite,gte=0"`
	Tags            *string          `json:"tags"`
	Level           *string          `json:"level"`
	Categories      *string          `json:"categories"`
	DemoURL         *string          `json:"demoUrl"         validate:"omitempty,http_url"`
	Thumbnail       *MediaFile       `json:"-"`
	Items           []NewContentItem `json:"items"           validate:"dive"`
	VideosToDelete  []string         `json:"videosToDelete"  validate:"dive,mongodb"`
}

func (r *EditCourseRequest) Validate() error {
	errs := collect(validate.Struct(r))
	errs = append(errs, checkItems(r.Items)...)
	seen := map[string]bool{}
	for _, id := range r.VideosToDelete {
		if seen[id] {
			errs = append(errs, &model.ValidationError{Field: "videosToDelete", Message: "contains duplicate id " + id})
		}
		seen[id] = true
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DeleteCourseRequest struct {
	MutationID string `json:"-"`
	CourseID   string `json:"courseId" validate:"required,mongodb"`
}

func (r *DeleteCourseRequest) Validate() error {
	if errs := collect(validate.Struct(r)); len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateCourseID checks a bare path identifier.
func ValidateCourseID(id string) error {
	if err := validate.Var(id, "required,mongodb"); err != nil {
		return model.ValidationErrors{{Field: "courseId", Message: "must be a valid identifier"}}
	}
	return nil
}

func checkItems(items []NewContentItem) model.ValidationErrors {
	var errs model.ValidationErrors
	for i, item := range items {
		if item.File == nil && strings.TrimSpace(item.ExternalURL) == "" {
			errs = append(errs, &model.ValidationError{
				Field:   "items[" + strconv.Itoa(i) + "]",
				Message: "needs a video file or an external URL",
			})
		}
		if item.File != nil && item.File.Path == "" {
			errs = append(errs, &model.ValidationError{Field: "items[" + strconv.Itoa(i) + "].file", Message: "was not received"})
		}
	}
	return errs
}

func collect(err error) model.ValidationErrors {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.ValidationErrors{{Message: err.Error()}}
	}
	out := make(model.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &model.ValidationError{Field: fe.Namespace(), Message: "failed on " + fe.Tag()})
	}
	return out
}

// ListCoursesQuery are the listing filters; they also key the listing cache.
type ListCoursesQuery struct {
	Category string   `url:"category,omitempty" form:"category"`
	Search   string   `url:"search,omitempty"   form:"search"`
	MaxPrice *float64 `url:"price,omitempty"    form:"price"`
	Sort     string   `url:"sort,omitempty"     form:"sort"`
	Order    string   `url:"order,omitempty"    form:"order"`
}

var sortable = map[string]bool{"createdAt": true, "price": true, "name": true, "purchased": true, "ratings": true}

// Normalize applies the listing defaults and rejects unknown sort fields.
func (q *ListCoursesQuery) Normalize() error {
	if q.Sort == "" {
		q.Sort = "createdAt"
	}
	if q.Order == "" {
		q.Order = "desc"
	}
	if !sortable[q.Sort] {
		return model.ValidationErrors{{Field: "sort", Message: "is not sortable"}}
	}
	if q.Order != "asc" && q.Order != "desc" {
		return model.ValidationErrors{{Field: "order", Message: "must be asc or desc"}}
	}
	if q.MaxPrice != nil && (math.IsInf(*q.MaxPrice, 0) || math.IsNaN(*q.MaxPrice)) {
		return model.ValidationErrors{{Field: "price", Message: "must be a finite number"}}
	}
	return nil
}

// Fingerprint is stable for equal filters regardless of parameter order.
func (q ListCoursesQuery) Fingerprint() string {
	v, err := query.Values(q)
	if err != nil {
		return ""
	}
	return v.Encode()
}

// CourseResult is returned by create and edit.
type CourseResult struct {
	MutationID string            `json:"mutationId"`
	Course     *model.Course     `json:"course"`
	Stats      model.CourseStats `json:"stats"`
}
