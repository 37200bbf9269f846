package dto_test

import (
	"math"
	"testing"

	"course-service/domain/dto"
	"course-service/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func float(f float64) *float64 { return &f }

func createRequest(mod func(r *dto.CreateCourseRequest)) *dto.CreateCourseRequest {
	r := &dto.CreateCourseRequest{
		Name:  "Go in Practice",
		Price: float(10),
		Items: []dto.NewContentItem{{ExternalURL: "https://cdn.example.com/intro.mp4"}},
	}
	if mod != nil {
		mod(r)
	}
	return r
}

func TestCreateCourseRequest_Validate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(r *dto.CreateCourseRequest)
		field string
	}{
		{"valid", nil, ""},
		{"infinite price", func(r *dto.CreateCourseRequest) { r.Price = float(math.Inf(1)) }, "Price"},
		{"NaN price", func(r *dto.CreateCourseRequest) { r.Price = float(math.NaN()) }, "Price"},
		{"infinite estimate", func(r *dto.CreateCourseRequest) { r.EstimatedPrice = float(math.Inf(-1)) }, "EstimatedPrice"},
		{"negative price", func(r *dto.CreateCourseRequest) { r.Price = float(-1) }, "Price"},
		{"missing price", func(r *dto.CreateCourseRequest) { r.Price = nil }, "Price"},
		{"file url", func(r *dto.CreateCourseRequest) { r.Items[0].ExternalURL = "file:///etc/passwd" }, "ExternalURL"},
		{"ftp url", func(r *dto.CreateCourseRequest) { r.Items[0].ExternalURL = "ftp://media.example.com/a.mp4" }, "ExternalURL"},
		{"non-http demo", func(r *dto.CreateCourseRequest) { r.DemoURL = "javascript:alert(1)" }, "DemoURL"},
		{"item without source", func(r *dto.CreateCourseRequest) { r.Items[0].ExternalURL = "" }, "items[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := createRequest(tt.mod).Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs model.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Error(), tt.field)
		})
	}
}

func TestEditCourseRequest_Validate(t *testing.T) {
	id := bson.NewObjectID().Hex()

	assert.NoError(t, (&dto.EditCourseRequest{CourseID: id, Price: float(5)}).Validate())
	assert.Error(t, (&dto.EditCourseRequest{CourseID: id, Price: float(math.Inf(1))}).Validate())
	assert.Error(t, (&dto.EditCourseRequest{CourseID: "nope"}).Validate())

	dup := bson.NewObjectID().Hex()
	err := (&dto.EditCourseRequest{CourseID: id, VideosToDelete: []string{dup, dup}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestListCoursesQuery_Normalize(t *testing.T) {
	q := dto.ListCoursesQuery{}
	require.NoError(t, q.Normalize())
	assert.Equal(t, "createdAt", q.Sort)
	assert.Equal(t, "desc", q.Order)

	bad := dto.ListCoursesQuery{MaxPrice: float(math.Inf(1))}
	assert.Error(t, bad.Normalize())

	a := dto.ListCoursesQuery{Category: "go", Sort: "price", Order: "asc"}
	b := dto.ListCoursesQuery{Order: "asc", Sort: "price", Category: "go"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}
