package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultSection = "Default Section"

	StorageTypeYouTube  = "youtube"
	StorageTypeS3       = "s3"
	StorageTypeExternal = "external"
)

// Thumbnail references an image asset held by the remote media service.
type Thumbnail struct {
	StorageID string `json:"storageId,omitempty" bson:"storageId,omitempty"`
	URL       string `json:"url,omitempty"       bson:"url,omitempty"`
}

type Link struct {
	Title string `json:"title" bson:"title"`
	URL   string `json:"url"   bson:"url"`
}

// Question is carried through edits untouched.
type Question struct {
	ID        bson.ObjectID `json:"id"                  bson:"_id,omitempty"`
	UserID    string        `json:"userId"              bson:"userId"`
	Question  string        `json:"question"            bson:"question"`
	Replies   []bson.M      `json:"replies,omitempty"   bson:"replies,omitempty"`
	CreatedAt time.Time     `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// ContentItem is one video lecture embedded in a Course document.
// ID stays zero until the item has been persisted once.
type ContentItem struct {
	ID             bson.ObjectID `json:"id"                     bson:"_id,omitempty"`
	Title          string        `json:"title"                  bson:"title"`
	Description    string        `json:"description"            bson:"description"`
	VideoURL       string        `json:"videoUrl,omitempty"     bson:"videoUrl"`
	VideoStorageID string        `json:"videoStorageId,omitempty" bson:"videoStorageId,omitempty"`
	StorageType    string        `json:"storageType,omitempty"  bson:"storageType,omitempty"`
	VideoSection   string        `json:"videoSection"           bson:"videoSection"`
	VideoLength    int           `json:"videoLength"            bson:"videoLength"`
	Links          []Link        `json:"links,omitempty"        bson:"links,omitempty"`
	Questions      []Question    `json:"questions,omitempty"    bson:"questions,omitempty"`
}

// Uploaded reports whether the item completed the upload step.
// External items never go through the media service.
func (c ContentItem) Uploaded() bool {
	if c.StorageType == StorageTypeExternal {
		return c.VideoURL != ""
	}
	return c.VideoStorageID != ""
}

type Course struct {
	ID             bson.ObjectID `json:"id"                       bson:"_id,omitempty"`
	Name           string        `json:"name"                     bson:"name"`
	Description    string        `json:"description"              bson:"description"`
	Price          float64       `json:"price"                    bson:"price"`
	EstimatedPrice float64       `json:"estimatedPrice,omitempty" bson:"estimatedPrice,omitempty"`
	Tags           string        `json:"tags"                     bson:"tags"`
	Level          string        `json:"level"                    bson:"level"`
	Categories     string        `json:"categories"               bson:"categories"`
	DemoURL        string        `json:"demoUrl,omitempty"        bson:"demoUrl,omitempty"`
	Thumbnail      Thumbnail     `json:"thumbnail"                bson:"thumbnail"`
	Content        []ContentItem `json:"courseData"               bson:"courseData"`
	Purchased      int           `json:"purchased"                bson:"purchased"`
	Ratings        float64       `json:"ratings"                  bson:"ratings"`
	Version        int64         `json:"version"                  bson:"version"`
	CreatedAt      time.Time     `json:"createdAt"                bson:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"                bson:"updatedAt"`
}

// PublicView strips the fields only enrolled users may see.
func (c Course) PublicView() Course {
	out := c
	out.Content = make([]ContentItem, len(c.Content))
	for i, item := range c.Content {
		item.VideoURL = ""
		item.Links = nil
		item.Questions = nil
		out.Content[i] = item
	}
	return out
}

// CourseStats summarises the organized content list.
type CourseStats struct {
	TotalVideos      int            `json:"totalVideos"`
	TotalDuration    int            `json:"totalDuration"`
	Sections         int            `json:"sections"`
	SectionBreakdown map[string]int `json:"sectionBreakdown"`
}

func StatsOf(items []ContentItem) CourseStats {
	stats := CourseStats{SectionBreakdown: map[string]int{}}
	for _, item := range items {
		stats.TotalVideos++
		stats.TotalDuration += item.VideoLength
		stats.SectionBreakdown[item.VideoSection]++
	}
	stats.Sections = len(stats.SectionBreakdown)
	return stats
}
