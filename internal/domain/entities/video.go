package entities

import (
	"io"
	"strings"
	"time"
)

// Video is a catalog row. One row per accepted report.
type Video struct {
	ID        int64     `json:"-" db:"id"`
	MovieID   string    `json:"movieId" db:"movie_id"`
	Title     string    `json:"title" db:"title"`
	Tags      string    `json:"tags" db:"tags"`
	Location  string    `json:"location" db:"location"`
	CameraID  *string   `json:"cameraId,omitempty" db:"camera_id"`
	BaseURL   string    `json:"baseUrl" db:"base_url"`
	ObjectKey string    `json:"objectKey" db:"object_key"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DefaultVideoExt is assumed for rows stored without an object key.
const DefaultVideoExt = ".mp4"

// TagList returns the stored tags as tokens.
func (v Video) TagList() []string {
	return SplitTags(v.Tags)
}

// Key returns the object key of the video file.
func (v Video) Key() string {
	if v.ObjectKey != "" {
		return v.ObjectKey
	}
	return v.MovieID + DefaultVideoExt
}

// URL is the public location of the video file.
func (v Video) URL() string {
	return strings.TrimRight(v.BaseURL, "/") + "/" + v.Key()
}

// SplitTags splits a comma separated tag string, trimming tokens and
// dropping empty ones.
func SplitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags normalises tags into the stored comma separated form. Empty and
// repeated tokens are dropped, first occurrence wins.
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, t := range SplitTags(raw) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}

// VideoQuery filters the catalog listing.
type VideoQuery struct {
	Q     string
	Tags  []string
	Limit int
}

// Listing limits.
const (
	DefaultListLimit = 10
	MinListLimit     = 1
	MaxListLimit     = 50
)

// ClampLimit forces limit into [MinListLimit, MaxListLimit].
func ClampLimit(limit int) int {
	switch {
	case limit < MinListLimit:
		return MinListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// BulkVideosRequest is the body of POST /videos/bulk.
type BulkVideosRequest struct {
	Videos []string `json:"videos" binding:"required"`
}

// MaxBulkIDs caps a single bulk fetch.
const MaxBulkIDs = 100

// UploadFile is a video file received from a client or a camera.
type UploadFile struct {
	Filename    string
	Size        int64 // -1 when unknown
	ContentType string
	Reader      io.Reader
}

// ReportInput is a report submitted with an uploaded file.
type ReportInput struct {
	Title       string
	Tags        []string
	Location    string
	CameraID    string
	User        string
	GeneratedAt *time.Time
	File        *UploadFile
}

// CreateReportForm binds the multipart fields of POST /report.
type CreateReportForm struct {
	Title        string   `form:"title"`
	Tags         []string `form:"tags"`
	Location     string   `form:"location"`
	CameraID     string   `form:"cameraId"`
	User         string   `form:"user"`
	GenerateDate string   `form:"generateDate"`
}

// CaptureReportRequest is the JSON form of POST /report: the clip is pulled
// from the camera at Location.
type CaptureReportRequest struct {
	User         string   `json:"user"`
	Location     string   `json:"location"`
	CameraID     string   `json:"cameraId"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags"`
	GenerateDate string   `json:"generateDate"`

	// GeneratedAt is GenerateDate parsed by the handler.
	GeneratedAt *time.Time `json:"-"`
}

// VideoResponse is the client facing representation of a video.
type VideoResponse struct {
	MovieID      string    `json:"movieId"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags"`
	Location     string    `json:"location"`
	CameraID     string    `json:"cameraId,omitempty"`
	BaseURL      string    `json:"baseUrl"`
	URL          string    `json:"url"`
	GenerateDate time.Time `json:"generateDate"`
}

// NewVideoResponse renders v with dates in loc.
func NewVideoResponse(v Video, loc *time.Location) VideoResponse {
	if loc == nil {
		loc = time.UTC
	}
	resp := VideoResponse{
		MovieID:      v.MovieID,
		Title:        v.Title,
		Tags:         v.TagList(),
		Location:     v.Location,
		BaseURL:      v.BaseURL,
		URL:          v.URL(),
		GenerateDate: v.CreatedAt.In(loc),
	}
	if v.CameraID != nil {
		resp.CameraID = *v.CameraID
	}
	return resp
}

// NewVideoResponses renders a list; never returns nil.
func NewVideoResponses(videos []Video, loc *time.Location) []VideoResponse {
	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, NewVideoResponse(v, loc))
	}
	return out
}

// ReportResponse is returned by POST /report.
type ReportResponse struct {
	Message string `json:"message"`
	User    string `json:"user,omitempty"`
	VideoResponse
}
