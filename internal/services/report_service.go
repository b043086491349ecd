package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/capture"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/messaging"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

var (
	allowedVideoExtensions = map[string]bool{
		".mp4":  true,
		".mov":  true,
		".avi":  true,
		".webm": true,
	}

	extensionsByType = map[string]string{
		"video/mp4":       ".mp4",
		"video/quicktime": ".mov",
		"video/x-msvideo": ".avi",
		"video/webm":      ".webm",
	}

	errTooLarge = errors.New("file exceeds upload limit")
)

// FileStore receives uploaded video files.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	BaseURL() string
}

// ClipSource pulls clips from cameras.
type ClipSource interface {
	Fetch(ctx context.Context, location string) (*capture.Clip, error)
}

// ReportOptions tunes report intake.
type ReportOptions struct {
	MaxUploadBytes int64
	DefaultTitles  []string
	DefaultTags    []string
}

// ReportService turns reports into stored files and catalog rows.
type ReportService struct {
	videos    VideoStore
	files     FileStore
	clips     ClipSource
	publisher messaging.Publisher
	opts      ReportOptions
	log       logger.Logger

	now   func() time.Time
	newID func() string
	pick  func(n int) int
}

// NewReportService creates a ReportService. clips may be nil, which disables
// camera capture reports.
func NewReportService(videos VideoStore, files FileStore, clips ClipSource, publisher messaging.Publisher, opts ReportOptions, log logger.Logger) *ReportService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}
	return &ReportService{
		videos:    videos,
		files:     files,
		clips:     clips,
		publisher: publisher,
		opts:      opts,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		pick:      rand.Intn,
	}
}

type reportMeta struct {
	title       string
	tags        []string
	location    string
	cameraID    string
	user        string
	generatedAt *time.Time
}

// Submit stores an uploaded file and catalogs it. Nothing is written when
// validation fails and no row is inserted when the upload fails.
func (s *ReportService) Submit(ctx context.Context, input entities.ReportInput) (*entities.Video, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError(ErrCodeInvalidInput, "title is required")
	}
	if input.File == nil || input.File.Reader == nil {
		return nil, validationError(ErrCodeInvalidFile, "file is required")
	}

	ext, err := s.validateFile(input.File)
	if err != nil {
		return nil, err
	}

	meta := reportMeta{
		title:       title,
		tags:        input.Tags,
		location:    strings.TrimSpace(input.Location),
		cameraID:    strings.TrimSpace(input.CameraID),
		user:        strings.TrimSpace(input.User),
		generatedAt: input.GeneratedAt,
	}
	return s.store(ctx, meta, input.File, ext)
}

// SubmitFromCamera pulls the latest clip from the camera at req.Location
// and catalogs it. Missing title and tags fall back to the configured
// defaults.
func (s *ReportService) SubmitFromCamera(ctx context.Context, req entities.CaptureReportRequest) (*entities.Video, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return nil, validationError(ErrCodeInvalidInput, "location is required")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" && len(s.opts.DefaultTitles) > 0 {
		title = s.opts.DefaultTitles[s.pick(len(s.opts.DefaultTitles))]
	}
	if title == "" {
		return nil, validationError(ErrCodeInvalidInput, "title is required")
	}

	tags := req.Tags
	if len(entities.SplitTags(entities.JoinTags(tags))) == 0 {
		tags = s.opts.DefaultTags
	}

	if s.clips == nil {
		return nil, &ServiceError{Type: ErrTypeUpstream, Code: ErrCodeCameraUnavailable, Message: "camera capture is disabled"}
	}

	clip, err := s.clips.Fetch(ctx, location)
	if err != nil {
		if errors.Is(err, capture.ErrInvalidLocation) {
			return nil, validationError(ErrCodeInvalidInput, "location does not name a camera")
		}
		return nil, &ServiceError{Type: ErrTypeUpstream, Code: ErrCodeCameraUnavailable, Message: "failed to capture video from camera", Err: err}
	}
	defer clip.Body.Close()

	if clip.Size > s.opts.MaxUploadBytes {
		return nil, clipTooLarge()
	}
	if clip.Size == 0 {
		return nil, emptyClip()
	}

	var body io.Reader = clip.Body
	if clip.Size < 0 {
		br := bufio.NewReader(clip.Body)
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, emptyClip()
			}
			return nil, &ServiceError{Type: ErrTypeUpstream, Code: ErrCodeCameraUnavailable, Message: "failed to read camera clip", Err: err}
		}
		body = br
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(clip.ContentType, ";")[0]))
	ext, ok := extensionsByType[contentType]
	if !ok {
		ext = entities.DefaultVideoExt
	}

	meta := reportMeta{
		title:       title,
		tags:        tags,
		location:    location,
		cameraID:    strings.TrimSpace(req.CameraID),
		user:        strings.TrimSpace(req.User),
		generatedAt: req.GeneratedAt,
	}
	file := &entities.UploadFile{
		Filename:    location + ext,
		Size:        clip.Size,
		ContentType: clip.ContentType,
		Reader:      body,
	}
	return s.store(ctx, meta, file, ext)
}

// validateFile checks size, extension and content type and returns the
// lower cased extension.
func (s *ReportService) validateFile(file *entities.UploadFile) (string, error) {
	if file.Size == 0 {
		return "", validationError(ErrCodeInvalidFile, "file is empty")
	}
	if file.Size > s.opts.MaxUploadBytes {
		return "", validationError(ErrCodeInvalidFile,
			fmt.Sprintf("file too large, at most %dMB", s.opts.MaxUploadBytes>>20))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedVideoExtensions[ext] {
		return "", validationError(ErrCodeInvalidFile, "unsupported file format, allowed: mp4, mov, avi, webm")
	}

	contentType := strings.ToLower(file.ContentType)
	if contentType != "" && !strings.HasPrefix(contentType, "video/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		return "", validationError(ErrCodeInvalidFile, "unsupported content type "+file.ContentType)
	}
	return ext, nil
}

// store uploads the file, inserts the row and announces it.
func (s *ReportService) store(ctx context.Context, meta reportMeta, file *entities.UploadFile, ext string) (*entities.Video, error) {
	movieID := s.newID()
	key := movieID + ext

	contentType := file.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		if ct := typeForExtension(ext); ct != "" {
			contentType = ct
		}
	}

	var reader io.Reader = file.Reader
	var limited *limitedReader
	if file.Size < 0 {
		limited = &limitedReader{r: file.Reader, remaining: s.opts.MaxUploadBytes}
		reader = limited
	}

	if err := s.files.Upload(ctx, key, reader, file.Size, contentType); err != nil {
		s.log.ErrorContext(ctx, "upload %s: %v", key, err)
		// stores may wrap or drop the reader's error
		if errors.Is(err, errTooLarge) || (limited != nil && limited.exceeded) {
			return nil, clipTooLarge()
		}
		return nil, &ServiceError{Type: ErrTypeStorage, Code: ErrCodeFileUpload, Message: "failed to upload file", Err: err}
	}

	now := s.now().UTC().Truncate(time.Second)
	createdAt := now
	if meta.generatedAt != nil && !meta.generatedAt.IsZero() {
		createdAt = meta.generatedAt.UTC().Truncate(time.Second)
	}

	video := &entities.Video{
		MovieID:   movieID,
		Title:     meta.title,
		Tags:      entities.JoinTags(meta.tags),
		Location:  meta.location,
		BaseURL:   s.files.BaseURL(),
		ObjectKey: key,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if meta.cameraID != "" {
		cameraID := meta.cameraID
		video.CameraID = &cameraID
	}

	if err := s.videos.Create(ctx, video); err != nil {
		// the object stays behind; there is no compensation step
		s.log.ErrorContext(ctx, "insert video %s after upload of %s: %v", movieID, key, err)
		return nil, databaseError(ErrCodeDBInsert, "failed to save video", err)
	}

	s.log.WithFields(map[string]interface{}{
		"movie_id": movieID,
		"key":      key,
		"user":     meta.user,
	}).InfoContext(ctx, "video reported")

	payload := messaging.VideoReportedPayload{
		MovieID:      video.MovieID,
		Title:        video.Title,
		Tags:         video.TagList(),
		Location:     video.Location,
		CameraID:     meta.cameraID,
		User:         meta.user,
		URL:          video.URL(),
		GenerateDate: video.CreatedAt,
	}
	if err := s.publisher.PublishVideoReported(ctx, payload); err != nil {
		s.log.WarnContext(ctx, "publish video.reported for %s: %v", movieID, err)
	}
	return video, nil
}

func clipTooLarge() error {
	return &ServiceError{Type: ErrTypeUpstream, Code: ErrCodeCameraUnavailable, Message: "camera clip exceeds upload limit", Err: errTooLarge}
}

func emptyClip() error {
	return &ServiceError{Type: ErrTypeUpstream, Code: ErrCodeCameraUnavailable, Message: "camera returned an empty clip"}
}

func typeForExtension(ext string) string {
	for ct, e := range extensionsByType {
		if e == ext {
			return ct
		}
	}
	return ""
}

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, errTooLarge
	}
	return n, err
}
