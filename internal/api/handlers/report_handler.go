package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/api/middleware"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/services"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// multipart overhead allowed on top of the file limit
const formOverhead = 1 << 20

// layouts accepted for generateDate; values without an offset are UTC
var generateDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ReportService is what ReportHandler needs from report intake.
type ReportService interface {
	Submit(ctx context.Context, input entities.ReportInput) (*entities.Video, error)
	SubmitFromCamera(ctx context.Context, req entities.CaptureReportRequest) (*entities.Video, error)
}

// ReportHandler accepts video reports.
type ReportHandler struct {
	reports        ReportService
	loc            *time.Location
	maxUploadBytes int64
	log            logger.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports ReportService, loc *time.Location, maxUploadBytes int64, log logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, loc: loc, maxUploadBytes: maxUploadBytes, log: log}
}

// Create handles POST /report. A multipart body carries the file itself; a
// JSON body asks the server to pull the clip from the camera.
func (h *ReportHandler) Create(c *gin.Context) {
	if c.ContentType() == binding.MIMEJSON {
		h.createFromCamera(c)
		return
	}
	h.createFromUpload(c)
}

func (h *ReportHandler) createFromUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formOverhead)

	var form entities.CreateReportForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		h.formError(c, err)
		return
	}

	generatedAt, err := parseGenerateDate(form.GenerateDate)
	if err != nil {
		badRequest(c, "generateDate must be an RFC 3339 timestamp")
		return
	}

	input := entities.ReportInput{
		Title:       form.Title,
		Tags:        form.Tags,
		Location:    form.Location,
		CameraID:    form.CameraID,
		User:        h.user(c, form.User),
		GeneratedAt: generatedAt,
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		src, err := fileHeader.Open()
		if err != nil {
			badRequest(c, "could not read uploaded file")
			return
		}
		defer src.Close()
		input.File = uploadFile(fileHeader, src)
	case errors.Is(err, http.ErrMissingFile):
		// the service reports the missing file after checking the title
	default:
		h.formError(c, err)
		return
	}

	video, err := h.reports.Submit(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.created(c, video, input.User)
}

func (h *ReportHandler) createFromCamera(c *gin.Context) {
	var req entities.CaptureReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, jsonBindMessage(err))
		return
	}

	generatedAt, err := parseGenerateDate(req.GenerateDate)
	if err != nil {
		badRequest(c, "generateDate must be an RFC 3339 timestamp")
		return
	}
	req.GeneratedAt = generatedAt
	req.User = h.user(c, req.User)

	video, err := h.reports.SubmitFromCamera(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.created(c, video, req.User)
}

func (h *ReportHandler) created(c *gin.Context, video *entities.Video, user string) {
	c.JSON(http.StatusCreated, entities.ReportResponse{
		Message:       "video reported",
		User:          strings.TrimSpace(user),
		VideoResponse: entities.NewVideoResponse(*video, h.loc),
	})
}

// user prefers the authenticated user over the submitted one.
func (h *ReportHandler) user(c *gin.Context, submitted string) string {
	if u := c.GetString(middleware.ContextKeyUser); u != "" {
		return u
	}
	return submitted
}

func (h *ReportHandler) formError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "request body too large",
			"code":  services.ErrCodeInvalidFile,
			"type":  services.ErrTypeValidation,
		})
		return
	}
	badRequest(c, "invalid multipart form")
}

func jsonBindMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body is not valid JSON"
	}
	return "invalid request body: " + err.Error()
}

func uploadFile(header *multipart.FileHeader, src multipart.File) *entities.UploadFile {
	return &entities.UploadFile{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      src,
	}
}

func parseGenerateDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range generateDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
