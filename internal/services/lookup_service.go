package services

import (
	"context"
	"errors"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/repositories"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// CameraStore reads cameras.
type CameraStore interface {
	FindByID(ctx context.Context, id string) (*entities.Camera, error)
}

// LookupService serves tags and cameras.
type LookupService struct {
	videos  VideoStore
	cameras CameraStore
	log     logger.Logger
}

// NewLookupService creates a LookupService.
func NewLookupService(videos VideoStore, cameras CameraStore, log logger.Logger) *LookupService {
	return &LookupService{videos: videos, cameras: cameras, log: log}
}

// ListTags returns every tag token once, in the order first used.
func (s *LookupService) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.videos.ListTagStrings(ctx)
	if err != nil {
		return nil, databaseError(ErrCodeDBQuery, "failed to list tags", err)
	}

	seen := make(map[string]struct{})
	tags := []string{}
	for _, row := range rows {
		for _, tag := range entities.SplitTags(row) {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// GetCamera returns the camera or a not found error.
func (s *LookupService) GetCamera(ctx context.Context, id string) (*entities.Camera, error) {
	camera, err := s.cameras.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCameraNotFound) {
			return nil, notFoundError("camera not found", err)
		}
		s.log.ErrorContext(ctx, "find camera %s: %v", id, err)
		return nil, databaseError(ErrCodeDBQuery, "failed to fetch camera", err)
	}
	return camera, nil
}
