package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/repositories"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// VideoStore is the persistence the services need for videos.
type VideoStore interface {
	List(ctx context.Context, q string, tags []string, limit int) ([]entities.Video, error)
	FindByMovieIDs(ctx context.Context, ids []string) ([]entities.Video, error)
	FindByMovieID(ctx context.Context, movieID string) (*entities.Video, error)
	Create(ctx context.Context, v *entities.Video) error
	ListTagStrings(ctx context.Context) ([]string, error)
}

// CatalogService answers video searches.
type CatalogService struct {
	videos VideoStore
	log    logger.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(videos VideoStore, log logger.Logger) *CatalogService {
	return &CatalogService{videos: videos, log: log}
}

// List returns at most query.Limit videos, newest first. The limit is
// clamped into [1, 50]; tags must all be present on a video.
func (s *CatalogService) List(ctx context.Context, query entities.VideoQuery) ([]entities.Video, error) {
	limit := entities.ClampLimit(query.Limit)

	var tags []string
	for _, raw := range query.Tags {
		tags = append(tags, entities.SplitTags(raw)...)
	}

	videos, err := s.videos.List(ctx, strings.TrimSpace(query.Q), tags, limit)
	if err != nil {
		return nil, databaseError(ErrCodeDBQuery, "failed to list videos", err)
	}
	return videos, nil
}

// BulkFetch returns the videos for ids in request order. Unknown ids are
// skipped and repeated ids yield the video once.
func (s *CatalogService) BulkFetch(ctx context.Context, ids []string) ([]entities.Video, error) {
	if len(ids) > entities.MaxBulkIDs {
		return nil, validationError(ErrCodeTooManyIDs,
			fmt.Sprintf("at most %d ids per request", entities.MaxBulkIDs))
	}

	seen := make(map[string]struct{}, len(ids))
	wanted := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		wanted = append(wanted, id)
	}

	found, err := s.videos.FindByMovieIDs(ctx, wanted)
	if err != nil {
		return nil, databaseError(ErrCodeDBQuery, "failed to fetch videos", err)
	}

	byID := make(map[string]entities.Video, len(found))
	for _, v := range found {
		byID[v.MovieID] = v
	}

	videos := make([]entities.Video, 0, len(found))
	for _, id := range wanted {
		if v, ok := byID[id]; ok {
			videos = append(videos, v)
		}
	}
	return videos, nil
}

// Get returns one video by movie id.
func (s *CatalogService) Get(ctx context.Context, movieID string) (*entities.Video, error) {
	v, err := s.videos.FindByMovieID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, notFoundError("video not found", err)
		}
		return nil, databaseError(ErrCodeDBQuery, "failed to fetch video", err)
	}
	return v, nil
}
