package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
)

// CameraSeed is the layout of the cameras seed file.
type CameraSeed struct {
	Cameras []entities.Camera `yaml:"cameras"`
}

// CameraUpserter stores seeded cameras.
type CameraUpserter interface {
	Upsert(ctx context.Context, c *entities.Camera) error
}

// LoadCameraSeed parses a YAML seed file.
func LoadCameraSeed(path string) (*CameraSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera seed: %w", err)
	}

	var seed CameraSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse camera seed: %w", err)
	}

	for i, c := range seed.Cameras {
		if c.ID == "" {
			return nil, fmt.Errorf("camera seed entry %d: missing id", i)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("camera seed %s: missing name", c.ID)
		}
	}
	return &seed, nil
}

// SeedCameras upserts every camera in the seed and returns how many were
// written.
func SeedCameras(ctx context.Context, repo CameraUpserter, seed *CameraSeed, now time.Time) (int, error) {
	now = now.UTC().Truncate(time.Second)
	for i := range seed.Cameras {
		c := seed.Cameras[i]
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := repo.Upsert(ctx, &c); err != nil {
			return i, err
		}
	}
	return len(seed.Cameras), nil
}
