package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
)

var (
	ErrCameraNotFound = errors.New("camera not found")
	ErrVideoNotFound  = errors.New("video not found")
)

// CameraRepository reads and seeds the cameras table.
type CameraRepository struct {
	db *sqlx.DB
}

// NewCameraRepository creates a CameraRepository.
func NewCameraRepository(db *sqlx.DB) *CameraRepository {
	return &CameraRepository{db: db}
}

// FindByID returns the camera or ErrCameraNotFound.
func (r *CameraRepository) FindByID(ctx context.Context, id string) (*entities.Camera, error) {
	var camera entities.Camera
	query := r.db.Rebind("SELECT id, name, latitude, longitude, url, created_at, updated_at FROM cameras WHERE id = ?")
	if err := r.db.GetContext(ctx, &camera, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCameraNotFound
		}
		return nil, fmt.Errorf("find camera: %w", err)
	}
	return &camera, nil
}

// Upsert inserts c or updates the existing row with the same id.
func (r *CameraRepository) Upsert(ctx context.Context, c *entities.Camera) error {
	query := r.db.Rebind(`
		INSERT INTO cameras (id, name, latitude, longitude, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			url = excluded.url,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Latitude, c.Longitude, c.URL, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert camera %s: %w", c.ID, err)
	}
	return nil
}
