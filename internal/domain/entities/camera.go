package entities

import "time"

// Camera is a pre-registered capture point. Rows come from seed data.
type Camera struct {
	ID        string    `json:"id" db:"id" yaml:"id"`
	Name      string    `json:"name" db:"name" yaml:"name"`
	Latitude  float64   `json:"latitude" db:"latitude" yaml:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude" yaml:"longitude"`
	URL       string    `json:"url" db:"url" yaml:"url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" yaml:"-"`
}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CameraResponse is the client facing representation of a camera.
type CameraResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
	URL        string     `json:"url"`
}

// NewCameraResponse converts a Camera.
func NewCameraResponse(c Camera) CameraResponse {
	return CameraResponse{
		ID:         c.ID,
		Name:       c.Name,
		Coordinate: Coordinate{Lat: c.Latitude, Lng: c.Longitude},
		URL:        c.URL,
	}
}
