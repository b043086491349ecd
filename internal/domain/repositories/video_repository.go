package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
)

var (
	ErrMovieIDExists = errors.New("movie id already exists")
)

const videoColumns = `id, movie_id, title, tags, location, camera_id, base_url, object_key, created_at, updated_at`

// VideoRepository reads and writes the videos table.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository creates a VideoRepository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// likeEscape escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns videos matching q and every tag in tags, newest first.
// q is a substring of title or location; tags match whole tokens.
func (r *VideoRepository) List(ctx context.Context, q string, tags []string, limit int) ([]entities.Video, error) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString("SELECT " + videoColumns + " FROM videos WHERE 1=1")

	if q != "" {
		pattern := "%" + likeEscape(q) + "%"
		sb.WriteString(` AND (title LIKE ? ESCAPE '\' OR location LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	for _, tag := range tags {
		sb.WriteString(` AND (',' || tags || ',') LIKE ? ESCAPE '\'`)
		args = append(args, "%,"+likeEscape(tag)+",%")
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, limit)

	videos := []entities.Video{}
	if err := r.db.SelectContext(ctx, &videos, r.db.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// FindByMovieIDs returns the videos whose movie id is in ids, in store order.
func (r *VideoRepository) FindByMovieIDs(ctx context.Context, ids []string) ([]entities.Video, error) {
	videos := []entities.Video{}
	if len(ids) == 0 {
		return videos, nil
	}

	query, args, err := sqlx.In("SELECT "+videoColumns+" FROM videos WHERE movie_id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("build bulk query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &videos, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find videos by movie id: %w", err)
	}
	return videos, nil
}

// FindByMovieID returns a single video.
func (r *VideoRepository) FindByMovieID(ctx context.Context, movieID string) (*entities.Video, error) {
	videos, err := r.FindByMovieIDs(ctx, []string{movieID})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrVideoNotFound
	}
	return &videos[0], nil
}

// Create inserts v and sets v.ID.
func (r *VideoRepository) Create(ctx context.Context, v *entities.Video) error {
	query := r.db.Rebind(`
		INSERT INTO videos (
			movie_id, title, tags, location, camera_id, base_url, object_key, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowxContext(ctx, query,
		v.MovieID,
		v.Title,
		v.Tags,
		v.Location,
		v.CameraID,
		v.BaseURL,
		v.ObjectKey,
		v.CreatedAt,
		v.UpdatedAt,
	).Scan(&v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMovieIDExists
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// ListTagStrings returns the raw tags column of every tagged video, oldest
// first.
func (r *VideoRepository) ListTagStrings(ctx context.Context) ([]string, error) {
	tags := []string{}
	query := "SELECT tags FROM videos WHERE tags <> '' ORDER BY created_at ASC, id ASC"
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
