package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/repositories"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/storage"
)

var t0 = time.Date(2025, 11, 27, 1, 0, 0, 0, time.UTC)

func newRepos(t *testing.T) *storage.Repositories {
	t.Helper()
	ctx := context.Background()

	db, err := storage.NewDBConnection(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(ctx, db, config.DriverSQLite))

	repos := storage.NewRepositories(db)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func insertVideo(t *testing.T, repo *repositories.VideoRepository, movieID, title, tags, location string, at time.Time) *entities.Video {
	t.Helper()
	v := &entities.Video{
		MovieID:   movieID,
		Title:     title,
		Tags:      tags,
		Location:  location,
		BaseURL:   "https://pub.example.dev",
		ObjectKey: movieID + ".mp4",
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, repo.Create(context.Background(), v))
	return v
}

func movieIDs(videos []entities.Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.MovieID)
	}
	return ids
}

func TestVideoCreateAssignsID(t *testing.T) {
	repos := newRepos(t)
	cam := "cam-1"
	v := &entities.Video{
		MovieID:   "m1",
		Title:     "goal",
		Tags:      "soccer",
		CameraID:  &cam,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	require.NoError(t, repos.Videos.Create(context.Background(), v))
	assert.NotZero(t, v.ID)

	got, err := repos.Videos.FindByMovieID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "goal", got.Title)
	require.NotNil(t, got.CameraID)
	assert.Equal(t, "cam-1", *got.CameraID)
	assert.True(t, t0.Equal(got.CreatedAt))
}

func TestVideoCreateDuplicateMovieID(t *testing.T) {
	repos := newRepos(t)
	insertVideo(t, repos.Videos, "dup", "first", "", "", t0)

	err := repos.Videos.Create(context.Background(), &entities.Video{MovieID: "dup", Title: "second", CreatedAt: t0, UpdatedAt: t0})
	assert.ErrorIs(t, err, repositories.ErrMovieIDExists)
}

func TestVideoListRespectsLimit(t *testing.T) {
	repos := newRepos(t)
	for i := 0; i < 12; i++ {
		insertVideo(t, repos.Videos, fmt.Sprintf("m%02d", i), "clip", "", "", t0.Add(time.Duration(i)*time.Minute))
	}

	for _, limit := range []int{1, 5, 12, 50} {
		videos, err := repos.Videos.List(context.Background(), "", nil, limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(videos), limit)
	}
}

func TestVideoListNewestFirst(t *testing.T) {
	repos := newRepos(t)
	insertVideo(t, repos.Videos, "old", "a", "", "", t0)
	insertVideo(t, repos.Videos, "new", "b", "", "", t0.Add(time.Hour))
	insertVideo(t, repos.Videos, "mid", "c", "", "", t0.Add(30*time.Minute))

	videos, err := repos.Videos.List(context.Background(), "", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, movieIDs(videos))
}

func TestVideoListQueryMatchesTitleOrLocation(t *testing.T) {
	repos := newRepos(t)
	insertVideo(t, repos.Videos, "m1", "大阪駅でダンス", "", "camera1", t0)
	insertVideo(t, repos.Videos, "m2", "jump", "", "大阪城公園", t0.Add(time.Minute))
	insertVideo(t, repos.Videos, "m3", "run", "", "京都", t0.Add(2*time.Minute))

	videos, err := repos.Videos.List(context.Background(), "大阪", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, movieIDs(videos))

	videos, err = repos.Videos.List(context.Background(), "nothing", nil, 10)
	require.NoError(t, err)
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
}

func TestVideoListTagsAreExactAndAnded(t *testing.T) {
	repos := newRepos(t)
	insertVideo(t, repos.Videos, "m1", "a", "soccer,goal", "", t0)
	insertVideo(t, repos.Videos, "m2", "b", "soccer", "", t0.Add(time.Minute))
	insertVideo(t, repos.Videos, "m3", "c", "soccerball,goal", "", t0.Add(2*time.Minute))
	insertVideo(t, repos.Videos, "m4", "d", "100%_real", "", t0.Add(3*time.Minute))

	ctx := context.Background()

	videos, err := repos.Videos.List(ctx, "", []string{"soccer"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, movieIDs(videos))

	videos, err = repos.Videos.List(ctx, "", []string{"soccer", "goal"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, movieIDs(videos))

	// wildcards in a tag are literal
	videos, err = repos.Videos.List(ctx, "", []string{"100%_real"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m4"}, movieIDs(videos))

	videos, err = repos.Videos.List(ctx, "", []string{"100%"}, 10)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestVideoFindByMovieIDs(t *testing.T) {
	repos := newRepos(t)
	insertVideo(t, repos.Videos, "m1", "a", "", "", t0)
	insertVideo(t, repos.Videos, "m2", "b", "", "", t0.Add(time.Minute))

	videos, err := repos.Videos.FindByMovieIDs(context.Background(), []string{"m2", "m2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, movieIDs(videos))

	videos, err = repos.Videos.FindByMovieIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestVideoFindByMovieIDNotFound(t *testing.T) {
	repos := newRepos(t)
	_, err := repos.Videos.FindByMovieID(context.Background(), "nope")
	assert.ErrorIs(t, err, repositories.ErrVideoNotFound)
}

func TestVideoListTagStringsOldestFirst(t *testing.T) {
	repos := newRepos(t)
	insertVideo(t, repos.Videos, "m1", "a", "b,c", "", t0.Add(time.Minute))
	insertVideo(t, repos.Videos, "m2", "b", "", "", t0.Add(2*time.Minute))
	insertVideo(t, repos.Videos, "m3", "c", "a", "", t0)

	tags, err := repos.Videos.ListTagStrings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b,c"}, tags)
}

func TestCameraFindByID(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	_, err := repos.Cameras.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrCameraNotFound)

	cam := &entities.Camera{ID: "cam-1", Name: "camera1", Latitude: 34.7, Longitude: 135.5, URL: "http://camera1", CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, repos.Cameras.Upsert(ctx, cam))

	got, err := repos.Cameras.FindByID(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, "camera1", got.Name)
	assert.Equal(t, 135.5, got.Longitude)

	cam.Name = "renamed"
	cam.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, repos.Cameras.Upsert(ctx, cam))

	got, err = repos.Cameras.FindByID(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, t0.Equal(got.CreatedAt))
}
