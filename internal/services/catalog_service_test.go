package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

var t0 = time.Date(2025, 11, 27, 1, 0, 0, 0, time.UTC)

func seededStore(n int) *fakeVideoStore {
	store := &fakeVideoStore{}
	for i := 0; i < n; i++ {
		store.videos = append(store.videos, entities.Video{
			MovieID:   fmt.Sprintf("m%02d", i),
			Title:     "clip",
			Tags:      "a,b",
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		})
	}
	return store
}

func TestListClampsLimit(t *testing.T) {
	store := seededStore(60)
	svc := NewCatalogService(store, logger.Discard())

	cases := []struct {
		in, want int
	}{
		{-1, 1}, {0, 1}, {1, 1}, {10, 10}, {50, 50}, {51, 50}, {1000, 50},
	}
	for _, tc := range cases {
		videos, err := svc.List(context.Background(), entities.VideoQuery{Limit: tc.in})
		require.NoError(t, err)
		assert.Equal(t, tc.want, store.lastLimit, "limit %d", tc.in)
		assert.LessOrEqual(t, len(videos), tc.want)
	}
}

func TestListNormalisesTags(t *testing.T) {
	store := seededStore(1)
	svc := NewCatalogService(store, logger.Discard())

	_, err := svc.List(context.Background(), entities.VideoQuery{Tags: []string{" a, ,b ", "c"}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, store.lastTags)
}

func TestListDatabaseError(t *testing.T) {
	svc := NewCatalogService(&fakeVideoStore{err: errBoom}, logger.Discard())
	_, err := svc.List(context.Background(), entities.VideoQuery{Limit: 10})
	assert.True(t, IsType(err, ErrTypeDatabase))
	assert.ErrorIs(t, err, errBoom)
}

func TestBulkFetchKeepsRequestOrderWithoutDuplicates(t *testing.T) {
	svc := NewCatalogService(seededStore(5), logger.Discard())

	videos, err := svc.BulkFetch(context.Background(), []string{"m03", "missing", "m01", "m03", " m01 "})
	require.NoError(t, err)

	ids := []string{}
	for _, v := range videos {
		ids = append(ids, v.MovieID)
	}
	assert.Equal(t, []string{"m03", "m01"}, ids)
}

func TestBulkFetchEmpty(t *testing.T) {
	svc := NewCatalogService(seededStore(2), logger.Discard())
	videos, err := svc.BulkFetch(context.Background(), []string{})
	require.NoError(t, err)
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
}

func TestBulkFetchTooManyIDs(t *testing.T) {
	svc := NewCatalogService(seededStore(1), logger.Discard())
	ids := make([]string, entities.MaxBulkIDs+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	_, err := svc.BulkFetch(context.Background(), ids)
	assert.True(t, IsType(err, ErrTypeValidation))
}

func TestGetVideo(t *testing.T) {
	svc := NewCatalogService(seededStore(2), logger.Discard())

	v, err := svc.Get(context.Background(), "m01")
	require.NoError(t, err)
	assert.Equal(t, "m01", v.MovieID)

	_, err = svc.Get(context.Background(), "nope")
	assert.True(t, IsType(err, ErrTypeNotFound))
}
