package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/capture"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/repositories"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/messaging"
)

type fakeVideoStore struct {
	mu        sync.Mutex
	videos    []entities.Video
	err       error
	lastLimit int
	lastTags  []string
}

func (f *fakeVideoStore) List(_ context.Context, q string, tags []string, limit int) ([]entities.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastTags = limit, tags
	if f.err != nil {
		return nil, f.err
	}

	sorted := append([]entities.Video(nil), f.videos...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	out := []entities.Video{}
	for _, v := range sorted {
		if q != "" && !strings.Contains(v.Title, q) && !strings.Contains(v.Location, q) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeVideoStore) FindByMovieIDs(_ context.Context, ids []string) ([]entities.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []entities.Video{}
	for _, v := range f.videos {
		if want[v.MovieID] {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVideoStore) FindByMovieID(ctx context.Context, id string) (*entities.Video, error) {
	videos, err := f.FindByMovieIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, repositories.ErrVideoNotFound
	}
	return &videos[0], nil
}

func (f *fakeVideoStore) Create(_ context.Context, v *entities.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	v.ID = int64(len(f.videos) + 1)
	f.videos = append(f.videos, *v)
	return nil
}

func (f *fakeVideoStore) ListTagStrings(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []string{}
	for _, v := range f.videos {
		if v.Tags != "" {
			out = append(out, v.Tags)
		}
	}
	return out, nil
}

type fakeCameraStore struct {
	cameras map[string]entities.Camera
	err     error
}

func (f *fakeCameraStore) FindByID(_ context.Context, id string) (*entities.Camera, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.cameras[id]
	if !ok {
		return nil, repositories.ErrCameraNotFound
	}
	return &c, nil
}

type upload struct {
	key         string
	data        string
	contentType string
}

type fakeFileStore struct {
	uploads []upload
	err     error
	opaque  bool // replace read errors like some SDKs do
}

func (f *fakeFileStore) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		if f.opaque {
			return errors.New("upload aborted")
		}
		return err
	}
	f.uploads = append(f.uploads, upload{key: key, data: string(data), contentType: contentType})
	return nil
}

func (f *fakeFileStore) BaseURL() string { return "https://pub.example.dev" }

type fakeClipSource struct {
	body        string
	contentType string
	size        int64
	err         error
	locations   []string
}

func (f *fakeClipSource) Fetch(_ context.Context, location string) (*capture.Clip, error) {
	f.locations = append(f.locations, location)
	if f.err != nil {
		return nil, f.err
	}
	return &capture.Clip{
		Body:        io.NopCloser(strings.NewReader(f.body)),
		ContentType: f.contentType,
		Size:        f.size,
	}, nil
}

type fakePublisher struct {
	events []messaging.VideoReportedPayload
	err    error
}

func (f *fakePublisher) PublishVideoReported(_ context.Context, p messaging.VideoReportedPayload) error {
	f.events = append(f.events, p)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

var errBoom = errors.New("boom")
