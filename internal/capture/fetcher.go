package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

var (
	// ErrInvalidLocation means the location cannot name a camera host.
	ErrInvalidLocation = errors.New("invalid camera location")
	// ErrUnavailable wraps every failure to obtain a clip.
	ErrUnavailable = errors.New("camera unavailable")
)

// a single DNS label
var locationPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// Clip is a video pulled from a camera. The caller closes Body.
type Clip struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64 // -1 when the camera sent no length
}

// Fetcher pulls the latest clip from the camera at a location.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	cb          *gobreaker.CircuitBreaker
	log         logger.Logger
}

// NewFetcher creates a Fetcher guarded by a circuit breaker that opens after
// cfg.MaxFailures consecutive failures.
func NewFetcher(cfg config.CaptureConfig, log logger.Logger) *Fetcher {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}

	st := gobreaker.Settings{
		Name:        "camera-capture",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &Fetcher{
		client:      &http.Client{Timeout: cfg.Timeout()},
		urlTemplate: cfg.URLTemplate,
		cb:          gobreaker.NewCircuitBreaker(st),
		log:         log,
	}
}

// URL returns the capture endpoint for location.
func (f *Fetcher) URL(location string) (string, error) {
	if !locationPattern.MatchString(location) {
		return "", ErrInvalidLocation
	}
	return fmt.Sprintf(f.urlTemplate, strings.ToLower(location)), nil
}

// Fetch requests a clip. Any non-200 answer counts as a breaker failure.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*Clip, error) {
	target, err := f.URL(location)
	if err != nil {
		return nil, err
	}

	res, err := f.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("camera answered %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		f.log.WarnContext(ctx, "capture from %s failed: %v", location, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp := res.(*http.Response)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return &Clip{
		Body:        resp.Body,
		ContentType: contentType,
		Size:        resp.ContentLength,
	}, nil
}
