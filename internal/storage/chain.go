package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/logger"
)

// maxFetchSize caps attachment downloads.
const maxFetchSize = 64 << 20

// Source fetches bytes for a Location. It returns ErrUnsupported or an
// apperr NotFound error to let the next source try.
type Source interface {
	Name() string
	Fetch(ctx context.Context, loc Location) ([]byte, error)
}

// Chain tries sources in order.
type Chain []Source

// Fetch returns the bytes from the first source that serves one of locs.
// When none does, the first real failure is returned; NotFound is reported
// only if every source that tried answered NotFound.
func (c Chain) Fetch(ctx context.Context, locs ...Location) ([]byte, error) {
	var failure error
	for _, loc := range locs {
		for _, src := range c {
			data, err := src.Fetch(ctx, loc)
			if err == nil {
				return data, nil
			}
			if errors.Is(err, ErrUnsupported) {
				continue
			}
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			logger.Warn(ctx, "attachment source failed", logger.Fields{
				"source": src.Name(),
				"error":  err.Error(),
			})
			if failure == nil {
				failure = err
			}
		}
	}
	if failure != nil {
		return nil, failure
	}
	return nil, apperr.Errorf(apperr.KindNotFound, "storage.Fetch", "attachment not found in any source")
}

// BackendSource serves ByKey locations from a Backend. Locations naming a
// different bucket are skipped when the backend is bound to one.
type BackendSource struct {
	Backend Backend
	Bucket  string
}

func (s BackendSource) Name() string {
	return s.Backend.Name()
}

func (s BackendSource) Fetch(ctx context.Context, loc Location) ([]byte, error) {
	k, ok := loc.(ByKey)
	if !ok {
		return nil, ErrUnsupported
	}
	if s.Bucket != "" && k.Bucket != "" && k.Bucket != s.Bucket {
		return nil, ErrUnsupported
	}
	return s.Backend.Download(ctx, k.Key)
}

// HTTPSource fetches ByURL locations over HTTP.
type HTTPSource struct {
	Client *http.Client
}

// NewHTTPSource returns a source with the given request timeout.
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Name() string {
	return "http"
}

func (s *HTTPSource) Fetch(ctx context.Context, loc Location) ([]byte, error) {
	const op = "storage.HTTPSource.Fetch"
	u, ok := loc.(ByURL)
	if !ok || u.URL == "" {
		return nil, ErrUnsupported
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, ErrUnsupported
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, apperr.E(apperr.KindTransientStorage, op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, apperr.Errorf(apperr.KindNotFound, op, "%s returned %d", req.URL.Host, resp.StatusCode)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperr.Errorf(apperr.KindTransientStorage, op, "%s returned %d", req.URL.Host, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", req.URL.Host, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, apperr.E(apperr.KindTransientStorage, op, err)
	}
	if len(data) > maxFetchSize {
		return nil, apperr.Errorf(apperr.KindInvalidRequest, op, "attachment exceeds %d bytes", maxFetchSize)
	}
	return data, nil
}
