// Package storage persists stamped documents and fetches attachments.
//
// A Backend is an object store (Google Cloud Storage or a local directory).
// A Chain tries a list of Sources in order to fetch an attachment wherever it
// lives. Verifier uploads results and, when asked, reads them back and
// compares SHA-256 digests before reporting success.
package storage

import (
	"context"
	"errors"
	"time"
)

// DefaultURLTTL is the lifetime of signed retrieval URLs.
const DefaultURLTTL = time.Hour

// ErrUnsupported is returned by a Source that cannot serve a Location kind.
var ErrUnsupported = errors.New("storage: location not supported by source")

// Backend is an object store addressed by key.
type Backend interface {
	Name() string
	// Upload overwrites key and returns a plain retrieval URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Observer captures telemetry for storage operations.
type Observer interface {
	RecordUpload(duration time.Duration, sizeBytes uint64, err error)
	RecordDownload(duration time.Duration, err error)
	RecordDelete(duration time.Duration, err error)
	RecordVerify(attempts int, err error)
}

type nopObserver struct{}

func (nopObserver) RecordUpload(time.Duration, uint64, error) {}

func (nopObserver) RecordDownload(time.Duration, error) {}

func (nopObserver) RecordDelete(time.Duration, error) {}

func (nopObserver) RecordVerify(int, error) {}
