package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-stamppdf/internal/apperr"
)

// FilesystemBackend stores objects under baseDir/bucket on the local disk.
// It is intended for development and testing.
type FilesystemBackend struct {
	baseDir   string
	bucket    string
	publicURL string
}

// NewFilesystemBackend creates the bucket directory. If publicURL is empty,
// URLs use the file:// scheme pointing to the absolute file path.
func NewFilesystemBackend(baseDir, bucket, publicURL string) (*FilesystemBackend, error) {
	if baseDir == "" {
		baseDir = "data/objects"
	}
	if bucket == "" {
		bucket = "documents"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve object dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}
	return &FilesystemBackend{baseDir: abs, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *FilesystemBackend) Name() string {
	return "filesystem"
}

// Root is the directory holding the bucket directories.
func (s *FilesystemBackend) Root() string {
	return s.baseDir
}

func (s *FilesystemBackend) Bucket() string {
	return s.bucket
}

func (s *FilesystemBackend) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", apperr.Errorf(apperr.KindInvalidRequest, "storage.filesystem", "empty object key")
	}
	return filepath.Join(s.baseDir, s.bucket, filepath.FromSlash(clean)), nil
}

func (s *FilesystemBackend) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("ensure object dir: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", p, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename object: %w", err)
	}
	return s.objectURL(key, nil)
}

func (s *FilesystemBackend) Download(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.Errorf(apperr.KindNotFound, "storage.filesystem.Download", "object %q does not exist", key)
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// SignedURL has no signature on disk; it carries an expiry hint and a unique
// version parameter so caches never serve a previous object.
func (s *FilesystemBackend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	q := url.Values{}
	if ttl > 0 {
		q.Set("expires", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))
	}
	q.Set("v", uuid.NewString())
	return s.objectURL(key, q)
}

func (s *FilesystemBackend) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *FilesystemBackend) objectURL(key string, q url.Values) (string, error) {
	if s.publicURL == "" {
		p, err := s.path(key)
		if err != nil {
			return "", err
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(p), RawQuery: q.Encode()}
		return u.String(), nil
	}
	u, err := url.Parse(s.publicURL)
	if err != nil {
		return "", fmt.Errorf("parse public url: %w", err)
	}
	u = u.JoinPath(s.bucket, strings.TrimPrefix(key, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var _ Backend = (*FilesystemBackend)(nil)
