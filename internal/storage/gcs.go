package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"go-stamppdf/internal/apperr"
)

// GCSConfig configures a GCSBackend. SigningEmail and SigningPrivateKey sign
// URLs with a service account key; when empty, URLs are signed with the
// client's own credentials.
type GCSConfig struct {
	Bucket            string
	CredentialsFile   string
	SigningEmail      string
	SigningPrivateKey string
}

// GCSBackend stores objects in one Google Cloud Storage bucket.
type GCSBackend struct {
	client *gcs.Client
	bucket string
	email  string
	key    []byte
}

// NewGCSBackend connects to Cloud Storage.
func NewGCSBackend(ctx context.Context, cfg GCSConfig) (*GCSBackend, error) {
	if cfg.Bucket == "" {
		return nil, apperr.Errorf(apperr.KindConfiguration, "storage.NewGCSBackend", "no bucket configured")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperr.E(apperr.KindConfiguration, "storage.NewGCSBackend", err)
	}
	b := &GCSBackend{client: client, bucket: cfg.Bucket, email: cfg.SigningEmail}
	if cfg.SigningPrivateKey != "" {
		// Convert literal \n sequences back into real newlines for the private key.
		b.key = []byte(strings.ReplaceAll(cfg.SigningPrivateKey, `\n`, "\n"))
	}
	return b, nil
}

func (b *GCSBackend) Name() string {
	return "gcs"
}

func (b *GCSBackend) Bucket() string {
	return b.bucket
}

func (b *GCSBackend) Close() error {
	return b.client.Close()
}

func (b *GCSBackend) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", classify("storage.gcs.Upload", err)
	}
	if err := w.Close(); err != nil {
		return "", classify("storage.gcs.Upload", err)
	}
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com"}
	return u.JoinPath(b.bucket, key).String(), nil
}

func (b *GCSBackend) Download(ctx context.Context, key string) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, classify("storage.gcs.Download", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify("storage.gcs.Download", err)
	}
	return data, nil
}

// SignedURL generates a V4 signed GET URL.
func (b *GCSBackend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if b.email != "" && len(b.key) > 0 {
		opts.GoogleAccessID = b.email
		opts.PrivateKey = b.key
		return gcs.SignedURL(b.bucket, key, opts)
	}
	signed, err := b.client.Bucket(b.bucket).SignedURL(key, opts)
	if err != nil {
		return "", apperr.E(apperr.KindConfiguration, "storage.gcs.SignedURL", err)
	}
	return signed, nil
}

func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	err := b.client.Bucket(b.bucket).Object(key).Delete(ctx)
	if err == nil || errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return classify("storage.gcs.Delete", err)
}

func classify(op string, err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return apperr.E(apperr.KindNotFound, op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code >= 500 || gerr.Code == 429 || gerr.Code == 408 {
			return apperr.E(apperr.KindTransientStorage, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if apperr.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.E(apperr.KindTransientStorage, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ Backend = (*GCSBackend)(nil)
