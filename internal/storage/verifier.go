package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 250 * time.Millisecond
)

var errDigestMismatch = errors.New("downloaded digest differs from uploaded digest")

// Options controls one PersistAndVerify call.
type Options struct {
	// Verify reads the object back and compares digests. When false the
	// result reports Verified=false, meaning "not checked".
	Verify      bool
	MaxAttempts int
}

// UploadResult describes a persisted object. Verified implies the SHA-256
// of the stored bytes matched SHA256.
type UploadResult struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
}

// Verifier uploads to a Backend with bounded linear retries.
type Verifier struct {
	backend  Backend
	observer Observer
	delay    time.Duration
	urlTTL   time.Duration
}

type VerifierOption func(*Verifier)

// WithObserver reports upload, download and verification telemetry.
func WithObserver(o Observer) VerifierOption {
	return func(v *Verifier) {
		if o != nil {
			v.observer = o
		}
	}
}

// WithRetryDelay sets the base delay; attempt n waits n times this value.
func WithRetryDelay(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.delay = d
		}
	}
}

// WithURLTTL sets the lifetime of returned signed URLs.
func WithURLTTL(ttl time.Duration) VerifierOption {
	return func(v *Verifier) {
		if ttl > 0 {
			v.urlTTL = ttl
		}
	}
}

func NewVerifier(backend Backend, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		backend:  backend,
		observer: nopObserver{},
		delay:    DefaultRetryDelay,
		urlTTL:   DefaultURLTTL,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) Backend() Backend {
	return v.backend
}

// linearBackOff waits attempt × delay before each retry.
type linearBackOff struct {
	delay   time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.delay
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

func (v *Verifier) policy(ctx context.Context, maxAttempts int) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{delay: v.delay}, uint64(maxAttempts-1)),
		ctx,
	)
}

// PersistAndVerify uploads data under key and returns a signed URL for it.
// With opts.Verify it downloads the object back until the digests match or
// opts.MaxAttempts is exhausted, which fails with a VerificationMismatch (or
// TransientStorage when the last attempt could not download at all).
func (v *Verifier) PersistAndVerify(ctx context.Context, key string, data []byte, contentType string, opts Options) (UploadResult, error) {
	const op = "storage.PersistAndVerify"
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	sum := sha256.Sum256(data)
	result := UploadResult{
		Key:    key,
		Size:   int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
	}

	plainURL, err := v.upload(ctx, key, data, contentType, maxAttempts)
	if err != nil {
		return UploadResult{}, err
	}

	if opts.Verify {
		if err := v.verify(ctx, key, sum[:], maxAttempts); err != nil {
			if apperr.KindOf(err) == apperr.KindVerificationMismatch {
				v.discard(ctx, key)
			}
			return UploadResult{}, err
		}
		result.Verified = true
	}

	signed, err := v.backend.SignedURL(ctx, key, v.urlTTL)
	if err != nil {
		logger.Warn(ctx, "signed url unavailable, returning plain url", logger.Fields{
			"backend": v.backend.Name(),
			"key":     key,
			"error":   err.Error(),
		})
		signed = plainURL
	}
	if signed == "" {
		return UploadResult{}, apperr.Errorf(apperr.KindConfiguration, op, "backend %s returned no url", v.backend.Name())
	}
	result.URL = signed
	return result, nil
}

func (v *Verifier) upload(ctx context.Context, key string, data []byte, contentType string, maxAttempts int) (string, error) {
	var url string
	err := backoff.Retry(func() error {
		start := time.Now()
		u, err := v.backend.Upload(ctx, key, data, contentType)
		v.observer.RecordUpload(time.Since(start), uint64(len(data)), err)
		if err != nil {
			if apperr.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		url = u
		return nil
	}, v.policy(ctx, maxAttempts))
	if err != nil {
		if apperr.IsTransient(err) {
			return "", apperr.E(apperr.KindTransientStorage, "storage.upload", err)
		}
		return "", err
	}
	return url, nil
}

func (v *Verifier) verify(ctx context.Context, key string, want []byte, maxAttempts int) error {
	var (
		attempts    int
		downloadErr error
	)
	err := backoff.Retry(func() error {
		attempts++
		start := time.Now()
		got, err := v.backend.Download(ctx, key)
		v.observer.RecordDownload(time.Since(start), err)
		if err != nil {
			downloadErr = err
			return err
		}
		downloadErr = nil
		sum := sha256.Sum256(got)
		if !bytes.Equal(sum[:], want) {
			logger.Warn(ctx, "stored object digest mismatch", logger.Fields{
				"key":     key,
				"attempt": attempts,
			})
			return errDigestMismatch
		}
		return nil
	}, v.policy(ctx, maxAttempts))

	var result error
	switch {
	case err == nil:
	case downloadErr != nil:
		result = apperr.E(apperr.KindTransientStorage, "storage.verify", err)
	default:
		result = apperr.E(apperr.KindVerificationMismatch, "storage.verify", err)
	}
	v.observer.RecordVerify(attempts, result)
	return result
}

// discard removes an object that failed verification. Failures are logged;
// the key is unique per request so a leftover is only an orphan.
func (v *Verifier) discard(ctx context.Context, key string) {
	start := time.Now()
	err := v.backend.Delete(ctx, key)
	v.observer.RecordDelete(time.Since(start), err)
	if err != nil {
		logger.Warn(ctx, "could not delete unverified object", logger.Fields{
			"key":   key,
			"error": err.Error(),
		})
	}
}
