package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stamppdf/internal/apperr"
)

// memoryBackend echoes back exactly what was uploaded.
type memoryBackend struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   int
	downloads int
	deletes   int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: make(map[string][]byte)}
}

func (m *memoryBackend) Name() string { return "memory" }

func (m *memoryBackend) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	m.objects[key] = append([]byte(nil), data...)
	return "https://objects.test/" + key, nil
}

func (m *memoryBackend) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++
	data, ok := m.objects[key]
	if !ok {
		return nil, apperr.Errorf(apperr.KindNotFound, "memory.Download", "missing %s", key)
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryBackend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://objects.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.objects, key)
	return nil
}

// corruptingBackend returns different bytes on every download.
type corruptingBackend struct {
	*memoryBackend
}

func (c corruptingBackend) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := c.memoryBackend.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	return append(data, byte(c.downloads)), nil
}

type unreachableBackend struct {
	*memoryBackend
}

func (u unreachableBackend) Download(ctx context.Context, key string) ([]byte, error) {
	u.memoryBackend.Download(ctx, key)
	return nil, apperr.Errorf(apperr.KindTransientStorage, "unreachable.Download", "connection reset")
}

type flakyUploadBackend struct {
	*memoryBackend
	failures int
	err      error
}

func (f *flakyUploadBackend) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.failures > 0 {
		f.failures--
		f.memoryBackend.uploads++
		return "", f.err
	}
	return f.memoryBackend.Upload(ctx, key, data, contentType)
}

type unsignedBackend struct {
	*memoryBackend
}

func (unsignedBackend) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", errors.New("no signing key")
}

func TestPersistAndVerifyEchoingBackendVerifiesFirstAttempt(t *testing.T) {
	backend := newMemoryBackend()
	v := NewVerifier(backend, WithRetryDelay(time.Millisecond))

	res, err := v.PersistAndVerify(context.Background(), "stamped/1/a.pdf", []byte("%PDF-1.7 data"), "application/pdf",
		Options{Verify: true, MaxAttempts: 3})
	require.NoError(t, err)

	assert.True(t, res.Verified)
	assert.Equal(t, 1, backend.downloads)
	assert.Equal(t, "stamped/1/a.pdf", res.Key)
	assert.Equal(t, int64(13), res.Size)
	assert.Len(t, res.SHA256, 64)
	assert.Equal(t, "https://objects.test/stamped/1/a.pdf?ttl=3600", res.URL)
}

func TestPersistAndVerifyWithoutVerification(t *testing.T) {
	backend := newMemoryBackend()
	v := NewVerifier(backend)

	res, err := v.PersistAndVerify(context.Background(), "k", []byte("x"), "application/pdf", Options{})
	require.NoError(t, err)

	assert.False(t, res.Verified)
	assert.Zero(t, backend.downloads)
	assert.NotEmpty(t, res.URL)
}

func TestPersistAndVerifyMismatchExhaustsAttempts(t *testing.T) {
	backend := corruptingBackend{newMemoryBackend()}
	v := NewVerifier(backend, WithRetryDelay(time.Millisecond))

	_, err := v.PersistAndVerify(context.Background(), "k", []byte("payload"), "application/pdf",
		Options{Verify: true, MaxAttempts: 3})
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperr.ErrVerificationMismatch), "got %v", err)
	assert.Equal(t, 3, backend.downloads)
	assert.Equal(t, 1, backend.deletes)
}

func TestPersistAndVerifyDownloadFailureIsTransient(t *testing.T) {
	backend := unreachableBackend{newMemoryBackend()}
	v := NewVerifier(backend, WithRetryDelay(time.Millisecond))

	_, err := v.PersistAndVerify(context.Background(), "k", []byte("payload"), "application/pdf",
		Options{Verify: true, MaxAttempts: 2})
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperr.ErrTransientStorage), "got %v", err)
	assert.Equal(t, 2, backend.downloads)
	assert.Zero(t, backend.deletes)
}

func TestPersistAndVerifyRetriesTransientUpload(t *testing.T) {
	backend := &flakyUploadBackend{
		memoryBackend: newMemoryBackend(),
		failures:      2,
		err:           apperr.Errorf(apperr.KindTransientStorage, "upload", "503"),
	}
	v := NewVerifier(backend, WithRetryDelay(time.Millisecond))

	res, err := v.PersistAndVerify(context.Background(), "k", []byte("payload"), "application/pdf",
		Options{Verify: true, MaxAttempts: 3})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, 3, backend.uploads)
}

func TestPersistAndVerifyDoesNotRetryPermanentUpload(t *testing.T) {
	backend := &flakyUploadBackend{
		memoryBackend: newMemoryBackend(),
		failures:      5,
		err:           errors.New("permission denied"),
	}
	v := NewVerifier(backend, WithRetryDelay(time.Millisecond))

	_, err := v.PersistAndVerify(context.Background(), "k", []byte("payload"), "application/pdf", Options{MaxAttempts: 3})
	require.Error(t, err)
	assert.Equal(t, 1, backend.uploads)
}

func TestPersistAndVerifyFallsBackToPlainURL(t *testing.T) {
	v := NewVerifier(unsignedBackend{newMemoryBackend()})

	res, err := v.PersistAndVerify(context.Background(), "k", []byte("payload"), "application/pdf", Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/k", res.URL)
}

type recordingObserver struct {
	uploads, downloads, deletes, verifies int
	lastAttempts                          int
}

func (r *recordingObserver) RecordUpload(time.Duration, uint64, error) { r.uploads++ }
func (r *recordingObserver) RecordDownload(time.Duration, error)       { r.downloads++ }
func (r *recordingObserver) RecordDelete(time.Duration, error)         { r.deletes++ }
func (r *recordingObserver) RecordVerify(attempts int, err error) {
	r.verifies++
	r.lastAttempts = attempts
}

func TestPersistAndVerifyReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	v := NewVerifier(corruptingBackend{newMemoryBackend()}, WithObserver(obs), WithRetryDelay(time.Millisecond))

	_, err := v.PersistAndVerify(context.Background(), "k", []byte("payload"), "application/pdf",
		Options{Verify: true, MaxAttempts: 3})
	require.Error(t, err)

	assert.Equal(t, 1, obs.uploads)
	assert.Equal(t, 3, obs.downloads)
	assert.Equal(t, 1, obs.deletes)
	assert.Equal(t, 1, obs.verifies)
	assert.Equal(t, 3, obs.lastAttempts)
}
