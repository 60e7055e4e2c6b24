package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/documents"
)

func TestFilesystemBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystemBackend(t.TempDir(), "docs", "http://localhost:8080/objects/")
	require.NoError(t, err)

	url, err := fs.Upload(ctx, "stamped/1/a b.pdf", []byte("hello"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/objects/docs/stamped/1/a%20b.pdf", url)

	data, err := fs.Download(ctx, "stamped/1/a b.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	first, err := fs.SignedURL(ctx, "stamped/1/a b.pdf", time.Hour)
	require.NoError(t, err)
	second, err := fs.SignedURL(ctx, "stamped/1/a b.pdf", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Contains(t, first, "expires=")

	require.NoError(t, fs.Delete(ctx, "stamped/1/a b.pdf"))
	require.NoError(t, fs.Delete(ctx, "stamped/1/a b.pdf"))
	_, err = fs.Download(ctx, "stamped/1/a b.pdf")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestFilesystemBackendKeepsKeysInsideBucket(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFilesystemBackend(root, "docs", "")
	require.NoError(t, err)

	url, err := fs.Upload(context.Background(), "../../escape.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.Contains(t, url, "/docs/escape.pdf")

	_, err = fs.Upload(context.Background(), "/", []byte("x"), "application/pdf")
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
}

func TestChainFallsBackToHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/docs/remote.pdf":
			w.Write([]byte("%PDF-remote"))
		case "/docs/broken.pdf":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	fs, err := NewFilesystemBackend(t.TempDir(), "docs", "")
	require.NoError(t, err)
	_, err = fs.Upload(ctx, "local.pdf", []byte("%PDF-local"), "application/pdf")
	require.NoError(t, err)

	chain := Chain{BackendSource{Backend: fs, Bucket: "docs"}, NewHTTPSource(time.Second)}

	data, err := chain.Fetch(ctx, Candidates(documents.Attachment{URL: srv.URL + "/docs/local.pdf"}, "docs")...)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-local", string(data))

	data, err = chain.Fetch(ctx, Candidates(documents.Attachment{URL: srv.URL + "/docs/remote.pdf"}, "docs")...)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-remote", string(data))

	_, err = chain.Fetch(ctx, Candidates(documents.Attachment{URL: srv.URL + "/docs/missing.pdf"}, "docs")...)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = chain.Fetch(ctx, Candidates(documents.Attachment{URL: srv.URL + "/docs/broken.pdf"}, "docs")...)
	assert.True(t, errors.Is(err, apperr.ErrTransientStorage))
}

type stubSource struct {
	name string
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(context.Context, Location) ([]byte, error) { return nil, s.err }

func TestChainKeepsTransientErrorOverLaterNotFound(t *testing.T) {
	outage := apperr.Errorf(apperr.KindTransientStorage, "gcs", "backend unavailable")
	missing := apperr.Errorf(apperr.KindNotFound, "http", "cdn.test returned 404")
	loc := ByKey{Bucket: "docs", Key: "a.pdf"}

	chain := Chain{stubSource{"gcs", outage}, stubSource{"http", missing}}
	_, err := chain.Fetch(context.Background(), loc)
	assert.ErrorIs(t, err, apperr.ErrTransientStorage)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)

	chain = Chain{stubSource{"http", missing}, stubSource{"gcs", outage}}
	_, err = chain.Fetch(context.Background(), loc)
	assert.ErrorIs(t, err, apperr.ErrTransientStorage)

	chain = Chain{stubSource{"local", ErrUnsupported}, stubSource{"http", missing}}
	_, err = chain.Fetch(context.Background(), loc)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBackendSourceSkipsForeignBuckets(t *testing.T) {
	src := BackendSource{Backend: newMemoryBackend(), Bucket: "docs"}

	_, err := src.Fetch(context.Background(), ByKey{Bucket: "archive", Key: "a.pdf"})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = src.Fetch(context.Background(), ByURL{URL: "https://cdn.test/a.pdf"})
	assert.ErrorIs(t, err, ErrUnsupported)
}
