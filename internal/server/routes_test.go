package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"

	"go-stamppdf/internal/config"
	"go-stamppdf/internal/documents"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/metrics"
	"go-stamppdf/internal/pdf"
	"go-stamppdf/internal/session"
	"go-stamppdf/internal/signing"
	"go-stamppdf/internal/stamp"
	"go-stamppdf/internal/storage"
	"go-stamppdf/internal/testutil"
)

const (
	testBucket  = "docs"
	testBarcode = "1-00000007"
)

type testEnv struct {
	server  *httptest.Server
	store   *documents.MemoryStore
	backend *storage.FilesystemBackend
}

func TestMain(m *testing.M) {
	logger.Init("stamppdf-test")
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	backend, err := storage.NewFilesystemBackend(filepath.Join(dir, "objects"), testBucket, "http://objects.test")
	require.NoError(t, err)
	_, err = backend.Upload(context.Background(), "uploads/contract.pdf", testutil.Letter(), "application/pdf")
	require.NoError(t, err)

	store := documents.NewMemoryStore()
	store.Put(documents.Document{
		Barcode:     testBarcode,
		Attachments: []documents.Attachment{{Key: "uploads/contract.pdf", Bucket: testBucket}},
	})

	reg := prometheus.NewRegistry()
	pipeline, err := metrics.NewPipelineObserver(reg)
	require.NoError(t, err)
	svc := signing.NewService(
		store,
		storage.Chain{storage.BackendSource{Backend: backend, Bucket: testBucket}},
		storage.NewVerifier(backend, storage.WithRetryDelay(time.Millisecond)),
		stamp.NewRendererFromBytes(gobold.TTF),
		pipeline,
		signing.Config{Bucket: testBucket, Verify: true},
	)

	s := &Server{
		SessionManager: session.NewSessionManager(16, time.Minute),
		Signing:        svc,
		Registry:       reg,
		UploadDir:      filepath.Join(dir, "uploads"),
		OutputDir:      filepath.Join(dir, "output"),
		objects:        backend,
	}
	require.NoError(t, os.MkdirAll(s.UploadDir, 0o755))
	require.NoError(t, os.MkdirAll(s.OutputDir, 0o755))

	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, store: store, backend: backend}
}

func createSession(t *testing.T, env *testEnv) string {
	t.Helper()
	resp, err := http.Post(env.server.URL+"/api/sessions/", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result["sessionId"])
	return result["sessionId"]
}

func upload(t *testing.T, env *testEnv, url, field, filename string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postJSON(t *testing.T, env *testEnv, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(env.server.URL+url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCreateSession(t *testing.T) {
	env := setupTestServer(t)
	createSession(t, env)
}

func TestUploadFile(t *testing.T) {
	env := setupTestServer(t)
	sessionID := createSession(t, env)
	url := "/api/sessions/" + sessionID + "/files"

	t.Run("valid PDF", func(t *testing.T) {
		resp := upload(t, env, url, "pdf", "contract.pdf", testutil.Letter())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid PDF", func(t *testing.T) {
		resp := upload(t, env, url, "pdf", "notpdf.pdf", []byte("plain text, not a pdf"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong extension", func(t *testing.T) {
		resp := upload(t, env, url, "pdf", "contract.txt", testutil.Letter())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown session", func(t *testing.T) {
		resp := upload(t, env, "/api/sessions/nope/files", "pdf", "contract.pdf", testutil.Letter())
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUploadSignatureSniffsContent(t *testing.T) {
	env := setupTestServer(t)
	url := "/api/sessions/" + createSession(t, env) + "/signature"

	resp := upload(t, env, url, "signature", "sig.png", testutil.PNG(40, 20))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = upload(t, env, url, "signature", "sig.jpg", testutil.PNG(40, 20))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload(t, env, url, "signature", "sig.png", []byte("GIF89a...."))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMergeFiles(t *testing.T) {
	env := setupTestServer(t)
	sessionID := createSession(t, env)

	var names []string
	for _, doc := range [][]byte{testutil.PDF(1, 612, 792), testutil.PDF(2, 595, 842)} {
		resp := upload(t, env, "/api/sessions/"+sessionID+"/files", "pdf", "part.pdf", doc)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var up map[string]any
		decode(t, resp, &up)
		names = append(names, up["filename"].(string))
	}

	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/sessions/"+sessionID+"/order",
		strings.NewReader(`{"files":["`+names[1]+`","`+names[0]+`"]}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, env, "/api/sessions/"+sessionID+"/actions/merge", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var merged map[string]string
	decode(t, resp, &merged)
	assert.Contains(t, merged["downloadUrl"], "/api/sessions/"+sessionID+"/files/merged-")

	resp = postJSON(t, env, "/api/sessions/"+sessionID+"/actions/merge", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	get, err := http.Get(env.server.URL + merged["downloadUrl"])
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	data, err := io.ReadAll(get.Body)
	require.NoError(t, err)
	info, err := pdf.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 3, info.PageCount)
	assert.Equal(t, 595.0, info.Pages[0].Width)
}

func TestSessionSignFlow(t *testing.T) {
	env := setupTestServer(t)
	sessionID := createSession(t, env)
	base := "/api/sessions/" + sessionID

	resp := upload(t, env, base+"/files", "pdf", "contract.pdf", testutil.Letter())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, env, base+"/sign", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "signature not uploaded yet")

	resp = upload(t, env, base+"/signature", "signature", "sig.png", testutil.PNG(140, 60))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, env, base+"/sign", map[string]any{
		"pageIndex": 0,
		"placement": map[string]float64{
			"x": 20, "y": 20, "width": 140, "height": 60,
			"containerWidth": 612, "containerHeight": 792,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var signed struct {
		DownloadURL string             `json:"downloadUrl"`
		Preview     string             `json:"preview"`
		Geometry    map[string]float64 `json:"geometry"`
	}
	decode(t, resp, &signed)
	assert.Contains(t, signed.DownloadURL, "/files/signed-")
	assert.True(t, strings.HasPrefix(signed.Preview, "data:application/pdf;base64,"))
	assert.Equal(t, 712.0, signed.Geometry["yPdf"])

	get, err := http.Get(env.server.URL + signed.DownloadURL)
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, "application/pdf", get.Header.Get("Content-Type"))

	forbidden, err := http.Get(env.server.URL + base + "/files/other.pdf")
	require.NoError(t, err)
	forbidden.Body.Close()
	assert.Equal(t, http.StatusForbidden, forbidden.StatusCode)
}

func TestSignAttachment(t *testing.T) {
	env := setupTestServer(t)
	sig := base64.StdEncoding.EncodeToString(testutil.PNG(140, 60))

	resp := postJSON(t, env, "/api/documents/"+testBarcode+"/attachments/0/sign", map[string]any{
		"signatureData": "data:image/png;base64," + sig,
		"placement": map[string]float64{
			"x": 20, "y": 20, "width": 140, "height": 60,
			"containerWidth": 612, "containerHeight": 792,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res signing.Result
	decode(t, resp, &res)
	assert.True(t, res.Upload.Verified)
	assert.True(t, strings.HasPrefix(res.Attachment.Key, "stamped/"))

	doc, err := env.store.GetDocumentByBarcode(context.Background(), testBarcode)
	require.NoError(t, err)
	assert.Equal(t, res.Attachment.Key, doc.Attachments[0].Key)

	stored, err := env.backend.Download(context.Background(), res.Attachment.Key)
	require.NoError(t, err)
	_, err = pdf.Inspect(stored)
	assert.NoError(t, err)
}

func TestStampAttachment(t *testing.T) {
	env := setupTestServer(t)

	resp := postJSON(t, env, "/api/documents/"+testBarcode+"/attachments/0/stamp", map[string]any{
		"company":        "ACME Trading",
		"attachmentText": "Supply contract",
		"date":           "2024-05-01T10:30:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res signing.Result
	decode(t, resp, &res)
	assert.Equal(t, 36.0, res.Geometry.X)
	assert.InDelta(t, 180, res.Geometry.Width, 1e-9)
}

func TestPreviewAttachment(t *testing.T) {
	env := setupTestServer(t)
	url := "/api/documents/" + testBarcode + "/attachments/0/preview"

	resp := postJSON(t, env, url, map[string]any{"stamp": map[string]any{"company": "ACME"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var preview map[string]string
	decode(t, resp, &preview)
	assert.True(t, strings.HasPrefix(preview["preview"], "data:application/pdf;base64,"))

	doc, err := env.store.GetDocumentByBarcode(context.Background(), testBarcode)
	require.NoError(t, err)
	assert.Equal(t, "uploads/contract.pdf", doc.Attachments[0].Key)

	resp = postJSON(t, env, url, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocumentErrors(t *testing.T) {
	env := setupTestServer(t)
	png := base64.StdEncoding.EncodeToString(testutil.PNG(10, 10))

	tests := []struct {
		name   string
		url    string
		body   any
		status int
	}{
		{"unknown barcode", "/api/documents/nope/attachments/0/sign", map[string]any{"signatureData": png}, http.StatusNotFound},
		{"index out of range", "/api/documents/" + testBarcode + "/attachments/3/sign", map[string]any{"signatureData": png}, http.StatusBadRequest},
		{"index not a number", "/api/documents/" + testBarcode + "/attachments/x/sign", map[string]any{"signatureData": png}, http.StatusBadRequest},
		{"bad base64", "/api/documents/" + testBarcode + "/attachments/0/sign", map[string]any{"signatureData": "%%%"}, http.StatusBadRequest},
		{"gif signature", "/api/documents/" + testBarcode + "/attachments/0/sign", map[string]any{"signatureData": base64.StdEncoding.EncodeToString([]byte("GIF89a"))}, http.StatusUnsupportedMediaType},
		{"both preview kinds", "/api/documents/" + testBarcode + "/attachments/0/preview", map[string]any{"sign": map[string]any{}, "stamp": map[string]any{}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, env, tt.url, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			decode(t, resp, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestObjectsAndSwaggerAreServed(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/objects/" + testBucket + "/uploads/contract.pdf")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/swagger/doc.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewServesHealthAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Port:              8080,
		UploadDir:         filepath.Join(dir, "uploads"),
		OutputDir:         filepath.Join(dir, "output"),
		StorageBackend:    config.BackendFilesystem,
		StorageBucket:     testBucket,
		StorageDir:        filepath.Join(dir, "objects"),
		SignedURLTTL:      time.Hour,
		VerifyMaxAttempts: 3,
		FetchTimeout:      time.Second,
		SessionTTL:        time.Minute,
		SessionCapacity:   4,
		DefaultStampWidth: 180,
	}
	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.HTTPServer().Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the in-memory document store starts empty
	data, _ := json.Marshal(map[string]any{"company": "ACME"})
	resp, err = http.Post(ts.URL+"/api/documents/"+testBarcode+"/attachments/0/stamp", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stamppdf_pipeline_requests_total")
}
