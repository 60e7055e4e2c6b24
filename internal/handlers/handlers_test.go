package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stamppdf/internal/apperr"
)

func TestDecodeImageData(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := decodeImageData(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = decodeImageData("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeImageData("not base64!")
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
}

func TestWriteErrorHidesInternals(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Errorf(apperr.KindNotFound, "op", "document 42 missing in table documents"), http.StatusNotFound},
		{apperr.E(apperr.KindTransientStorage, "op", fmt.Errorf("dial tcp 10.0.0.1:443: secret-token")), http.StatusServiceUnavailable},
		{apperr.E(apperr.KindConfiguration, "op", fmt.Errorf("GCS_SIGNING_PRIVATE_KEY invalid")), http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), tt.err)

		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body.Error)
		assert.NotContains(t, body.Error, "secret-token")
		assert.NotContains(t, body.Error, "PRIVATE_KEY")
		assert.NotContains(t, body.Error, "documents")
	}
}

func TestAttachmentIndexRequiresNumber(t *testing.T) {
	_, err := attachmentIndex(httptest.NewRequest(http.MethodPost, "/", nil))
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
}
