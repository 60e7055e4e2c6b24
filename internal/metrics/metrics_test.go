package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageObserverRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewStorageObserver(reg)
	require.NoError(t, err)

	o.RecordUpload(10*time.Millisecond, 1024, nil)
	o.RecordUpload(10*time.Millisecond, 2048, errors.New("boom"))
	o.RecordDownload(time.Millisecond, nil)
	o.RecordVerify(3, errors.New("mismatch"))

	assert.Equal(t, 1024.0, testutil.ToFloat64(o.uploadedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.errors.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.errors.WithLabelValues("verify")))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.errors.WithLabelValues("download")))
	assert.Equal(t, 2, testutil.CollectAndCount(o.duration))
}

func TestObserversReuseExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewStorageObserver(reg)
	require.NoError(t, err)
	second, err := NewStorageObserver(reg)
	require.NoError(t, err)

	first.RecordUpload(time.Millisecond, 10, nil)
	second.RecordUpload(time.Millisecond, 5, nil)
	assert.Equal(t, 15.0, testutil.ToFloat64(second.uploadedBytes))

	p1, err := NewPipelineObserver(reg)
	require.NoError(t, err)
	p2, err := NewPipelineObserver(reg)
	require.NoError(t, err)
	p1.RecordRequest("stamp", "ok", time.Millisecond)
	p2.RecordRequest("stamp", "ok", time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(p2.requests.WithLabelValues("stamp", "ok")))
}

func TestNilObserversAreSafe(t *testing.T) {
	var s *StorageObserver
	var p *PipelineObserver
	assert.NotPanics(t, func() {
		s.RecordUpload(time.Second, 1, nil)
		s.RecordDownload(time.Second, nil)
		s.RecordDelete(time.Second, nil)
		s.RecordVerify(1, nil)
		p.RecordRequest("sign", "ok", time.Second)
	})
}
