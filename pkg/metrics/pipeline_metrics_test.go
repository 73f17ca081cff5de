package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.Counter.GetValue()
}

func TestRecordRequest(t *testing.T) {
	TranscriptionRequestsTotal.Reset()

	RecordRequest("")
	RecordRequest("invalid_media")
	RecordRequest("invalid_media")

	assert.Equal(t, 1.0, counterValue(t, TranscriptionRequestsTotal.WithLabelValues("success", "")))
	assert.Equal(t, 2.0, counterValue(t, TranscriptionRequestsTotal.WithLabelValues("error", "invalid_media")))
}

func TestRecordLanguageFallback(t *testing.T) {
	LanguageFallbackTotal.Reset()

	RecordLanguageFallback(true)
	RecordLanguageFallback(false)
	RecordLanguageFallback(false)

	assert.Equal(t, 1.0, counterValue(t, LanguageFallbackTotal.WithLabelValues("detected")))
	assert.Equal(t, 2.0, counterValue(t, LanguageFallbackTotal.WithLabelValues("unknown")))
}

func TestRecordPersist(t *testing.T) {
	PersistTotal.Reset()

	RecordPersist(true)
	RecordPersist(false)

	assert.Equal(t, 1.0, counterValue(t, PersistTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, counterValue(t, PersistTotal.WithLabelValues("error")))
}

func TestRecordStage(t *testing.T) {
	StageDuration.Reset()

	RecordStage("extract", 0.3)

	m := &dto.Metric{}
	h := StageDuration.WithLabelValues("extract")
	require.NoError(t, h.(interface{ Write(*dto.Metric) error }).Write(m))
	assert.Equal(t, uint64(1), m.Histogram.GetSampleCount())
	assert.InDelta(t, 0.3, m.Histogram.GetSampleSum(), 1e-9)
}
