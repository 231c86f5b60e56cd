package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr string
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "debug", format: "console"},
		{name: "text alias", level: "warn", format: "text"},
		{name: "defaults", level: "", format: ""},
		{name: "upper case level", level: "ERROR", format: "json"},
		{name: "invalid level", level: "loud", format: "json", wantErr: "invalid log level"},
		{name: "invalid format", level: "info", format: "xml", wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordSearch("found", 3, 20*time.Millisecond)
	m.RecordSearch("found", 1, 10*time.Millisecond)
	m.RecordSearch("error", 0, 5*time.Millisecond)
	m.RecordEmbedding(100*time.Millisecond, nil)
	m.RecordEmbedding(100*time.Millisecond, errors.New("timeout"))
	m.RecordEmbeddingCacheHit()
	m.RecordInit(nil)
	m.RecordIngested(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchRequests.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRequests.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingRequests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingRequests.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingInits.WithLabelValues("success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.PassagesIngested))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSearch("empty", 0, time.Millisecond)
		m.RecordEmbedding(time.Millisecond, nil)
		m.RecordEmbeddingCacheHit()
		m.RecordInit(errors.New("x"))
		m.RecordChat(time.Second, nil)
		m.RecordIngested(1)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	assert.NotPanics(t, func() {
		_ = NewMetrics()
		_ = NewMetrics()
	})
}
