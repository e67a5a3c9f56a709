package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Observe(t *testing.T) {
	r := NewRegistry()

	r.ObserveExecution("buy", ResultOK, 10*time.Millisecond)
	r.ObserveExecution("buy", ResultOK, 10*time.Millisecond)
	r.ObserveExecution("sell", ResultRejected, time.Millisecond)
	r.ObserveDecision("hold")
	r.NotificationFailed()
	r.SetExposure(1234.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Executions.WithLabelValues("buy", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Executions.WithLabelValues("sell", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Decisions.WithLabelValues("hold")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NotificationsFailed))
	assert.Equal(t, 1234.5, testutil.ToFloat64(r.Exposure))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sigtrader_executions_total")
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveExecution("buy", ResultOK, time.Second)
		r.ObserveDecision("buy")
		r.NotificationFailed()
		r.SetExposure(1)
	})
}
