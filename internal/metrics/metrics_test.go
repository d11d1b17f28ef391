package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.Checkouts.WithLabelValues("success").Inc()
	a.Reconciliations.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Checkouts.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Checkouts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Reconciliations))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PendingSwept.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_pending_payments_swept_total 3")
}
