package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalsCounter(t *testing.T) {
	before := testutil.ToFloat64(SignalsTotal.WithLabelValues("Near POI"))
	SignalsTotal.WithLabelValues("Near POI").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SignalsTotal.WithLabelValues("Near POI")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	BarsPrepared.Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "footprint_bars_prepared_total")
}
