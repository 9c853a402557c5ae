package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAnalysis(t *testing.T) {
	ok := AnalysesTotal.WithLabelValues("test_op", OutcomeSuccess)
	failed := AnalysesTotal.WithLabelValues("test_op", OutcomeError)
	okBefore := testutil.ToFloat64(ok)
	failedBefore := testutil.ToFloat64(failed)

	ObserveAnalysis("test_op", time.Now(), nil)
	ObserveAnalysis("test_op", time.Now(), nil)
	ObserveAnalysis("test_op", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestHandlerExposesMetrics(t *testing.T) {
	ProjectedSavingsUSD.Set(125)
	ScalingRecommendations.WithLabelValues("ecs-service", "scale_up").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "kubilitics_predict_projected_savings_usd 125"))
	assert.Contains(t, body, `kubilitics_predict_scaling_recommendations_total{action="scale_up",service="ecs-service"}`)
}
