package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetModelStatus(t *testing.T) {
	SetModelStatus("loading")
	assert.Equal(t, 1.0, testutil.ToFloat64(ModelStatus.WithLabelValues("loading")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ModelStatus.WithLabelValues("ready")))

	SetModelStatus("ready")
	assert.Equal(t, 0.0, testutil.ToFloat64(ModelStatus.WithLabelValues("loading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ModelStatus.WithLabelValues("ready")))
}

func TestPredictionsCounter(t *testing.T) {
	before := testutil.ToFloat64(Predictions.WithLabelValues("api", OutcomeInvalid))
	Predictions.WithLabelValues("api", OutcomeInvalid).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Predictions.WithLabelValues("api", OutcomeInvalid)))
}
