package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStage(t *testing.T) {
	before := testutil.ToFloat64(MessagesProcessed.WithLabelValues("classify", ResultOK))
	RecordStage("classify", ResultOK)
	after := testutil.ToFloat64(MessagesProcessed.WithLabelValues("classify", ResultOK))
	assert.Equal(t, before+1, after)
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(InferenceFallbacks.WithLabelValues("summarise"))
	RecordFallback("summarise")
	assert.Equal(t, before+1, testutil.ToFloat64(InferenceFallbacks.WithLabelValues("summarise")))
}

func TestRecordInference_LabelsErrors(t *testing.T) {
	RecordInference("classify", errors.New("boom"), 2*time.Second)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(InferenceDuration), 1)
}

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(SyncRuns.WithLabelValues("success"))
	RecordRun("success", time.Minute)
	assert.Equal(t, before+1, testutil.ToFloat64(SyncRuns.WithLabelValues("success")))
}
