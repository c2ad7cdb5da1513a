package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRecompute(t *testing.T) {
	okBefore := testutil.ToFloat64(RecomputeRuns.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(RecomputeRuns.WithLabelValues("error"))
	rowsBefore := testutil.ToFloat64(RecomputeRows)

	RecordRecompute(3, nil)
	RecordRecompute(7, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(RecomputeRuns.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(RecomputeRuns.WithLabelValues("error")))
	assert.Equal(t, rowsBefore+3, testutil.ToFloat64(RecomputeRows))
}

func TestRecordHeartbeatWrite(t *testing.T) {
	before := testutil.ToFloat64(HeartbeatWrites.WithLabelValues("error"))
	RecordHeartbeatWrite(errors.New("db down"))
	assert.Equal(t, before+1, testutil.ToFloat64(HeartbeatWrites.WithLabelValues("error")))
}

func TestRecordPublish(t *testing.T) {
	RecordPublish("playlist", 25*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(PublishDuration))
}
