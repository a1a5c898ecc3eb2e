package cmdlog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"influencekit/internal/logging"
	"influencekit/internal/metrics"
)

func TestRunCountsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWriter(&buf, "info", false)

	runsBefore := testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("status"))
	errsBefore := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("status"))

	assert.NoError(t, Run(log, "status", func() error { return nil }))
	assert.Contains(t, buf.String(), "status_ok")

	boom := errors.New("boom")
	assert.ErrorIs(t, Run(log, "status", func() error { return boom }), boom)
	assert.Contains(t, buf.String(), "status_error")

	assert.Equal(t, runsBefore+2, testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("status")))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("status")))
}
