package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSettlementCounts(t *testing.T) {
	before := testutil.ToFloat64(gameSessionsSettled.WithLabelValues("roulette", "win"))

	RecordSettlement("roulette", "win", 5*time.Millisecond)
	RecordSettlement("roulette", "win", 5*time.Millisecond)

	after := testutil.ToFloat64(gameSessionsSettled.WithLabelValues("roulette", "win"))
	assert.Equal(t, before+2, after)
}

func TestScanInFlightGauge(t *testing.T) {
	AddScanInFlight(3)
	AddScanInFlight(-3)
	assert.Equal(t, float64(0), testutil.ToFloat64(scanInFlight))
}
