package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = (*NopMetrics)(nil)
)

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics("rollberry")

	m.SetSlot(42)
	m.ObserveSlotDuration(ModeNative, 10*time.Millisecond)
	m.IncSlotsCommitted(ModeNative)
	m.IncSlotsAborted(AbortReasonWitness)
	m.IncOpsApplied("bank", "credit")
	m.IncOpsFailed("bank", "debit", "insufficient_funds")
	m.ObserveBatchSize(3)
	m.SetWitnessEntries(7)
	m.SetWitnessBytes(512)
	m.IncWitnessMismatches()
	m.SetStateStoreVersion(5)
	m.IncStateStoreGets()
	m.IncStateStoreSets()
	m.IncStateStoreDeletes()
	m.ObserveCommitLatency(time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.HTTPHandler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "rollberry_slot 42")
	require.Contains(t, body, `rollberry_slots_committed_total{mode="native"} 1`)
	require.Contains(t, body, `rollberry_ops_failed_total{method="debit",module="bank",reason="insufficient_funds"} 1`)
	require.Contains(t, body, "rollberry_witness_entries 7")
}

func TestNopMetrics(t *testing.T) {
	m := NewNopMetrics()

	// All no-ops; nothing to assert beyond not panicking.
	m.SetSlot(1)
	m.IncSlotsCommitted(ModeVerify)
	m.IncOpsApplied("bank", "credit")
	m.ObserveCommitLatency(time.Millisecond)
}
