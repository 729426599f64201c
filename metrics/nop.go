package metrics

import (
	"time"
)

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// Slot metrics (no-op)

func (m *NopMetrics) SetSlot(slot int64)                                      {}
func (m *NopMetrics) SetSlotRootAge(age time.Duration)                        {}
func (m *NopMetrics) ObserveSlotDuration(mode string, duration time.Duration) {}
func (m *NopMetrics) IncSlotsCommitted(mode string)                           {}
func (m *NopMetrics) IncSlotsAborted(reason string)                           {}

// Operation metrics (no-op)

func (m *NopMetrics) IncOpsApplied(module, method string)        {}
func (m *NopMetrics) IncOpsFailed(module, method, reason string) {}
func (m *NopMetrics) ObserveBatchSize(count int)                 {}

// Witness metrics (no-op)

func (m *NopMetrics) SetWitnessEntries(count int) {}
func (m *NopMetrics) SetWitnessBytes(size int)    {}
func (m *NopMetrics) IncWitnessMismatches()       {}

// State store metrics (no-op)

func (m *NopMetrics) SetStateStoreVersion(version int64)         {}
func (m *NopMetrics) IncStateStoreGets()                         {}
func (m *NopMetrics) IncStateStoreSets()                         {}
func (m *NopMetrics) IncStateStoreDeletes()                      {}
func (m *NopMetrics) ObserveCommitLatency(latency time.Duration) {}
