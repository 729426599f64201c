// Package metrics defines the metrics collected by a rollberry node.
package metrics

import "time"

// Metrics is the interface for collecting node metrics.
type Metrics interface {
	// Slot metrics
	SetSlot(slot int64)
	SetSlotRootAge(age time.Duration)
	ObserveSlotDuration(mode string, duration time.Duration)
	IncSlotsCommitted(mode string)
	IncSlotsAborted(reason string)

	// Operation metrics
	IncOpsApplied(module, method string)
	IncOpsFailed(module, method, reason string)
	ObserveBatchSize(count int)

	// Witness metrics
	SetWitnessEntries(count int)
	SetWitnessBytes(size int)
	IncWitnessMismatches()

	// State store metrics
	SetStateStoreVersion(version int64)
	IncStateStoreGets()
	IncStateStoreSets()
	IncStateStoreDeletes()
	ObserveCommitLatency(latency time.Duration)
}

// Slot abort reasons.
const (
	AbortReasonWitness = "witness"
	AbortReasonBackend = "backend"
	AbortReasonCaller  = "caller"
)

// Execution modes.
const (
	ModeNative = "native"
	ModeVerify = "verify"
)
