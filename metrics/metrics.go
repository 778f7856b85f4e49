package metrics

import "time"

// Metric names recorded by the engine.
const (
	MintIssued    = "mint_issued"
	MintRejected  = "mint_rejected"
	MintLatency   = "mint"
	IssuedCount   = "issued_count"
	CurrentFeeWei = "current_fee_wei"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}
