package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Recorder feeds form events into Prometheus and the lookup_metrics table.
type Recorder struct {
	store  *Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder. store may be nil to skip persistence.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// RecordLookup counts a nutrition lookup and persists it.
func (r *Recorder) RecordLookup(fruit, key, outcome string, latency time.Duration) {
	lookupsTotal.WithLabelValues(outcome).Inc()
	lookupDuration.Observe(latency.Seconds())

	if r.store == nil {
		return
	}
	err := r.store.Record(context.Background(), LookupMetric{
		Fruit:     fruit,
		Key:       key,
		Outcome:   outcome,
		LatencyMS: latency.Milliseconds(),
	})
	if err != nil {
		r.logger.Warn("failed to persist lookup metric", zap.String("fruit", fruit), zap.Error(err))
	}
}

// RecordOrder counts a submitted order.
func (r *Recorder) RecordOrder() {
	ordersSubmitted.Inc()
}
