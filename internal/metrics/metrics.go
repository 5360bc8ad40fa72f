// Package metrics republishes the reconciliation engine's operational
// counters (exchanges connected/disconnected, reconcile failures, poll
// fetch outcomes, event bus drops) as structured log lines and, when
// configured, CloudWatch metric data — mirroring the teacher's
// logger.LogMetric/internal/metrics/cloudwatch.go split between local
// observability and optional remote publish.
package metrics

import (
	"sync/atomic"

	"marketdatamanager/logger"
)

// Counters is a small set of process-lifetime counters the reconciliation
// engine and polling loop update directly. It carries no behavior of its
// own beyond atomic bookkeeping and periodic publish; EmitMetric does the actual
// logging/CloudWatch work.
type Counters struct {
	ExchangesConnected    atomic.Int64
	ExchangesDisconnected atomic.Int64
	ReconcileFailures     atomic.Int64
	PollSuccesses         atomic.Int64
	PollErrors            atomic.Int64
}

// New constructs an empty Counters, all fields zero.
func New() *Counters {
	return &Counters{}
}

// RecordConnect increments the connected counter and emits it immediately;
// connects are rare enough that per-event publish, rather than batching, is
// the right cadence.
func (c *Counters) RecordConnect(exchangeName string) {
	v := c.ExchangesConnected.Add(1)
	EmitMetric(logger.GetLogger(), "reconcile", "exchanges_connected_total", v, "counter", logger.Fields{"exchange": exchangeName})
}

// RecordDisconnect increments the disconnected counter and emits it.
func (c *Counters) RecordDisconnect(exchangeName string) {
	v := c.ExchangesDisconnected.Add(1)
	EmitMetric(logger.GetLogger(), "reconcile", "exchanges_disconnected_total", v, "counter", logger.Fields{"exchange": exchangeName})
}

// RecordReconcileFailure increments and emits the reconciliation-failure
// counter.
func (c *Counters) RecordReconcileFailure() {
	v := c.ReconcileFailures.Add(1)
	EmitMetric(logger.GetLogger(), "reconcile", "reconcile_failures_total", v, "counter", nil)
}

// RecordPollResult increments the success or error counter for one polling
// fetch, without emitting on every call: polling runs on a tight loop and
// per-fetch publish would flood CloudWatch, so callers should periodically
// call EmitPollCounters instead (see StartBusSubscriberMetrics for the
// equivalent periodic-publish shape).
func (c *Counters) RecordPollResult(ok bool) {
	if ok {
		c.PollSuccesses.Add(1)
	} else {
		c.PollErrors.Add(1)
	}
}

// EmitPollCounters publishes the current poll success/error totals.
func (c *Counters) EmitPollCounters() {
	log := logger.GetLogger()
	EmitMetric(log, "polling", "poll_successes_total", c.PollSuccesses.Load(), "counter", nil)
	EmitMetric(log, "polling", "poll_errors_total", c.PollErrors.Load(), "counter", nil)
}
