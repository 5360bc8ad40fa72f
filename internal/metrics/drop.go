package metrics

import (
	"context"
	"time"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/logger"
)

// StartDropPublisher periodically republishes the event bus's cumulative
// latest-wins overwrite count. Each publish carries the running total, not
// a delta, so a missed tick never loses information; the CloudWatch/log
// consumer is expected to diff on read like any monotonic counter.
func StartDropPublisher(ctx context.Context, log *logger.Log, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				EmitMetric(log, "eventbus", "bus_drops_total", eventbus.DropCount(), "counter", nil)
			}
		}
	}()
}
