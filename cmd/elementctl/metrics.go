package main

import (
	"context"
	"log"
	"time"
)

// RunMetrics logs the sink's received-buffer count every interval until ctx
// is canceled, the same periodic-log shape as the teacher's RunMetrics.
func RunMetrics(ctx context.Context, sink *counterSink, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := sink.Received()
			if n != last {
				log.Printf("[metrics] sink received=%d (+%d)", n, n-last)
				last = n
			}
		}
	}
}
