package kafka_middleware

import (
	"context"
	"time"

	"studyrooms/pkg/kafka"
	"studyrooms/pkg/metrics"
)

// MetricsProducerMiddleware records publish outcomes and latency.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		status := "ok"
		if err != nil {
			status = "error"
		}
		m.ObserveEventPublish(msg.GetEventType(), status, time.Since(start).Seconds())
		return err
	}
}
