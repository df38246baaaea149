package replication

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ConsumerMetrics defines metrics operations needed by the replication
// pipeline.
type ConsumerMetrics interface {
	// Poller metrics
	IncMessagesPulled(ctx context.Context, stream string, count int)
	IncStreamErrors(ctx context.Context, stream string)

	// Processor metrics
	IncEventsApplied(ctx context.Context, subject string)
	IncEventsDuplicate(ctx context.Context, subject string)
	IncEventsDiscarded(ctx context.Context, reason string)
	IncEventsRetried(ctx context.Context, subject string)
	ObserveProcessingTime(ctx context.Context, subject string, duration time.Duration)
}

// Consumer implements ConsumerMetrics.
type Consumer struct {
	messagesPulled metric.Int64Counter
	streamErrors   metric.Int64Counter

	eventsApplied   metric.Int64Counter
	eventsDuplicate metric.Int64Counter
	eventsDiscarded metric.Int64Counter
	eventsRetried   metric.Int64Counter
	processingTime  metric.Float64Histogram
}

const namespace = "replication_consumer"

// NewConsumerMetrics creates a new Consumer metrics instance.
func NewConsumerMetrics(mp metric.MeterProvider) (*Consumer, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	c := new(Consumer)
	var err error

	if c.messagesPulled, err = meter.Int64Counter(
		"messages_pulled_total",
		metric.WithDescription("Total number of messages pulled from streams"),
	); err != nil {
		return nil, err
	}

	if c.streamErrors, err = meter.Int64Counter(
		"stream_errors_total",
		metric.WithDescription("Total number of stream-level pull failures"),
	); err != nil {
		return nil, err
	}

	if c.eventsApplied, err = meter.Int64Counter(
		"events_applied_total",
		metric.WithDescription("Total number of events applied to the read model"),
	); err != nil {
		return nil, err
	}

	if c.eventsDuplicate, err = meter.Int64Counter(
		"events_duplicate_total",
		metric.WithDescription("Total number of redelivered events already applied"),
	); err != nil {
		return nil, err
	}

	if c.eventsDiscarded, err = meter.Int64Counter(
		"events_discarded_total",
		metric.WithDescription("Total number of events acknowledged without processing"),
	); err != nil {
		return nil, err
	}

	if c.eventsRetried, err = meter.Int64Counter(
		"events_retried_total",
		metric.WithDescription("Total number of events returned to the stream for redelivery"),
	); err != nil {
		return nil, err
	}

	if c.processingTime, err = meter.Float64Histogram(
		"event_processing_duration_seconds",
		metric.WithDescription("Time taken to process each event"),
	); err != nil {
		return nil, err
	}

	return c, nil
}

// Interface implementation methods.
func (c *Consumer) IncMessagesPulled(ctx context.Context, stream string, count int) {
	c.messagesPulled.Add(ctx, int64(count), metric.WithAttributes(attribute.String("stream", stream)))
}
func (c *Consumer) IncStreamErrors(ctx context.Context, stream string) {
	c.streamErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stream", stream)))
}
func (c *Consumer) IncEventsApplied(ctx context.Context, subject string) {
	c.eventsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
}
func (c *Consumer) IncEventsDuplicate(ctx context.Context, subject string) {
	c.eventsDuplicate.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
}
func (c *Consumer) IncEventsDiscarded(ctx context.Context, reason string) {
	c.eventsDiscarded.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
func (c *Consumer) IncEventsRetried(ctx context.Context, subject string) {
	c.eventsRetried.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
}
func (c *Consumer) ObserveProcessingTime(ctx context.Context, subject string, duration time.Duration) {
	c.processingTime.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("subject", subject)))
}

var _ ConsumerMetrics = (*Consumer)(nil)

// noopMetrics discards every observation. Used by tests.
type noopMetrics struct{}

func (noopMetrics) IncMessagesPulled(context.Context, string, int) {}
func (noopMetrics) IncStreamErrors(context.Context, string)        {}
func (noopMetrics) IncEventsApplied(context.Context, string)       {}
func (noopMetrics) IncEventsDuplicate(context.Context, string)     {}
func (noopMetrics) IncEventsDiscarded(context.Context, string)     {}
func (noopMetrics) IncEventsRetried(context.Context, string)       {}
func (noopMetrics) ObserveProcessingTime(context.Context, string, time.Duration) {}
