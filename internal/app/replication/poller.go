package replication

import (
	"context"
	"time"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

// Puller pulls a bounded batch of messages from a durable stream binding.
// A pull that times out with nothing to deliver returns an empty batch and
// no error.
type Puller interface {
	Pull(ctx context.Context, binding events.StreamBinding, batch int, wait time.Duration) ([]events.Message, error)
}

// Poller sweeps the configured stream bindings forever, feeding each pulled
// message through the processor. Messages are processed strictly one at a
// time; the only concurrent delivery of an event ID comes from redelivery
// across cycles or replicas, which the idempotency gate serializes.
type Poller struct {
	puller    Puller
	processor *Processor
	bindings  []events.StreamBinding

	batchSize     int
	pullWait      time.Duration
	sweepInterval time.Duration

	logger  *logger.Logger
	metrics ConsumerMetrics
}

// PollerConfig bounds one sweep of the poll loop.
type PollerConfig struct {
	// BatchSize caps how many messages one pull may return.
	BatchSize int

	// PullWait is the bounded server-side wait for a batch.
	PullWait time.Duration

	// SweepInterval is the pause between full sweeps of all bindings.
	SweepInterval time.Duration
}

// NewPoller creates a poller over the given bindings.
func NewPoller(
	puller Puller,
	processor *Processor,
	bindings []events.StreamBinding,
	cfg PollerConfig,
	log *logger.Logger,
	metrics ConsumerMetrics,
) *Poller {
	return &Poller{
		puller:        puller,
		processor:     processor,
		bindings:      bindings,
		batchSize:     cfg.BatchSize,
		pullWait:      cfg.PullWait,
		sweepInterval: cfg.SweepInterval,
		logger:        log,
		metrics:       metrics,
	}
}

// Run loops until ctx is cancelled. A failing stream is logged and skipped
// for the rest of the sweep; the next sweep retries it. The in-flight
// message always settles before Run returns.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info(ctx, "starting stream poller",
		"streams", len(p.bindings),
		"batch_size", p.batchSize,
		"sweep_interval", p.sweepInterval.String())

	for {
		p.sweep(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "stream poller stopped")
			return ctx.Err()
		case <-time.After(p.sweepInterval):
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	for _, binding := range p.bindings {
		if ctx.Err() != nil {
			return
		}

		msgs, err := p.puller.Pull(ctx, binding, p.batchSize, p.pullWait)
		if err != nil {
			p.logger.Error(ctx, "stream pull failed",
				"stream", binding.Stream, "durable", binding.Durable, "error", err)
			p.metrics.IncStreamErrors(ctx, binding.Stream)
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		p.metrics.IncMessagesPulled(ctx, binding.Stream, len(msgs))

		for _, msg := range msgs {
			if ctx.Err() != nil {
				// Unprocessed messages stay un-acked and redeliver.
				return
			}
			// Process settles the message itself; errors here are retryable
			// ones already logged and naked, so the sweep moves on. The
			// detached context lets an in-flight transaction finish during
			// shutdown instead of being aborted mid-write.
			_ = p.processor.Process(context.WithoutCancel(ctx), binding, msg)
		}
	}
}
