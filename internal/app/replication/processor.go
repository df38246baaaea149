package replication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/inbox"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

// Processor drives one delivered message through the full pipeline: decode,
// route, admit through the idempotency gate, apply, settle with the broker.
// The broker decision is the last word: processed or terminal messages are
// acked, everything retryable is naked back to the stream.
type Processor struct {
	gate    inbox.Gate
	router  *Router
	logger  *logger.Logger
	metrics ConsumerMetrics
}

// NewProcessor assembles the pipeline.
func NewProcessor(gate inbox.Gate, router *Router, log *logger.Logger, metrics ConsumerMetrics) *Processor {
	return &Processor{gate: gate, router: router, logger: log, metrics: metrics}
}

// Process consumes a single message end to end. By the time it returns the
// message has been acked or naked; the returned error reports retryable
// failures for the caller's logging and is already reflected in the ledger's
// last_error.
func (p *Processor) Process(ctx context.Context, binding events.StreamBinding, msg events.Message) error {
	start := time.Now()

	env, err := events.DecodeEnvelope(msg.Body())
	if err != nil {
		// Redelivery cannot make an unparseable body parseable.
		p.logger.Warn(ctx, "discarding unparseable message",
			"stream", binding.Stream, "error", err)
		p.metrics.IncEventsDiscarded(ctx, "unparseable")
		return msg.Ack()
	}

	apply, err := p.router.Resolve(env.Subject)
	if err != nil {
		var unregistered *UnregisteredSubjectError
		if errors.As(err, &unregistered) {
			p.logger.Warn(ctx, "discarding event with unregistered subject",
				"event_id", env.ID, "subject", env.Subject)
			p.metrics.IncEventsDiscarded(ctx, "unregistered_subject")
			return msg.Ack()
		}
		return err
	}

	attempt, err := p.gate.Admit(ctx, inbox.Record{
		EventID:      env.ID,
		Subject:      string(env.Subject),
		Source:       env.Source,
		Stream:       binding.Stream,
		ConsumerName: binding.Durable,
		Payload:      msg.Body(),
	})
	if err != nil {
		// Gate unavailable (DB down, lock timeout): leave the message for
		// redelivery.
		p.logger.Error(ctx, "inbox admit failed",
			"event_id", env.ID, "subject", env.Subject, "error", err)
		p.metrics.IncEventsRetried(ctx, string(env.Subject))
		if nakErr := msg.Nak(); nakErr != nil {
			return errors.Join(err, nakErr)
		}
		return err
	}

	if attempt.Decision() == inbox.AlreadyDone {
		if err := attempt.Done(ctx); err != nil {
			p.logger.Error(ctx, "failed to release duplicate attempt",
				"event_id", env.ID, "error", err)
		}
		p.logger.Debug(ctx, "event already applied",
			"event_id", env.ID, "subject", env.Subject)
		p.metrics.IncEventsDuplicate(ctx, string(env.Subject))
		return msg.Ack()
	}

	if applyErr := apply(ctx, attempt.Stores(), env.Data); applyErr != nil {
		if failErr := attempt.Fail(ctx, applyErr); failErr != nil {
			p.logger.Error(ctx, "failed to record handler failure",
				"event_id", env.ID, "error", failErr)
		}
		p.logger.Error(ctx, "event apply failed",
			"event_id", env.ID, "subject", env.Subject, "error", applyErr)
		p.metrics.IncEventsRetried(ctx, string(env.Subject))
		if nakErr := msg.Nak(); nakErr != nil {
			return errors.Join(applyErr, nakErr)
		}
		return applyErr
	}

	if err := attempt.Done(ctx); err != nil {
		// Commit failed, so no effect was applied. Redeliver.
		commitErr := fmt.Errorf("committing event %s: %w", env.ID, err)
		if failErr := attempt.Fail(ctx, commitErr); failErr != nil {
			p.logger.Error(ctx, "failed to record commit failure",
				"event_id", env.ID, "error", failErr)
		}
		p.logger.Error(ctx, "event commit failed",
			"event_id", env.ID, "subject", env.Subject, "error", err)
		p.metrics.IncEventsRetried(ctx, string(env.Subject))
		if nakErr := msg.Nak(); nakErr != nil {
			return errors.Join(commitErr, nakErr)
		}
		return commitErr
	}

	p.metrics.IncEventsApplied(ctx, string(env.Subject))
	p.metrics.ObserveProcessingTime(ctx, string(env.Subject), time.Since(start))
	return msg.Ack()
}
