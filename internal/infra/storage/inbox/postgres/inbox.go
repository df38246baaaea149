// Package postgres implements the idempotency gate over PostgreSQL row
// locks. One open transaction spans lock acquisition, handler execution, and
// the processed mark, which is what makes redelivered events at-most-once in
// effect.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/inbox"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage"
	identitypg "github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage/identity/postgres"
)

var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

var _ inbox.Gate = (*Gate)(nil)

// Gate is the PostgreSQL-backed idempotency gate.
type Gate struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewGate creates a gate over the given pool.
func NewGate(pool *pgxpool.Pool, tracer trace.Tracer) *Gate {
	return &Gate{pool: pool, tracer: tracer}
}

// Admit opens a transaction, creates the ledger row if this is the first
// sighting of the event ID, and acquires a row lock on it. The lock is held
// until the returned attempt is finished with Done or Fail, serializing
// concurrent deliveries of the same event ID.
func (g *Gate) Admit(ctx context.Context, rec inbox.Record) (inbox.Attempt, error) {
	dbAttrs := append(defaultDBAttributes,
		attribute.String("event_id", rec.EventID),
		attribute.String("subject", rec.Subject),
	)

	var att *attempt
	err := storage.ExecuteAndTrace(ctx, g.tracer, "postgres.inbox_admit", dbAttrs, func(ctx context.Context) error {
		tx, err := g.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin inbox transaction: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inbox_events (event_id, subject, source, stream, consumer_name, payload)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (event_id) DO NOTHING`,
			rec.EventID, rec.Subject, rec.Source, rec.Stream, rec.ConsumerName, rec.Payload,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to insert inbox record: %w", err)
		}

		var processedAt pgtype.Timestamptz
		row := tx.QueryRow(ctx, `SELECT processed_at FROM inbox_events WHERE event_id = $1 FOR UPDATE`, rec.EventID)
		if err := row.Scan(&processedAt); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to lock inbox record: %w", err)
		}

		decision := inbox.ShouldProcess
		if processedAt.Valid {
			decision = inbox.AlreadyDone
		}

		att = &attempt{
			gate:     g,
			tx:       tx,
			rec:      rec,
			decision: decision,
			stores:   identitypg.NewReplicaSet(tx, g.tracer),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return att, nil
}

// attempt is one locked processing attempt. The embedded transaction carries
// both the ledger row lock and all read-model writes made through stores.
type attempt struct {
	gate     *Gate
	tx       pgx.Tx
	rec      inbox.Record
	decision inbox.Decision
	stores   *identitypg.ReplicaSet
}

func (a *attempt) Decision() inbox.Decision { return a.decision }

func (a *attempt) Stores() identity.ReplicaSet { return a.stores }

// Done sets processed_at exactly once and commits. For an attempt that was
// already done it only ends the transaction, making redelivery a no-op.
func (a *attempt) Done(ctx context.Context) error {
	dbAttrs := append(defaultDBAttributes, attribute.String("event_id", a.rec.EventID))

	return storage.ExecuteAndTrace(ctx, a.gate.tracer, "postgres.inbox_done", dbAttrs, func(ctx context.Context) error {
		if a.decision == inbox.ShouldProcess {
			_, err := a.tx.Exec(ctx, `
				UPDATE inbox_events
				SET processed_at = now(), last_error = NULL
				WHERE event_id = $1`,
				a.rec.EventID,
			)
			if err != nil {
				_ = a.tx.Rollback(ctx)
				return fmt.Errorf("failed to mark inbox record processed: %w", err)
			}
		}

		if err := a.tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit inbox transaction: %w", err)
		}
		return nil
	})
}

// Fail rolls the main transaction back, discarding the handler's writes, then
// records the failure in a separate short transaction so the diagnostic
// survives without holding the row lock across the redelivery backoff.
func (a *attempt) Fail(ctx context.Context, cause error) error {
	dbAttrs := append(defaultDBAttributes, attribute.String("event_id", a.rec.EventID))

	return storage.ExecuteAndTrace(ctx, a.gate.tracer, "postgres.inbox_fail", dbAttrs, func(ctx context.Context) error {
		if err := a.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return fmt.Errorf("failed to roll back inbox transaction: %w", err)
		}

		// The rollback also discarded the ledger row if this was the first
		// sighting, so the error write re-upserts the full record.
		_, err := a.gate.pool.Exec(ctx, `
			INSERT INTO inbox_events (event_id, subject, source, stream, consumer_name, payload, last_error)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (event_id) DO UPDATE
			SET last_error = EXCLUDED.last_error`,
			a.rec.EventID, a.rec.Subject, a.rec.Source, a.rec.Stream, a.rec.ConsumerName, a.rec.Payload, cause.Error(),
		)
		if err != nil {
			return fmt.Errorf("failed to record inbox failure: %w", err)
		}
		return nil
	})
}
