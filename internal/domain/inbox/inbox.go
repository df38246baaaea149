// Package inbox implements the domain side of the inbox pattern: a persisted
// ledger of event IDs that converts the broker's at-least-once delivery into
// exactly-once effects on the read model.
package inbox

import (
	"context"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// Record is one inbox ledger entry, created the first time an event ID is
// seen. The full decoded envelope is kept as Payload for audit and replay.
type Record struct {
	// EventID is the upstream event ID and the ledger's unique key.
	EventID string

	Subject string
	Source  string

	// Stream and ConsumerName record which binding delivered the event.
	Stream       string
	ConsumerName string

	// Payload is the full decoded envelope, JSON-encoded.
	Payload []byte
}

// Decision is the outcome of admitting an event ID to the gate.
type Decision int

const (
	// ShouldProcess means this attempt holds the lock and must run the
	// handler.
	ShouldProcess Decision = iota + 1

	// AlreadyDone means a previous attempt applied this event; the handler
	// must not run again.
	AlreadyDone
)

// Gate is the idempotency gate. Admit acquires an exclusive per-event-ID lock
// that is held until the returned Attempt is finished with Done or Fail.
type Gate interface {
	Admit(ctx context.Context, rec Record) (Attempt, error)
}

// Attempt is one locked processing attempt for a single event ID. Exactly one
// of Done or Fail must be called to release the lock.
type Attempt interface {
	// Decision reports whether the handler should run.
	Decision() Decision

	// Stores returns read-model repositories bound to this attempt's
	// transaction, so handler writes are atomic with the processed mark.
	Stores() identity.ReplicaSet

	// Done marks the event processed exactly once and commits. For an
	// AlreadyDone attempt it only ends the transaction.
	Done(ctx context.Context) error

	// Fail rolls the attempt back, then records cause as the ledger's
	// last_error in a separate short transaction so the diagnostic survives
	// the rollback without blocking the next redelivery.
	Fail(ctx context.Context, cause error) error
}
