package replication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/inbox"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage/identity/memory"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

type fakePuller struct {
	// batches maps stream name to the batch returned on each pull; errs maps
	// stream name to a permanent pull failure.
	batches map[string][]events.Message
	errs    map[string]error

	pulls []string
}

func (f *fakePuller) Pull(_ context.Context, binding events.StreamBinding, _ int, _ time.Duration) ([]events.Message, error) {
	f.pulls = append(f.pulls, binding.Stream)
	if err, ok := f.errs[binding.Stream]; ok {
		return nil, err
	}
	batch := f.batches[binding.Stream]
	delete(f.batches, binding.Stream)
	return batch, nil
}

func newTestPoller(puller Puller, bindings []events.StreamBinding, gate inbox.Gate) *Poller {
	cfg := PollerConfig{BatchSize: 16, PullWait: time.Millisecond, SweepInterval: time.Millisecond}
	return NewPoller(puller, newTestProcessor(gate), bindings, cfg, logger.Noop(), noopMetrics{})
}

func TestPollerSweepContinuesPastStreamErrors(t *testing.T) {
	bindings := []events.StreamBinding{
		{Stream: "BROKEN", Durable: "d1", FilterSubject: "auth.v1.>"},
		{Stream: "HEALTHY", Durable: "d2", FilterSubject: "auth.v1.>"},
	}

	msg := &fakeMessage{body: envelopeBody(t, "evt-1", events.SubjectUserCreated, map[string]any{
		"user": map[string]any{"id": float64(10), "name": "alice"},
	})}
	puller := &fakePuller{
		batches: map[string][]events.Message{"HEALTHY": {msg}},
		errs:    map[string]error{"BROKEN": errors.New("nats: connection closed")},
	}

	rs := memory.NewReplicaSet()
	gate := &scriptedGate{decision: inbox.ShouldProcess, stores: rs}
	p := newTestPoller(puller, bindings, gate)

	p.sweep(context.Background())

	assert.Equal(t, []string{"BROKEN", "HEALTHY"}, puller.pulls)
	assert.Equal(t, 1, msg.acked, "healthy stream still processed after a broken one")

	user, err := rs.Users().FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
}

// cancellingGate fires a shutdown signal the moment processing starts, then
// records the context the processing pipeline actually runs on.
type cancellingGate struct {
	inner  *scriptedGate
	cancel context.CancelFunc
	seen   context.Context
}

func (g *cancellingGate) Admit(ctx context.Context, rec inbox.Record) (inbox.Attempt, error) {
	g.cancel()
	g.seen = ctx
	return g.inner.Admit(ctx, rec)
}

func TestPollerShutdownDoesNotAbortInFlightMessage(t *testing.T) {
	msg := &fakeMessage{body: envelopeBody(t, "evt-1", events.SubjectUserCreated, map[string]any{
		"user": map[string]any{"id": float64(10), "name": "alice"},
	})}
	puller := &fakePuller{batches: map[string][]events.Message{"AUTH_EVENTS": {msg}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs := memory.NewReplicaSet()
	gate := &cancellingGate{
		inner:  &scriptedGate{decision: inbox.ShouldProcess, stores: rs},
		cancel: cancel,
	}
	bindings := []events.StreamBinding{{Stream: "AUTH_EVENTS", Durable: "d1", FilterSubject: "auth.v1.>"}}
	p := newTestPoller(puller, bindings, gate)

	p.sweep(ctx)

	require.NotNil(t, gate.seen)
	assert.NoError(t, gate.seen.Err(), "in-flight work must not observe shutdown cancellation")
	assert.Equal(t, 1, msg.acked)

	user, err := rs.Users().FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	puller := &fakePuller{}
	gate := &scriptedGate{decision: inbox.ShouldProcess, stores: memory.NewReplicaSet()}
	bindings := []events.StreamBinding{{Stream: "AUTH_EVENTS", Durable: "d1", FilterSubject: "auth.v1.>"}}
	p := newTestPoller(puller, bindings, gate)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Let at least one sweep happen before stopping.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	assert.NotEmpty(t, puller.pulls)
}
