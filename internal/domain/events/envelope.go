// Package events defines the envelope shape of upstream auth events and the
// ports the replication pipeline uses to consume them, keeping domain logic
// decoupled from the broker implementation.
package events

// Envelope is a decoded upstream event. The upstream system-of-record assigns
// ID and Subject; both are mandatory. Data carries the subject-specific
// payload as a free-form key/value structure.
type Envelope struct {
	// ID is the globally unique, upstream-assigned event identifier.
	ID string `json:"id"`

	// Subject is the dotted event-type string, e.g. "auth.v1.user.created".
	Subject Subject `json:"subject"`

	// Source names the originating system. Optional.
	Source string `json:"source,omitempty"`

	// Data is the subject-specific payload. Never nil after decoding.
	Data map[string]any `json:"data,omitempty"`
}

// StreamBinding names one durable pull subscription: the stream it consumes,
// the durable consumer name anchoring the server-side cursor, and the
// subject filter. The set of bindings is configuration, supplied at startup.
type StreamBinding struct {
	Stream        string
	Durable       string
	FilterSubject string
}

// Message is a single delivery from the broker: an opaque byte body plus
// acknowledgment controls. Implementations must tolerate brokers that do not
// support one of the operations by treating it as a no-op.
type Message interface {
	// Body returns the raw message payload.
	Body() []byte

	// Ack acknowledges the message so it is never redelivered.
	Ack() error

	// Nak negatively acknowledges the message, requesting redelivery after
	// the broker's configured backoff.
	Nak() error
}
