package replication

import (
	"fmt"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
)

// UnregisteredSubjectError indicates an event subject no handler is
// registered for. It is terminal: the routing table is static, so redelivery
// can never succeed.
type UnregisteredSubjectError struct {
	Subject events.Subject
}

func (e *UnregisteredSubjectError) Error() string {
	return fmt.Sprintf("no handler for subject %s", e.Subject)
}

// MissingFieldError indicates an event payload lacking a mandatory
// identifier or field. It currently follows the same retry path as
// dependency failures; the poller logs it at error level so poison messages
// are visible to operators.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("event payload is missing required field %q", e.Field)
}
