package replication

import (
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

// Handlers applies decoded upstream events to the local read model. One
// method per subject; every method writes through the repositories the inbox
// attempt bound to its transaction, so effects commit or roll back with the
// processed mark.
type Handlers struct {
	log *logger.Logger
}

// NewHandlers creates the handler set behind the subject router.
func NewHandlers(log *logger.Logger) *Handlers {
	return &Handlers{log: log}
}
