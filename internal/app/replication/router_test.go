package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

func TestRouterCoversEverySubject(t *testing.T) {
	router := NewRouter(NewHandlers(logger.Noop()))

	subjects := []events.Subject{
		events.SubjectUserCreated, events.SubjectUserUpdated, events.SubjectUserDeleted,
		events.SubjectStoreCreated, events.SubjectStoreUpdated, events.SubjectStoreDeleted,
		events.SubjectRoleCreated, events.SubjectRoleUpdated, events.SubjectRoleDeleted,
		events.SubjectPermissionCreated, events.SubjectPermissionUpdated, events.SubjectPermissionDeleted,
		events.SubjectRolePermissionGranted, events.SubjectRolePermissionRevoked, events.SubjectRolePermissionSynced,
		events.SubjectUserRoleGranted, events.SubjectUserRoleRevoked, events.SubjectUserRoleSynced,
		events.SubjectUserPermissionRevoked, events.SubjectUserPermissionSynced,
		events.SubjectStoreRoleAssigned, events.SubjectStoreRoleRemoved,
		events.SubjectStoreRoleToggled, events.SubjectStoreRoleBulkAssigned,
	}
	require.Len(t, subjects, 24)

	for _, subject := range subjects {
		fn, err := router.Resolve(subject)
		require.NoError(t, err, "subject %s", subject)
		assert.NotNil(t, fn)
	}
	assert.Len(t, router.Subjects(), len(subjects))
}

func TestRouterUnregisteredSubject(t *testing.T) {
	router := NewRouter(NewHandlers(logger.Noop()))

	fn, err := router.Resolve("unknown.v1.thing.happened")
	assert.Nil(t, fn)

	var unregistered *UnregisteredSubjectError
	require.ErrorAs(t, err, &unregistered)
	assert.Equal(t, events.Subject("unknown.v1.thing.happened"), unregistered.Subject)
}
