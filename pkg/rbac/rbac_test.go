package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(RoleModerator, PermissionModerateResponses))
	assert.NoError(t, CheckPermission(RoleAdmin, PermissionReplayOutbox))

	err := CheckPermission(RoleModerator, PermissionReplayOutbox)
	var denied *PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, PermissionReplayOutbox, denied.Permission)

	assert.False(t, HasPermission("", PermissionReadResponses))
}
