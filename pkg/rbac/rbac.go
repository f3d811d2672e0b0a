package rbac

import "slices"

const (
	PermissionReadResponses     = "email_response:read"
	PermissionModerateResponses = "email_response:moderate"
	PermissionReplayOutbox      = "outbox:replay"
)

const (
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

var rolePermissions = map[string][]string{
	RoleModerator: {
		PermissionReadResponses,
		PermissionModerateResponses,
	},
	RoleAdmin: {
		PermissionReadResponses,
		PermissionModerateResponses,
		PermissionReplayOutbox,
	},
}

// HasPermission reports whether role grants permission
func HasPermission(role string, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission is HasPermission returning an error
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
