package rbac

const (
	PermissionReadTask   = "task:read"
	PermissionWriteTask  = "task:write"
	PermissionExportTask = "task:export"
	PermissionReadTag    = "tag:read"
	PermissionManageTag  = "tag:manage"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// rolePermissions lists what each role may do.
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadTask,
		PermissionWriteTask,
		PermissionExportTask,
		PermissionReadTag,
	},
	RoleAdmin: {
		PermissionReadTask,
		PermissionWriteTask,
		PermissionExportTask,
		PermissionReadTag,
		PermissionManageTag,
	},
}

// RoleFor maps the user's admin flag to a role.
func RoleFor(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}

func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning *PermissionDeniedError.
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
