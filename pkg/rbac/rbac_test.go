package rbac

import (
	"errors"
	"testing"
)

func TestCheckPermission(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role       string
		permission string
		allowed    bool
	}{
		{RoleUser, PermissionReadTask, true},
		{RoleUser, PermissionExportTask, true},
		{RoleUser, PermissionManageTag, false},
		{RoleAdmin, PermissionManageTag, true},
		{"guest", PermissionReadTask, false},
	}

	for _, tc := range cases {
		err := CheckPermission(tc.role, tc.permission)
		if tc.allowed && err != nil {
			t.Errorf("%s/%s: unexpected error %v", tc.role, tc.permission, err)
		}
		if !tc.allowed {
			var denied *PermissionDeniedError
			if !errors.As(err, &denied) {
				t.Errorf("%s/%s: expected PermissionDeniedError, got %v", tc.role, tc.permission, err)
			}
		}
	}
}

func TestRoleFor(t *testing.T) {
	t.Parallel()

	if RoleFor(true) != RoleAdmin || RoleFor(false) != RoleUser {
		t.Fatalf("unexpected role mapping")
	}
}
