package headerauth

import (
	"errors"
	"testing"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

func TestRoleIDsForNames(t *testing.T) {
	reader, admin := defaultRoles()
	roles := newFakeRoleStore(reader, admin)

	ids := RoleIDsForNames(roles, map[string]struct{}{
		"Reader":  {}, // different case than the stored role
		"admin":   {},
		"unknown": {},
	})

	if len(ids) != 2 {
		t.Fatalf("RoleIDsForNames() = %v, want two resolved IDs", ids)
	}

	for _, id := range []uint{reader.ID, admin.ID} {
		if _, ok := ids[id]; !ok {
			t.Errorf("RoleIDsForNames() missing role ID %d", id)
		}
	}
}

func TestRoleIDsForNamesLookupFailure(t *testing.T) {
	reader, admin := defaultRoles()
	roles := newFakeRoleStore(reader, admin)
	roles.existsErr = errors.New("connection reset")

	if ids := RoleIDsForNames(roles, map[string]struct{}{"reader": {}}); len(ids) != 0 {
		t.Errorf("RoleIDsForNames() = %v, want no IDs when lookups fail", ids)
	}
}

func TestRoleIDSetsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b map[uint]struct{}
		want bool
	}{
		{"both empty", map[uint]struct{}{}, map[uint]struct{}{}, true},
		{"nil and empty", nil, map[uint]struct{}{}, true},
		{"equal sets", map[uint]struct{}{1: {}, 2: {}}, map[uint]struct{}{2: {}, 1: {}}, true},
		{"different sizes", map[uint]struct{}{1: {}}, map[uint]struct{}{1: {}, 2: {}}, false},
		{"disjoint", map[uint]struct{}{1: {}}, map[uint]struct{}{2: {}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleIDSetsEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("RoleIDSetsEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSyncUserRoles(t *testing.T) {
	reader, admin := defaultRoles()
	roles := newFakeRoleStore(reader, admin)

	user := &models.User{ID: 1, Username: "horst", Roles: []models.Role{reader}}
	users := newFakeUserStore(user)

	// claim adds the admin role
	if err := SyncUserRoles(users, roles, user, []string{"reader, admin"}); err != nil {
		t.Fatalf("SyncUserRoles() error = %v", err)
	}

	if users.replaceCalls != 1 {
		t.Fatalf("replaceCalls = %d, want 1", users.replaceCalls)
	}

	if len(user.RoleIDs()) != 2 {
		t.Fatalf("RoleIDs() = %v, want reader and admin", user.RoleIDs())
	}

	// unchanged claim is a no-op
	if err := SyncUserRoles(users, roles, user, []string{"admin, reader"}); err != nil {
		t.Fatalf("SyncUserRoles() error = %v", err)
	}

	if users.replaceCalls != 1 {
		t.Errorf("replaceCalls = %d after unchanged claim, want still 1", users.replaceCalls)
	}

	// unknown names are dropped, not errors; the empty claim revokes all
	if err := SyncUserRoles(users, roles, user, []string{"does-not-exist"}); err != nil {
		t.Fatalf("SyncUserRoles() error = %v", err)
	}

	if len(user.RoleIDs()) != 0 {
		t.Errorf("RoleIDs() = %v, want all roles revoked", user.RoleIDs())
	}
}
