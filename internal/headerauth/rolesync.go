package headerauth

import (
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

// RoleIDsForNames resolves role names to role IDs. Names with no matching
// role are dropped, never an error: the proxy may assert roles this instance
// does not know about.
func RoleIDsForNames(roles RoleStore, roleNames map[string]struct{}) map[uint]struct{} {
	roleIDs := make(map[uint]struct{}, len(roleNames))

	for name := range roleNames {
		exists, err := roles.ExistsByName(name)
		if err != nil {
			log.Warn().Err(err).Str("role", name).Msg("failed to check role existence")
			continue
		}

		if !exists {
			continue
		}

		role, err := roles.LoadByName(name)
		if err != nil {
			log.Error().Err(err).Str("role", name).Msg("role not found, but it existed before")
			continue
		}

		roleIDs[role.ID] = struct{}{}
	}

	return roleIDs
}

// RoleIDSetsEqual reports whether two role ID sets contain the same IDs.
func RoleIDSetsEqual(a, b map[uint]struct{}) bool {
	if len(a) != len(b) {
		return false
	}

	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}

	return true
}

// SyncUserRoles reconciles the user's stored role set with the role names
// asserted in the given header values. The user is only saved when the
// resolved ID set differs from the stored one, so repeated calls with
// unchanged claims perform no writes.
func SyncUserRoles(users UserStore, roles RoleStore, user *models.User, claimValues []string) error {
	roleNames := NormalizeCSV(claimValues)
	syncedRoleIDs := RoleIDsForNames(roles, roleNames)

	if RoleIDSetsEqual(user.RoleIDs(), syncedRoleIDs) {
		return nil
	}

	return users.ReplaceRoles(user, syncedRoleIDs)
}
