package utils

// Permission levels
const (
	DeveloperPermission  = "developer"
	SuperAdminPermission = "super_admin"
	AdminPermission      = "admin"
	ModeratorPermission  = "moderator"
	GuestPermission      = "guest"
)

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// CheckPermission checks the highest permission level for a given list of
// role IDs against the configured moderation roles.
func CheckPermission(userRoleIDs []string, userID string, adminRoleIDs, moderatorRoleIDs, developerUserIDs, superAdminRoleIDs []string) string {
	if contains(developerUserIDs, userID) {
		return DeveloperPermission
	}

	for _, roleID := range userRoleIDs {
		if contains(superAdminRoleIDs, roleID) {
			return SuperAdminPermission
		}
	}

	for _, roleID := range userRoleIDs {
		if contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}

	for _, roleID := range userRoleIDs {
		if contains(moderatorRoleIDs, roleID) {
			return ModeratorPermission
		}
	}

	return GuestPermission
}

// PermissionAtLeast reports whether a level satisfies the required one.
func PermissionAtLeast(level, required string) bool {
	rank := map[string]int{
		GuestPermission:      0,
		ModeratorPermission:  1,
		AdminPermission:      2,
		SuperAdminPermission: 3,
		DeveloperPermission:  4,
	}
	return rank[level] >= rank[required]
}
