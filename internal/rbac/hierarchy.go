package rbac

// Rank values; gaps leave room for roles inserted between existing ones.
const (
	rankNone         = 0
	rankViewer       = 10
	rankEmployee     = 20
	rankManager      = 30
	rankAdminEmpresa = 40
	rankSuperAdmin   = 100
)

// Rank returns the privilege level of a role within its scope. A role paired
// with the wrong role type ranks as rankNone.
func Rank(role Role, roleType RoleType) int {
	if role.Type() != roleType {
		return rankNone
	}
	switch role {
	case RoleSuperAdmin:
		return rankSuperAdmin
	case RoleAdminEmpresa:
		return rankAdminEmpresa
	case RoleManager:
		return rankManager
	case RoleEmployee:
		return rankEmployee
	case RoleViewer:
		return rankViewer
	}
	return rankNone
}

// RankOf is Rank with the role's own scope.
func RankOf(role Role) int {
	return Rank(role, role.Type())
}

// CanAssign reports whether an assigner may grant a role of targetRank.
// Only strictly lower ranks may be granted; peers and superiors never.
func CanAssign(assignerRank, targetRank int) bool {
	return assignerRank > targetRank
}
