package testsupport

import "cadastra/internal/identity"

// Operator returns a worker identity for tests.
func Operator(id string) identity.Actor {
	return identity.Actor{ID: id, Role: identity.RoleOperator}
}

// Reviewer returns a reviewer identity for tests.
func Reviewer(id string) identity.Actor {
	return identity.Actor{ID: id, Role: identity.RoleReviewer}
}

// Supervisor returns an administrative identity for tests.
func Supervisor(id string) identity.Actor {
	return identity.Actor{ID: id, Role: identity.RoleSupervisor}
}
