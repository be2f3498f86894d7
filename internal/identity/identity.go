// Package identity defines the trusted caller identity supplied by the
// external authentication collaborator.
//
// The engine does not authenticate anyone; it receives an Actor that a login
// layer has already vetted and treats its fields as authoritative. Region
// scope limits which regions an actor may touch; an empty scope means
// unscoped.
package identity

import "strings"

// Role describes what an actor is allowed to do in the pipeline.
type Role string

const (
	// RoleOperator executes production work and corrects rejections.
	RoleOperator Role = "operator"
	// RoleReviewer performs quality control on finished batches.
	RoleReviewer Role = "reviewer"
	// RoleSupervisor administers assignments and imports.
	RoleSupervisor Role = "supervisor"
)

var roleSet = map[Role]struct{}{
	RoleOperator:   {},
	RoleReviewer:   {},
	RoleSupervisor: {},
}

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := roleSet[normalized]
	return normalized, ok
}

// Actor identifies a caller of the engine.
type Actor struct {
	ID     string
	Name   string
	Role   Role
	Region string // region scope; empty means unscoped
}

// Valid reports whether the actor carries the minimum required fields.
func (a Actor) Valid() bool {
	if strings.TrimSpace(a.ID) == "" {
		return false
	}
	_, ok := roleSet[a.Role]
	return ok
}

// ScopedTo reports whether the actor may operate in the given region.
func (a Actor) ScopedTo(region string) bool {
	if a.Region == "" {
		return true
	}
	return strings.EqualFold(a.Region, region)
}
