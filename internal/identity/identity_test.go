package identity_test

import (
	"testing"

	"cadastra/internal/identity"
)

func TestParseRole(t *testing.T) {
	for input, want := range map[string]identity.Role{
		"operator":   identity.RoleOperator,
		" Reviewer ": identity.RoleReviewer,
		"SUPERVISOR": identity.RoleSupervisor,
	} {
		role, ok := identity.ParseRole(input)
		if !ok || role != want {
			t.Errorf("ParseRole(%q) = %q, %v; want %q", input, role, ok, want)
		}
	}
	for _, input := range []string{"", "  ", "admin", "worker"} {
		if _, ok := identity.ParseRole(input); ok {
			t.Errorf("ParseRole(%q) should fail", input)
		}
	}
}

func TestActorValid(t *testing.T) {
	actor := identity.Actor{ID: "W1", Role: identity.RoleOperator}
	if !actor.Valid() {
		t.Fatal("expected actor to be valid")
	}
	if (identity.Actor{Role: identity.RoleOperator}).Valid() {
		t.Fatal("actor without id must be invalid")
	}
	if (identity.Actor{ID: "W1", Role: "admin"}).Valid() {
		t.Fatal("actor with unknown role must be invalid")
	}
}

func TestActorScope(t *testing.T) {
	unscoped := identity.Actor{ID: "W1", Role: identity.RoleOperator}
	if !unscoped.ScopedTo("R1") || !unscoped.ScopedTo("R2") {
		t.Fatal("unscoped actor may operate anywhere")
	}

	scoped := identity.Actor{ID: "W1", Role: identity.RoleOperator, Region: "R1"}
	if !scoped.ScopedTo("R1") || !scoped.ScopedTo("r1") {
		t.Fatal("scope match is case-insensitive")
	}
	if scoped.ScopedTo("R2") {
		t.Fatal("scoped actor must not cross regions")
	}
}
