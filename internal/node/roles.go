package node

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Role marks a duty a node performs for the cluster.
type Role uint8

const (
	RoleData Role = 1 << iota
	RoleMaster
	RoleIngest
)

var roleNames = map[Role]string{
	RoleData:   "data",
	RoleMaster: "master",
	RoleIngest: "ingest",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Roles is the set of roles a node performs.
type Roles uint8

// DefaultRoles returns the role set assigned to nodes that don't configure
// their own: every role.
func DefaultRoles() Roles {
	return Roles(0).With(RoleData).With(RoleMaster).With(RoleIngest)
}

// Has returns true if the set contains the given role.
func (r Roles) Has(role Role) bool { return r&Roles(role) != 0 }

// With returns the set extended with the given role.
func (r Roles) With(role Role) Roles { return r | Roles(role) }

// Strings returns the names of the roles in the set.
func (r Roles) Strings() (names []string) {
	for _, role := range []Role{RoleData, RoleMaster, RoleIngest} {
		if r.Has(role) {
			names = append(names, role.String())
		}
	}
	return names
}

func (r Roles) String() string { return strings.Join(r.Strings(), ",") }

// ParseRoles parses a set of role names as they appear in configuration.
func ParseRoles(names []string) (Roles, error) {
	var roles Roles
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "data":
			roles = roles.With(RoleData)
		case "master":
			roles = roles.With(RoleMaster)
		case "ingest":
			roles = roles.With(RoleIngest)
		default:
			return 0, errors.Newf("unknown node role %q", name)
		}
	}
	return roles, nil
}
