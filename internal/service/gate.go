package service

import (
	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/model"
)

// Policy is a named set of roles; a user satisfies it by holding any one
// of them.  There is no role hierarchy.
type Policy struct {
	Name  string
	Roles []string
}

var (
	AdminOrAbove   = NewPolicy("admin-or-above", model.RoleAdmin, model.RoleSuperadmin)
	SuperadminOnly = NewPolicy("superadmin-only", model.RoleSuperadmin)
)

func NewPolicy(name string, roles ...string) Policy {
	return Policy{Name: name, Roles: roles}
}

// Allows reports whether u's roles intersect the policy's roles.
func (p Policy) Allows(u model.User) bool {
	for _, r := range p.Roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// RoleGate checks resolved users against access policies.
type RoleGate struct {
	metrics *metrics.Metrics
}

func NewRoleGate(m *metrics.Metrics) *RoleGate { return &RoleGate{metrics: m} }

// Require returns u unchanged if it satisfies p, Forbidden otherwise.
func (g *RoleGate) Require(u model.User, p Policy) (model.User, error) {
	ok := p.Allows(u)
	g.metrics.GateDecision(p.Name, ok)
	if !ok {
		return model.User{}, Forbidden("insufficient role")
	}
	return u, nil
}
