package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/model"
)

func TestRoleGate_Policies(t *testing.T) {
	gate := NewRoleGate(metrics.New())

	cases := []struct {
		name       string
		roles      []string
		admin      bool
		superadmin bool
	}{
		{"no roles", nil, false, false},
		{"empty roles", []string{}, false, false},
		{"admin", []string{"admin"}, true, false},
		{"superadmin", []string{"superadmin"}, true, true},
		{"both", []string{"admin", "superadmin"}, true, true},
		{"unrelated role", []string{"editor"}, false, false},
		{"stale role name", []string{"deleted-role", "admin"}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := model.User{ID: "u-1", Roles: tc.roles}

			got, err := gate.Require(u, AdminOrAbove)
			if tc.admin {
				assert.NoError(t, err)
				assert.Equal(t, u.ID, got.ID)
			} else {
				assert.Equal(t, KindForbidden, KindOf(err))
			}

			_, err = gate.Require(u, SuperadminOnly)
			if tc.superadmin {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, KindForbidden, KindOf(err))
			}
		})
	}
}

func TestPolicy_NoHierarchy(t *testing.T) {
	editors := NewPolicy("editors", "editor")
	assert.False(t, editors.Allows(model.User{Roles: []string{"superadmin"}}))
	assert.True(t, editors.Allows(model.User{Roles: []string{"editor"}}))
}
