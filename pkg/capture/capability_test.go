package capture_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role capture.Role
		can  []capture.Capability
		cant []capture.Capability
	}{
		{
			role: capture.RoleAdmin,
			can: []capture.Capability{
				capture.CapEvents, capture.CapCaptures, capture.CapTeam,
				capture.CapRoles, capture.CapRemovalRequests, capture.CapSettings,
				capture.CapSMC, capture.CapStories, capture.CapApproveCaptures,
			},
		},
		{
			role: capture.RoleManager,
			can:  []capture.Capability{capture.CapEvents, capture.CapApproveCaptures, capture.CapRemovalRequests},
			cant: []capture.Capability{capture.CapRoles, capture.CapSettings, capture.CapSMC},
		},
		{
			role: capture.RoleEditor,
			can:  []capture.Capability{capture.CapCaptures, capture.CapSMC, capture.CapStories},
			cant: []capture.Capability{capture.CapEvents, capture.CapApproveCaptures, capture.CapTeam},
		},
		{
			role: capture.RoleSMC,
			can:  []capture.Capability{capture.CapSMC},
			cant: []capture.Capability{capture.CapCaptures, capture.CapApproveCaptures},
		},
		{
			role: capture.RoleUser,
			cant: []capture.Capability{capture.CapCaptures, capture.CapEvents, capture.CapSMC},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, c := range tt.can {
				assert.True(t, tt.role.Can(c), "role %s should hold %s", tt.role, c)
			}
			for _, c := range tt.cant {
				assert.False(t, tt.role.Can(c), "role %s should not hold %s", tt.role, c)
			}
		})
	}
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	assert.False(t, capture.Role("superadmin").Can(capture.CapSettings))
}

func TestIdentity(t *testing.T) {
	t.Run("anonymous identities hold no capabilities", func(t *testing.T) {
		ident := capture.AnonymousIdentity("tok")
		assert.True(t, ident.IsAnonymous())
		assert.Equal(t, "anon:tok", ident.Key())
		assert.False(t, ident.Can(capture.CapCaptures))
	})

	t.Run("account identities key on the account id", func(t *testing.T) {
		id := uuid.New()
		ident := capture.AccountIdentity(id, capture.RoleEditor)
		assert.False(t, ident.IsAnonymous())
		assert.Equal(t, "acct:"+id.String(), ident.Key())
		assert.True(t, ident.Can(capture.CapCaptures))
	})

	t.Run("a forged role claim on an anonymous identity grants nothing", func(t *testing.T) {
		ident := capture.Identity{AnonToken: "tok", Role: capture.RoleAdmin}
		assert.False(t, ident.Can(capture.CapSettings))
	})
}
