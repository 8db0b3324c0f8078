package capture

import "github.com/google/uuid"

// Role is the server-side role attached to an authenticated account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleEditor  Role = "editor"
	RoleSMC     Role = "smc"
	RoleUser    Role = "user"
)

// Capability names one permitted admin surface. Authorization decisions key
// on capabilities, never on role-name comparisons against client claims.
type Capability string

const (
	CapEvents          Capability = "events"
	CapCaptures        Capability = "captures"
	CapTeam            Capability = "team"
	CapRoles           Capability = "roles"
	CapRemovalRequests Capability = "removal-requests"
	CapSettings        Capability = "settings"
	CapSMC             Capability = "smc"
	CapStories         Capability = "stories"
	CapApproveCaptures Capability = "approve-captures"
)

// roleCapabilities is the fixed role -> capability policy table. It is the
// single source of truth for what each role may do; the client-side tab
// gating mirrors it but is never trusted.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapEvents: true, CapCaptures: true, CapTeam: true, CapRoles: true,
		CapRemovalRequests: true, CapSettings: true, CapSMC: true,
		CapStories: true, CapApproveCaptures: true,
	},
	RoleManager: {
		CapEvents: true, CapCaptures: true, CapTeam: true,
		CapRemovalRequests: true, CapStories: true, CapApproveCaptures: true,
	},
	RoleEditor: {
		CapCaptures: true, CapRemovalRequests: true, CapSMC: true,
		CapStories: true,
	},
	RoleSMC: {
		CapSMC: true,
	},
	RoleUser: {},
}

// Can reports whether the role holds the capability. Unknown roles hold
// nothing.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// Identity deduplicates engagement. It is either an authenticated account
// reference or a long-lived anonymous token issued to the client; exactly
// one of the two is set.
type Identity struct {
	AccountID uuid.UUID
	AnonToken string
	Role      Role
}

// AnonymousIdentity returns an identity backed by a client-issued token.
func AnonymousIdentity(token string) Identity {
	return Identity{AnonToken: token, Role: RoleUser}
}

// AccountIdentity returns an identity backed by an authenticated account.
func AccountIdentity(id uuid.UUID, role Role) Identity {
	return Identity{AccountID: id, Role: role}
}

// Key returns the stable string the like ledger is keyed on.
func (i Identity) Key() string {
	if i.AccountID != uuid.Nil {
		return "acct:" + i.AccountID.String()
	}
	return "anon:" + i.AnonToken
}

// IsAnonymous reports whether the identity has no account backing it.
func (i Identity) IsAnonymous() bool {
	return i.AccountID == uuid.Nil
}

// Can reports whether the identity holds the capability. Anonymous callers
// hold none.
func (i Identity) Can(c Capability) bool {
	if i.IsAnonymous() {
		return false
	}
	return i.Role.Can(c)
}
