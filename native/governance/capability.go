package governance

import (
	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/state"
)

// Role is a bit set of governance privileges.
type Role uint8

const (
	RoleOwner Role = 1 << iota
	RoleGuardian
)

// Capability is the explicit authorization token handed to privileged
// operations. It names the caller and the roles that caller was granted.
type Capability struct {
	caller common.Address
	roles  Role
}

// NewCapability builds a capability directly. Privileged operations still
// confirm the roles against current state before committing, so a capability
// never grants more than the record allows.
func NewCapability(caller common.Address, roles Role) Capability {
	return Capability{caller: caller, roles: roles}
}

// Caller returns the identity the capability was issued to.
func (c Capability) Caller() common.Address { return c.caller }

// Has reports whether every bit of role is held.
func (c Capability) Has(role Role) bool { return role != 0 && c.roles&role == role }

// Roles returns the raw role set.
func (c Capability) Roles() Role { return c.roles }

func rolesOf(record *state.GovernanceRecord, caller common.Address) Role {
	if record == nil || caller == (common.Address{}) {
		return 0
	}
	var roles Role
	if caller == record.Owner {
		roles |= RoleOwner
	}
	for _, guardian := range record.Guardians {
		if guardian == caller {
			roles |= RoleGuardian
			break
		}
	}
	return roles
}

// require fails unless the capability carries at least one of the accepted roles and the
// record still grants it to the caller.
func (c Capability) require(record *state.GovernanceRecord, accepted Role) error {
	granted := c.roles & rolesOf(record, c.caller) & accepted
	if granted == 0 {
		return ErrUnauthorized
	}
	return nil
}
