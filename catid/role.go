package catid

import (
	"fmt"
	"strconv"
)

// RoleID is a Catalyst user role index. The canonical set is statically
// defined; any other value parses but reports IsKnown() == false.
type RoleID uint8

const (
	// RoleVoter is the primary role, used for voting and commenting.
	RoleVoter RoleID = 0
	// RoleDelegatedRepresentative votes on behalf of delegators.
	RoleDelegatedRepresentative RoleID = 1
	// RoleProposer creates, collaborates on, and submits proposals.
	RoleProposer RoleID = 3

	RoleRootCA        RoleID = 100
	RoleBrandCA       RoleID = 101
	RoleCampaignCA    RoleID = 102
	RoleCategoryCA    RoleID = 103
	RoleRootAdmin     RoleID = 104
	RoleBrandAdmin    RoleID = 105
	RoleCampaignAdmin RoleID = 106
	RoleCategoryAdmin RoleID = 107
	RoleModerator     RoleID = 108
)

// IsKnown reports whether r is one of the canonical role indexes.
func (r RoleID) IsKnown() bool {
	switch r {
	case RoleVoter, RoleDelegatedRepresentative, RoleProposer:
		return true
	}
	return r >= RoleRootCA && r <= RoleModerator
}

// IsDefault reports whether r is the default role (voter).
func (r RoleID) IsDefault() bool { return r == RoleVoter }

func (r RoleID) String() string { return strconv.Itoa(int(r)) }

// ParseRoleID parses the decimal role index form used in URIs.
func ParseRoleID(s string) (RoleID, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parsing role index %q: %w", s, err)
	}
	return RoleID(n), nil
}
