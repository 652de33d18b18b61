package group

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus represents the status of a group member
type MemberStatus string

const (
	MemberStatusInvited MemberStatus = "INVITED"
	MemberStatusJoined  MemberStatus = "JOINED"
)

// MemberRole represents the role of a group member
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Group represents a group in the system. Every expense in a group uses
// the group's currency.
type Group struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	IsTemporary  bool      `json:"is_temporary"`
	CurrencyCode string    `json:"currency_code"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// GroupMember represents a user's membership in a group
type GroupMember struct {
	ID       uuid.UUID    `json:"id"`
	GroupID  uuid.UUID    `json:"group_id"`
	UserID   uuid.UUID    `json:"user_id"`
	Status   MemberStatus `json:"status"`
	Role     MemberRole   `json:"role"`
	JoinedAt time.Time    `json:"joined_at"`

	// Populated from JOIN
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// IsAdmin reports whether the member administers the group
func (m *GroupMember) IsAdmin() bool {
	return m != nil && m.Role == MemberRoleAdmin
}

// HasJoined reports whether the member accepted the invitation
func (m *GroupMember) HasJoined() bool {
	return m != nil && m.Status == MemberStatusJoined
}
