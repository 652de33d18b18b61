package group

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidName     = errors.New("group name must be between 1 and 100 characters")
	ErrInvalidCurrency = errors.New("currency code must be 3 letters")
	ErrInvalidRole     = errors.New("role must be ADMIN or MEMBER")
	ErrInvalidStatus   = errors.New("status must be INVITED or JOINED")
	ErrMissingUserID   = errors.New("user_id is required")
)

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name         string  `json:"name" example:"Riyadh trip"`
	Description  *string `json:"description,omitempty"`
	IsTemporary  bool    `json:"is_temporary"`
	CurrencyCode string  `json:"currency_code,omitempty" example:"SAR"`
}

// Validate normalizes and checks the request
func (r *CreateGroupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if err := validateName(r.Name); err != nil {
		return err
	}
	r.CurrencyCode = strings.ToUpper(strings.TrimSpace(r.CurrencyCode))
	if r.CurrencyCode != "" && len(r.CurrencyCode) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate checks the optional fields that are present
func (r *UpdateGroupRequest) Validate() error {
	if r.Name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.Name)
	r.Name = &trimmed
	return validateName(trimmed)
}

func validateName(name string) error {
	if n := len([]rune(name)); n < 1 || n > 100 {
		return ErrInvalidName
	}
	return nil
}

// AddMemberRequest represents the request to add a member to a group
type AddMemberRequest struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   MemberRole `json:"role,omitempty"`
}

// Validate fills the default role and checks the request
func (r *AddMemberRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrMissingUserID
	}
	if r.Role == "" {
		r.Role = MemberRoleMember
	}
	if r.Role != MemberRoleAdmin && r.Role != MemberRoleMember {
		return ErrInvalidRole
	}
	return nil
}

// UpdateMemberRequest represents the request to update a member's status or role
type UpdateMemberRequest struct {
	Status *MemberStatus `json:"status,omitempty"`
	Role   *MemberRole   `json:"role,omitempty"`
}

// Validate checks the optional fields that are present
func (r *UpdateMemberRequest) Validate() error {
	if r.Status != nil && *r.Status != MemberStatusInvited && *r.Status != MemberStatusJoined {
		return ErrInvalidStatus
	}
	if r.Role != nil && *r.Role != MemberRoleAdmin && *r.Role != MemberRoleMember {
		return ErrInvalidRole
	}
	return nil
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Description  *string           `json:"description,omitempty"`
	IsTemporary  bool              `json:"is_temporary"`
	CurrencyCode string            `json:"currency_code"`
	CreatedBy    uuid.UUID         `json:"created_by"`
	CreatedAt    string            `json:"created_at"`
	Members      []*MemberResponse `json:"members,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	ID       uuid.UUID    `json:"id"`
	UserID   uuid.UUID    `json:"user_id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Status   MemberStatus `json:"status"`
	Role     MemberRole   `json:"role"`
	JoinedAt string       `json:"joined_at"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		IsTemporary:  g.IsTemporary,
		CurrencyCode: g.CurrencyCode,
		CreatedBy:    g.CreatedBy,
		CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToResponse converts a GroupMember model to a MemberResponse DTO
func (m *GroupMember) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:       m.ID,
		UserID:   m.UserID,
		Username: m.Username,
		Email:    m.Email,
		Status:   m.Status,
		Role:     m.Role,
		JoinedAt: m.JoinedAt.UTC().Format(time.RFC3339),
	}
}
