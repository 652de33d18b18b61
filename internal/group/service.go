package group

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("user is already a member of this group")
	ErrNotAuthorized       = errors.New("not authorized to perform this action")
	ErrNotMember           = errors.New("you are not a member of this group")
	ErrOpenBalance         = errors.New("member still has unpaid splits in this group")
)

// Store is the persistence the group service needs
type Store interface {
	CreateWithOwner(ctx context.Context, creatorID uuid.UUID, req *CreateGroupRequest) (*Group, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Group, int, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateGroupRequest) (*Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, groupID uuid.UUID, req *AddMemberRequest) (*GroupMember, error)
	GetMembers(ctx context.Context, groupID uuid.UUID) ([]*GroupMember, error)
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error)
	UpdateMember(ctx context.Context, groupID, userID uuid.UUID, req *UpdateMemberRequest) (*GroupMember, error)
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	HasOpenSplits(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
}

// Notifier delivers invitation notices
type Notifier interface {
	NotifyGroupInvite(ctx context.Context, recipientID uuid.UUID, groupName string, groupID uuid.UUID)
}

// Service handles group business logic
type Service struct {
	repo            Store
	notifier        Notifier
	defaultCurrency string
}

// NewService creates a new group service
func NewService(repo Store, notifier Notifier, defaultCurrency string) *Service {
	return &Service{
		repo:            repo,
		notifier:        notifier,
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

// Create creates a new group and adds the creator as a joined admin
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, req *CreateGroupRequest) (*Group, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = s.defaultCurrency
	}

	return s.repo.CreateWithOwner(ctx, creatorID, req)
}

// GetByID retrieves a group by its ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// RequireMember returns the caller's membership, failing when the group is
// missing or the caller does not belong to it
func (s *Service) RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	member, err := s.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotMember
	}
	return member, nil
}

// GetByIDWithMembers retrieves a group with all its members for one of its members
func (s *Service) GetByIDWithMembers(ctx context.Context, id, callerID uuid.UUID) (*Group, []*GroupMember, error) {
	if _, err := s.RequireMember(ctx, id, callerID); err != nil {
		return nil, nil, err
	}

	group, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.repo.GetMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return group, members, nil
}

// ListByUserID retrieves all groups for a user
func (s *Service) ListByUserID(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*Group, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByUserID(ctx, userID, perPage, offset)
}

// Update modifies an existing group. Admins only.
func (s *Service) Update(ctx context.Context, id, callerID uuid.UUID, req *UpdateGroupRequest) (*Group, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, id, callerID); err != nil {
		return nil, err
	}

	group, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// Delete removes a group. Admins only.
func (s *Service) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if err := s.requireAdmin(ctx, id, callerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddMember invites a user to a group. Any joined member may invite; only
// admins may invite another admin.
func (s *Service) AddMember(ctx context.Context, groupID, callerID uuid.UUID, req *AddMemberRequest) (*GroupMember, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	caller, err := s.RequireMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.HasJoined() || (req.Role == MemberRoleAdmin && !caller.IsAdmin()) {
		return nil, ErrNotAuthorized
	}

	existing, err := s.repo.GetMember(ctx, groupID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMemberAlreadyExists
	}

	member, err := s.repo.AddMember(ctx, groupID, req)
	if err != nil {
		return nil, err
	}

	if group, err := s.GetByID(ctx, groupID); err == nil && s.notifier != nil {
		s.notifier.NotifyGroupInvite(ctx, req.UserID, group.Name, group.ID)
	}

	return member, nil
}

// GetMembers retrieves all members of a group
func (s *Service) GetMembers(ctx context.Context, groupID uuid.UUID) ([]*GroupMember, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.GetMembers(ctx, groupID)
}

// UpdateMember updates a member's status or role. Admins only.
func (s *Service) UpdateMember(ctx context.Context, groupID, callerID, userID uuid.UUID, req *UpdateMemberRequest) (*GroupMember, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	member, err := s.repo.UpdateMember(ctx, groupID, userID, req)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// RemoveMember removes a user from a group. Admins may remove anyone and
// members may leave, but never while they still owe or are owed money.
func (s *Service) RemoveMember(ctx context.Context, groupID, callerID, userID uuid.UUID) error {
	caller, err := s.RequireMember(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if callerID != userID && !caller.IsAdmin() {
		return ErrNotAuthorized
	}

	open, err := s.repo.HasOpenSplits(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if open {
		return ErrOpenBalance
	}

	return s.repo.RemoveMember(ctx, groupID, userID)
}

// AcceptInvitation allows a user to accept their group invitation
func (s *Service) AcceptInvitation(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error) {
	member, err := s.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.HasJoined() {
		return member, nil
	}

	return s.repo.UpdateMember(ctx, groupID, userID, &UpdateMemberRequest{
		Status: statusPtr(MemberStatusJoined),
	})
}

func (s *Service) requireAdmin(ctx context.Context, groupID, userID uuid.UUID) error {
	member, err := s.RequireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member.IsAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

// Helper function to get a pointer to a MemberStatus
func statusPtr(s MemberStatus) *MemberStatus {
	return &s
}
