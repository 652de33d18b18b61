package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/database"
)

const (
	groupColumns  = `g.id, g.name, g.description, g.is_temporary, g.currency_code, g.created_by, g.created_at`
	memberColumns = `gm.id, gm.group_id, gm.user_id, gm.status, gm.role, gm.joined_at`
)

// Repository handles group data persistence
type Repository struct {
	db   database.DBTX
	pool *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, pool: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row scanner) (*Group, error) {
	group := &Group{}
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.IsTemporary,
		&group.CurrencyCode,
		&group.CreatedBy,
		&group.CreatedAt,
	)
	return group, err
}

func scanMember(row scanner, withUser bool) (*GroupMember, error) {
	member := &GroupMember{}
	dest := []interface{}{
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Status,
		&member.Role,
		&member.JoinedAt,
	}
	if withUser {
		dest = append(dest, &member.Username, &member.Email)
	}
	err := row.Scan(dest...)
	return member, err
}

// CreateWithOwner inserts a group and its creator as a joined admin in one transaction
func (r *Repository) CreateWithOwner(ctx context.Context, creatorID uuid.UUID, req *CreateGroupRequest) (*Group, error) {
	var group *Group
	err := database.WithTx(ctx, r.pool, func(tx *sql.Tx) error {
		query := `
			INSERT INTO groups AS g (id, name, description, is_temporary, currency_code, created_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + groupColumns

		var err error
		group, err = scanGroup(tx.QueryRowContext(ctx, query,
			uuid.New(),
			req.Name,
			req.Description,
			req.IsTemporary,
			req.CurrencyCode,
			creatorID,
		))
		if err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_members (id, group_id, user_id, status, role)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), group.ID, creatorID, MemberStatusJoined, MemberRoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to add group owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups g WHERE g.id = $1`

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// ListByUserID retrieves all groups for a user
func (r *Repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Group, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT g.id)
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `
		SELECT ` + groupColumns + `
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC, g.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, total, nil
}

// Update modifies an existing group
func (r *Repository) Update(ctx context.Context, id uuid.UUID, req *UpdateGroupRequest) (*Group, error) {
	query := `
		UPDATE groups AS g
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description)
		WHERE g.id = $1
		RETURNING ` + groupColumns

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id, req.Name, req.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return group, nil
}

// Delete removes a group from the database
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrGroupNotFound
	}

	return nil
}

// AddMember invites a user to a group
func (r *Repository) AddMember(ctx context.Context, groupID uuid.UUID, req *AddMemberRequest) (*GroupMember, error) {
	query := `
		INSERT INTO group_members AS gm (id, group_id, user_id, status, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + memberColumns

	member, err := scanMember(r.db.QueryRowContext(ctx, query, uuid.New(), groupID, req.UserID, MemberStatusInvited, req.Role), false)
	if err != nil {
		if database.IsUniqueViolation(err, "group_members_group_user_key") {
			return nil, ErrMemberAlreadyExists
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// GetMembers retrieves all members of a group in the order they joined
func (r *Repository) GetMembers(ctx context.Context, groupID uuid.UUID) ([]*GroupMember, error) {
	query := `
		SELECT ` + memberColumns + `, u.username, u.email
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, gm.id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*GroupMember
	for rows.Next() {
		member, err := scanMember(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// GetMember retrieves a specific member from a group
func (r *Repository) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error) {
	query := `
		SELECT ` + memberColumns + `, u.username, u.email
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.user_id = $2
	`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, groupID, userID), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// UpdateMember updates a member's status or role
func (r *Repository) UpdateMember(ctx context.Context, groupID, userID uuid.UUID, req *UpdateMemberRequest) (*GroupMember, error) {
	query := `
		UPDATE group_members AS gm
		SET status = COALESCE($3, status),
		    role = COALESCE($4, role)
		WHERE gm.group_id = $1 AND gm.user_id = $2
		RETURNING ` + memberColumns

	member, err := scanMember(r.db.QueryRowContext(ctx, query, groupID, userID, req.Status, req.Role), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	return member, nil
}

// RemoveMember removes a user from a group
func (r *Repository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// HasOpenSplits reports whether the user still owes or is owed on any unpaid
// split of a shared expense in the group
func (r *Repository) HasOpenSplits(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM expense_splits s
			JOIN expenses e ON e.id = s.expense_id
			WHERE e.group_id = $1
			  AND e.type = 'SHARED'
			  AND NOT s.paid
			  AND s.user_id <> e.creator_id
			  AND (s.user_id = $2 OR e.creator_id = $2)
		)
	`

	var open bool
	if err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&open); err != nil {
		return false, fmt.Errorf("failed to check open splits: %w", err)
	}
	return open, nil
}
