package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fkhayef/mixi/internal/database"
)

const expenseColumns = `e.id, e.group_id, e.creator_id, e.description, e.amount, e.currency_code,
	e.type, e.split_type, e.settled, e.created_at, u.username`

// Repository handles expense and split data persistence
type Repository struct {
	db   database.DBTX
	pool *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, pool: db}
}

// WithQuerier returns a repository that runs every statement on q, usually
// a transaction owned by the caller
func (r *Repository) WithQuerier(q database.DBTX) *Repository {
	return &Repository{db: q}
}

// inTx runs fn in a new transaction, or directly when the repository is
// already bound to one
func (r *Repository) inTx(ctx context.Context, fn func(q *Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return database.WithTx(ctx, r.pool, func(tx *sql.Tx) error {
		return fn(r.WithQuerier(tx))
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row scanner) (*Expense, error) {
	e := &Expense{}
	err := row.Scan(
		&e.ID,
		&e.GroupID,
		&e.CreatorID,
		&e.Description,
		&e.Amount,
		&e.CurrencyCode,
		&e.Type,
		&e.SplitType,
		&e.Settled,
		&e.CreatedAt,
		&e.CreatorUsername,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts an expense together with its splits in one transaction
func (r *Repository) Create(ctx context.Context, e *Expense) error {
	return r.inTx(ctx, func(q *Repository) error {
		query := `
			INSERT INTO expenses (id, group_id, creator_id, description, amount, currency_code, type, split_type, settled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`
		err := q.db.QueryRowContext(ctx, query,
			e.ID,
			e.GroupID,
			e.CreatorID,
			e.Description,
			e.Amount,
			e.CurrencyCode,
			e.Type,
			e.SplitType,
			e.Settled,
		).Scan(&e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		splitQuery := `
			INSERT INTO expense_splits (expense_id, user_id, position, share, percent, exact_amount, paid, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		for i, s := range e.Splits {
			if _, err := q.db.ExecContext(ctx, splitQuery,
				e.ID, s.UserID, i, s.Share, s.Percent, s.ExactAmount, s.Paid, s.PaidAt,
			); err != nil {
				return fmt.Errorf("failed to create split: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves an expense with its splits
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN users u ON e.creator_id = u.id
		WHERE e.id = $1
	`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := r.loadSplits(ctx, []*Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByGroup retrieves a page of a group's expenses, newest first
func (r *Repository) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Expense, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM expenses WHERE group_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN users u ON e.creator_id = u.id
		WHERE e.group_id = $1
		ORDER BY e.created_at DESC, e.id
		LIMIT $2 OFFSET $3
	`

	expenses, err := r.queryExpenses(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// ListAllByGroup retrieves every expense of a group in creation order
func (r *Repository) ListAllByGroup(ctx context.Context, groupID uuid.UUID) ([]*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN users u ON e.creator_id = u.id
		WHERE e.group_id = $1
		ORDER BY e.created_at, e.id
	`
	return r.queryExpenses(ctx, query, groupID)
}

// ListUnsettledShared retrieves the group's open shared expenses. With lock
// set the expense rows stay locked until the surrounding transaction ends.
func (r *Repository) ListUnsettledShared(ctx context.Context, groupID uuid.UUID, lock bool) ([]*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN users u ON e.creator_id = u.id
		WHERE e.group_id = $1 AND e.type = 'SHARED' AND NOT e.settled
		ORDER BY e.created_at, e.id
	`
	if lock {
		query += ` FOR UPDATE OF e`
	}
	return r.queryExpenses(ctx, query, groupID)
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...interface{}) ([]*Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	if err := r.loadSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// loadSplits fills Splits for every expense with a single query
func (r *Repository) loadSplits(ctx context.Context, expenses []*Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	ids := make([]string, len(expenses))
	byID := make(map[uuid.UUID]*Expense, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID.String()
		byID[e.ID] = e
		e.Splits = nil
	}

	query := `
		SELECT s.expense_id, s.user_id, s.share, s.percent, s.exact_amount, s.paid, s.paid_at, u.username
		FROM expense_splits s
		JOIN users u ON s.user_id = u.id
		WHERE s.expense_id = ANY($1::uuid[])
		ORDER BY s.expense_id, s.position
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &Split{}
		var paidAt sql.NullTime
		if err := rows.Scan(
			&s.ExpenseID,
			&s.UserID,
			&s.Share,
			&s.Percent,
			&s.ExactAmount,
			&s.Paid,
			&paidAt,
			&s.Username,
		); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if paidAt.Valid {
			s.PaidAt = &paidAt.Time
		}
		if e, ok := byID[s.ExpenseID]; ok {
			e.Splits = append(e.Splits, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	return nil
}

// MarkSplitsPaid flags every referenced split as paid and returns how many
// rows changed. Splits that are already paid are left alone.
func (r *Repository) MarkSplitsPaid(ctx context.Context, refs []SplitRef, at time.Time) (int64, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	expenseIDs := make([]string, len(refs))
	userIDs := make([]string, len(refs))
	for i, ref := range refs {
		expenseIDs[i] = ref.ExpenseID.String()
		userIDs[i] = ref.UserID.String()
	}

	query := `
		UPDATE expense_splits s
		SET paid = TRUE, paid_at = $3
		FROM unnest($1::uuid[], $2::uuid[]) AS ref(expense_id, user_id)
		WHERE s.expense_id = ref.expense_id
		  AND s.user_id = ref.user_id
		  AND NOT s.paid
	`

	result, err := r.db.ExecContext(ctx, query, pq.Array(expenseIDs), pq.Array(userIDs), at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark splits paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// RefreshSettled recomputes the settled flag of the given expenses from
// their splits
func (r *Repository) RefreshSettled(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	query := `
		UPDATE expenses e
		SET settled = NOT EXISTS (
			SELECT 1 FROM expense_splits s WHERE s.expense_id = e.id AND NOT s.paid
		)
		WHERE e.id = ANY($1::uuid[])
	`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return fmt.Errorf("failed to refresh settled flags: %w", err)
	}
	return nil
}

// MarkSplitPaid pays one split and refreshes the expense's settled flag in
// the same transaction, returning the updated expense
func (r *Repository) MarkSplitPaid(ctx context.Context, expenseID, userID uuid.UUID, at time.Time) (*Expense, error) {
	var updated *Expense
	err := r.inTx(ctx, func(q *Repository) error {
		var locked uuid.UUID
		err := q.db.QueryRowContext(ctx, `SELECT id FROM expenses WHERE id = $1 FOR UPDATE`, expenseID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrExpenseNotFound
			}
			return fmt.Errorf("failed to lock expense: %w", err)
		}

		changed, err := q.MarkSplitsPaid(ctx, []SplitRef{{ExpenseID: expenseID, UserID: userID}}, at)
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrAlreadyPaid
		}

		if err := q.RefreshSettled(ctx, []uuid.UUID{expenseID}); err != nil {
			return err
		}

		updated, err = q.GetByID(ctx, expenseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an expense; its splits go with it
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrExpenseNotFound
	}

	return nil
}
