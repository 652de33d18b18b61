package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fkhayef/mixi/internal/database"
	"github.com/fkhayef/mixi/internal/expense"
)

const (
	idempotencyConstraint = "settlement_batches_idempotency_key_key"
	batchColumns          = `id, group_id, kind, idempotency_key, created_by, counterparty_id, created_at`
)

var errKeyTaken = errors.New("idempotency key already used")

// Plan turns the group's locked open expenses into a batch. It marks the
// splits it settles paid on the expenses and returns their references.
type Plan func(expenses []*expense.Expense) (*Batch, []expense.SplitRef, error)

// Repository handles settlement data persistence
type Repository struct {
	db       database.DBTX
	pool     *sql.DB
	expenses *expense.Repository
}

// NewRepository creates a new settlement repository
func NewRepository(db *sql.DB, expenses *expense.Repository) *Repository {
	return &Repository{db: db, pool: db, expenses: expenses}
}

// ApplyBatch runs plan against the group's open shared expenses and stores
// the outcome in one transaction: split updates, settled flags, the batch
// and its payments commit together or not at all. A key that was already
// used returns the stored batch with replayed set instead.
func (r *Repository) ApplyBatch(ctx context.Context, groupID uuid.UUID, key string, plan Plan) (*Batch, bool, error) {
	var applied *Batch
	var replayed bool

	err := database.WithTx(ctx, r.pool, func(tx *sql.Tx) error {
		expenses := r.expenses.WithQuerier(tx)

		open, err := expenses.ListUnsettledShared(ctx, groupID, true)
		if err != nil {
			return err
		}

		// Checked after locking so a concurrent retry waits for the first
		// request and then sees its batch.
		existing, err := r.getBatchByKey(ctx, tx, groupID, key)
		if err != nil {
			return err
		}
		if existing != nil {
			applied, replayed = existing, true
			return nil
		}

		batch, refs, err := plan(open)
		if err != nil {
			return err
		}

		if _, err := expenses.MarkSplitsPaid(ctx, refs, batch.CreatedAt); err != nil {
			return err
		}
		if err := expenses.RefreshSettled(ctx, touchedExpenses(refs)); err != nil {
			return err
		}

		if err := insertBatch(ctx, tx, batch); err != nil {
			return err
		}

		applied = batch
		return nil
	})
	if errors.Is(err, errKeyTaken) {
		existing, err := r.GetBatchByKey(ctx, groupID, key)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("batch for key %q vanished", key)
		}
		return existing, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	return applied, replayed, nil
}

func insertBatch(ctx context.Context, q database.DBTX, b *Batch) error {
	query := `
		INSERT INTO settlement_batches (id, group_id, kind, idempotency_key, created_by, counterparty_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	counterparty := uuid.NullUUID{}
	if b.CounterpartyID != nil {
		counterparty = uuid.NullUUID{UUID: *b.CounterpartyID, Valid: true}
	}
	if _, err := q.ExecContext(ctx, query, b.ID, b.GroupID, b.Kind, b.IdempotencyKey, b.CreatedBy, counterparty, b.CreatedAt); err != nil {
		if database.IsUniqueViolation(err, idempotencyConstraint) {
			return errKeyTaken
		}
		return fmt.Errorf("failed to create settlement batch: %w", err)
	}

	settlementQuery := `
		INSERT INTO settlements (id, batch_id, group_id, payer_id, receiver_id, amount, currency_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, s := range b.Settlements {
		if _, err := q.ExecContext(ctx, settlementQuery,
			s.ID, b.ID, b.GroupID, s.PayerID, s.ReceiverID, s.Amount, s.CurrencyCode, s.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create settlement: %w", err)
		}
	}
	return nil
}

// GetBatchByKey retrieves the batch stored under an idempotency key
func (r *Repository) GetBatchByKey(ctx context.Context, groupID uuid.UUID, key string) (*Batch, error) {
	return r.getBatchByKey(ctx, r.db, groupID, key)
}

func (r *Repository) getBatchByKey(ctx context.Context, q database.DBTX, groupID uuid.UUID, key string) (*Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM settlement_batches
		WHERE group_id = $1 AND idempotency_key = $2
	`

	b, err := scanBatch(q.QueryRowContext(ctx, query, groupID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement batch: %w", err)
	}

	if err := loadSettlements(ctx, q, []*Batch{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBatches retrieves a page of the group's settlement history, newest first
func (r *Repository) ListBatches(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Batch, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM settlement_batches WHERE group_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlement batches: %w", err)
	}

	query := `
		SELECT ` + batchColumns + `
		FROM settlement_batches
		WHERE group_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlement batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list settlement batches: %w", err)
	}

	if err := loadSettlements(ctx, r.db, batches); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row scanner) (*Batch, error) {
	b := &Batch{}
	var counterparty uuid.NullUUID
	if err := row.Scan(&b.ID, &b.GroupID, &b.Kind, &b.IdempotencyKey, &b.CreatedBy, &counterparty, &b.CreatedAt); err != nil {
		return nil, err
	}
	if counterparty.Valid {
		b.CounterpartyID = &counterparty.UUID
	}
	return b, nil
}

func loadSettlements(ctx context.Context, q database.DBTX, batches []*Batch) error {
	if len(batches) == 0 {
		return nil
	}

	ids := make([]string, len(batches))
	byID := make(map[uuid.UUID]*Batch, len(batches))
	for i, b := range batches {
		ids[i] = b.ID.String()
		byID[b.ID] = b
		b.Settlements = []*Settlement{}
	}

	query := `
		SELECT s.id, s.batch_id, s.group_id, s.payer_id, s.receiver_id, s.amount, s.currency_code, s.created_at,
		       p.username AS payer_username, recv.username AS receiver_username
		FROM settlements s
		JOIN users p ON s.payer_id = p.id
		JOIN users recv ON s.receiver_id = recv.id
		WHERE s.batch_id = ANY($1::uuid[])
		ORDER BY s.amount DESC, s.id
	`

	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get settlements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &Settlement{}
		if err := rows.Scan(
			&s.ID,
			&s.BatchID,
			&s.GroupID,
			&s.PayerID,
			&s.ReceiverID,
			&s.Amount,
			&s.CurrencyCode,
			&s.CreatedAt,
			&s.PayerUsername,
			&s.ReceiverUsername,
		); err != nil {
			return fmt.Errorf("failed to scan settlement: %w", err)
		}
		if b, ok := byID[s.BatchID]; ok {
			b.Settlements = append(b.Settlements, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to get settlements: %w", err)
	}
	return nil
}
