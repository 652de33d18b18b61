package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the service needs. Statements are idempotent
// and run on startup. Order matters because of foreign keys.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id          UUID PRIMARY KEY,
    username    VARCHAR(50)  NOT NULL,
    email       VARCHAR(255) NOT NULL,
    avatar_url  TEXT,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS groups (
    id             UUID PRIMARY KEY,
    name           VARCHAR(100) NOT NULL,
    description    TEXT,
    is_temporary   BOOLEAN      NOT NULL DEFAULT FALSE,
    currency_code  CHAR(3)      NOT NULL,
    created_by     UUID         NOT NULL REFERENCES users(id),
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS group_members (
    id         UUID PRIMARY KEY,
    group_id   UUID        NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    user_id    UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status     VARCHAR(10) NOT NULL CHECK (status IN ('INVITED', 'JOINED')),
    role       VARCHAR(10) NOT NULL CHECK (role IN ('ADMIN', 'MEMBER')),
    joined_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT group_members_group_user_key UNIQUE (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id             UUID PRIMARY KEY,
    group_id       UUID          NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    creator_id     UUID          NOT NULL REFERENCES users(id),
    description    TEXT          NOT NULL,
    amount         NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
    currency_code  CHAR(3)       NOT NULL,
    type           VARCHAR(10)   NOT NULL CHECK (type IN ('SHARED', 'PERSONAL')),
    split_type     VARCHAR(10)   NOT NULL CHECK (split_type IN ('EQUAL', 'SHARES', 'PERCENT', 'EXACT')),
    settled        BOOLEAN       NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id    UUID          NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    user_id       UUID          NOT NULL REFERENCES users(id),
    position      INTEGER       NOT NULL,
    share         DOUBLE PRECISION NOT NULL DEFAULT 0,
    percent       DOUBLE PRECISION NOT NULL DEFAULT 0,
    exact_amount  NUMERIC(12,2) NOT NULL CHECK (exact_amount >= 0),
    paid          BOOLEAN       NOT NULL DEFAULT FALSE,
    paid_at       TIMESTAMPTZ,
    PRIMARY KEY (expense_id, user_id)
);

CREATE TABLE IF NOT EXISTS settlement_batches (
    id               UUID PRIMARY KEY,
    group_id         UUID         NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    kind             VARCHAR(10)  NOT NULL CHECK (kind IN ('PAIR', 'ALL')),
    idempotency_key  VARCHAR(100) NOT NULL,
    created_by       UUID         NOT NULL REFERENCES users(id),
    counterparty_id  UUID         REFERENCES users(id),
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    CONSTRAINT settlement_batches_idempotency_key_key UNIQUE (group_id, idempotency_key)
);

ALTER TABLE settlement_batches ADD COLUMN IF NOT EXISTS counterparty_id UUID REFERENCES users(id);

CREATE TABLE IF NOT EXISTS settlements (
    id             UUID PRIMARY KEY,
    batch_id       UUID          NOT NULL REFERENCES settlement_batches(id) ON DELETE CASCADE,
    group_id       UUID          NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    payer_id       UUID          NOT NULL REFERENCES users(id),
    receiver_id    UUID          NOT NULL REFERENCES users(id),
    amount         NUMERIC(12,2) NOT NULL CHECK (amount > 0),
    currency_code  CHAR(3)       NOT NULL,
    created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
    id                   UUID PRIMARY KEY,
    recipient_id         UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    message              TEXT        NOT NULL,
    is_read              BOOLEAN     NOT NULL DEFAULT FALSE,
    related_entity_type  VARCHAR(20),
    related_entity_id    UUID,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);
CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_expenses_unsettled ON expenses(group_id) WHERE settled = FALSE;
CREATE INDEX IF NOT EXISTS idx_expense_splits_user_id ON expense_splits(user_id);
CREATE INDEX IF NOT EXISTS idx_settlements_batch_id ON settlements(batch_id);
CREATE INDEX IF NOT EXISTS idx_settlement_batches_group_id ON settlement_batches(group_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at DESC);
`

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
