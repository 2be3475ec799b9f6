// Package postgres reads transactions from a Postgres ledger.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// SchemaSQL creates the ledger table when it does not exist yet.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	amount      NUMERIC(14,2) NOT NULL,
	direction   TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	merchant    TEXT NOT NULL DEFAULT '',
	reference   TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, occurred_at DESC);
`

// transactionRow mirrors one row of the transactions table. Amount may be
// signed in ledgers that do not fill direction.
type transactionRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Amount      float64   `db:"amount"`
	Direction   string    `db:"direction"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	Merchant    string    `db:"merchant"`
	Reference   string    `db:"reference"`
	OccurredAt  time.Time `db:"occurred_at"`
}

// TransactionRepository implements stats.TransactionReader over a pgx pool.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository connects to dsn and verifies the connection.
func NewTransactionRepository(ctx context.Context, dsn string) (*TransactionRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRepository: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("NewTransactionRepository: ping: %w", err)
	}
	return &TransactionRepository{pool: pool}, nil
}

// Close releases the pool.
func (r *TransactionRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// EnsureSchema applies SchemaSQL.
func (r *TransactionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// ReadTransactions returns every transaction of userID, newest first.
func (r *TransactionRepository) ReadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount::float8 AS amount, direction, category, description,
		       merchant, reference, occurred_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: querying: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[transactionRow])
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: collecting rows: %w", err)
	}

	out := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// InsertTransactions writes txs in one batch.
func (r *TransactionRepository) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(`
			INSERT INTO transactions (id, user_id, amount, direction, category, description, merchant, reference, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			t.ID, t.UserID, t.Amount, string(t.Type), t.Category, t.Description, t.Merchant, t.Reference, t.OccurredAt)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("InsertTransactions: %w", err)
	}
	return nil
}

// toDomain normalizes the row. A blank direction falls back to the sign of
// the amount.
func (row transactionRow) toDomain() domain.Transaction {
	amount, typ := row.Amount, domain.ParseTransactionType(row.Direction)
	if strings.TrimSpace(row.Direction) == "" {
		amount, typ = domain.FromSignedAmount(row.Amount)
	} else if amount < 0 {
		amount = -amount
	}
	return domain.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      amount,
		Type:        typ,
		Category:    row.Category,
		Description: row.Description,
		Merchant:    row.Merchant,
		Reference:   row.Reference,
		OccurredAt:  row.OccurredAt.UTC(),
	}
}
