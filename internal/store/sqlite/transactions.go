package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// InsertTransactions stores a batch of transactions in one database
// transaction. Rows without an id get a fresh one.
func (s *Store) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("InsertTransactions: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, category, description, merchant, reference, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("InsertTransactions: preparing: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		id := t.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, t.UserID, t.Amount, string(t.Type), t.Category,
			t.Description, t.Merchant, t.Reference, formatTime(t.OccurredAt)); err != nil {
			return fmt.Errorf("InsertTransactions: inserting %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("InsertTransactions: commit: %w", err)
	}
	return nil
}

// ReadTransactions returns every transaction of the user, newest first.
func (s *Store) ReadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, category, description, merchant, reference, occurred_at
		FROM transactions WHERE user_id = ?
		ORDER BY occurred_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			t               domain.Transaction
			typ, occurredAt string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Category, &t.Description,
			&t.Merchant, &t.Reference, &occurredAt); err != nil {
			return nil, fmt.Errorf("ReadTransactions: scanning: %w", err)
		}
		t.Type = domain.ParseTransactionType(typ)
		t.OccurredAt = parseTime(occurredAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadTransactions: iterating: %w", err)
	}
	return out, nil
}
