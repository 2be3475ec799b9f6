package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const (
	defaultDatasetID  = "finance"
	transactionsTable = "transactions"
)

// QueryUserTransactionsWithClient reads every transaction of userID, newest
// first, skipping internal transfers between the user's own accounts.
func QueryUserTransactionsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID, userID string) ([]*TransactionRow, error) {
	table := fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, transactionsTable)
	q := client.Query(`
		SELECT
			t.transaction_id,
			t.user_id,
			t.transaction_date,
			t.booking_datetime,
			t.amount,
			t.currency,
			t.direction,
			t.raw_description,
			t.normalized_description,
			t.category_name,
			t.subcategory_name,
			t.merchant_name,
			t.external_reference,
			t.is_internal_transfer
		FROM ` + table + ` t
		WHERE t.user_id = @user_id
		  AND COALESCE(t.is_internal_transfer, FALSE) = FALSE
		ORDER BY t.transaction_date DESC, t.booking_datetime DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryUserTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryUserTransactions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

func rowsToDomain(rows []*TransactionRow) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain())
	}
	return out
}
