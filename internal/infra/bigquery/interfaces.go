// Package bigquery reads ledger transactions from a BigQuery warehouse.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// TransactionRepository implements stats.TransactionReader over BigQuery.
// It holds a shared client to avoid creating a new connection per read.
type TransactionRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewTransactionRepository creates a repository for projectID. An empty
// datasetID selects "finance".
func NewTransactionRepository(ctx context.Context, projectID, datasetID string) (*TransactionRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewTransactionRepository: project id is required")
	}
	if datasetID == "" {
		datasetID = defaultDatasetID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRepository: creating client: %w", err)
	}
	return &TransactionRepository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *TransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ReadTransactions returns every transaction of userID, newest first.
func (r *TransactionRepository) ReadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := QueryUserTransactionsWithClient(ctx, r.client, r.projectID, r.datasetID, userID)
	if err != nil {
		return nil, err
	}
	return rowsToDomain(rows), nil
}
