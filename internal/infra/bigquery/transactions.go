package bigquery

import (
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// TransactionRow is the subset of the warehouse transactions table the
// assistant reads.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // NULLABLE

	TransactionDate civil.Date            `bigquery:"transaction_date"` // REQUIRED
	BookingDatetime bigquery.NullDateTime `bigquery:"booking_datetime"` // NULLABLE

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC, signed when direction is NULL
	Currency string   `bigquery:"currency"` // REQUIRED

	Direction bigquery.NullString `bigquery:"direction"` // NULLABLE

	RawDescription        string              `bigquery:"raw_description"`        // REQUIRED
	NormalizedDescription bigquery.NullString `bigquery:"normalized_description"` // NULLABLE

	CategoryName    bigquery.NullString `bigquery:"category_name"`    // NULLABLE
	SubcategoryName bigquery.NullString `bigquery:"subcategory_name"` // NULLABLE

	MerchantName      bigquery.NullString `bigquery:"merchant_name"`      // NULLABLE
	ExternalReference bigquery.NullString `bigquery:"external_reference"` // NULLABLE

	IsInternalTransfer bigquery.NullBool `bigquery:"is_internal_transfer"`
}

// ToDomain converts the row into a domain transaction. The booking time is
// used when present, otherwise midnight UTC of the transaction date.
func (r *TransactionRow) ToDomain() domain.Transaction {
	var signed float64
	if r.Amount != nil {
		signed, _ = r.Amount.Float64()
	}

	amount, typ := domain.FromSignedAmount(signed)
	if r.Direction.Valid && strings.TrimSpace(r.Direction.StringVal) != "" {
		typ = directionType(r.Direction.StringVal)
		if signed < 0 {
			amount = -signed
		} else {
			amount = signed
		}
	}

	occurred := r.TransactionDate.In(time.UTC)
	if r.BookingDatetime.Valid {
		occurred = r.BookingDatetime.DateTime.In(time.UTC)
	}

	description := r.RawDescription
	if r.NormalizedDescription.Valid && r.NormalizedDescription.StringVal != "" {
		description = r.NormalizedDescription.StringVal
	}

	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Amount:      amount,
		Type:        typ,
		Category:    r.CategoryName.StringVal,
		Description: description,
		Merchant:    r.MerchantName.StringVal,
		Reference:   r.ExternalReference.StringVal,
		OccurredAt:  occurred,
	}
}

// directionType maps the warehouse IN/OUT labels as well as debit/credit.
func directionType(direction string) domain.TransactionType {
	switch strings.ToUpper(strings.TrimSpace(direction)) {
	case "IN":
		return domain.Credit
	case "OUT":
		return domain.Debit
	default:
		return domain.ParseTransactionType(direction)
	}
}
