package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestTransactionRow_ToDomain(t *testing.T) {
	date := civil.Date{Year: 2025, Month: time.May, Day: 4}

	tests := []struct {
		name       string
		row        TransactionRow
		wantAmount float64
		wantType   domain.TransactionType
		wantDesc   string
		wantTime   time.Time
	}{
		{
			name:       "signed outflow without direction",
			row:        TransactionRow{Amount: big.NewRat(-2550, 100), RawDescription: "CARD PAYMENT TESCO"},
			wantAmount: 25.5,
			wantType:   domain.Debit,
			wantDesc:   "CARD PAYMENT TESCO",
			wantTime:   time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "direction IN wins over sign",
			row: TransactionRow{
				Amount:                big.NewRat(-100, 1),
				Direction:             bigquery.NullString{StringVal: "IN", Valid: true},
				RawDescription:        "REFUND",
				NormalizedDescription: bigquery.NullString{StringVal: "Refund from shop", Valid: true},
			},
			wantAmount: 100,
			wantType:   domain.Credit,
			wantDesc:   "Refund from shop",
			wantTime:   time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "booking time preferred",
			row: TransactionRow{
				Amount:    big.NewRat(40, 1),
				Direction: bigquery.NullString{StringVal: "OUT", Valid: true},
				BookingDatetime: bigquery.NullDateTime{
					DateTime: civil.DateTime{Date: date, Time: civil.Time{Hour: 18, Minute: 45}},
					Valid:    true,
				},
			},
			wantAmount: 40,
			wantType:   domain.Debit,
			wantTime:   time.Date(2025, time.May, 4, 18, 45, 0, 0, time.UTC),
		},
		{
			name:     "missing amount",
			row:      TransactionRow{},
			wantType: domain.Credit,
			wantTime: time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.TransactionID = "tx-1"
			tt.row.TransactionDate = date
			tt.row.CategoryName = bigquery.NullString{StringVal: "Groceries", Valid: true}

			got := tt.row.ToDomain()
			if got.Amount != tt.wantAmount || got.Type != tt.wantType {
				t.Errorf("amount/type = %v %v, want %v %v", got.Amount, got.Type, tt.wantAmount, tt.wantType)
			}
			if got.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", got.Description, tt.wantDesc)
			}
			if !got.OccurredAt.Equal(tt.wantTime) {
				t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, tt.wantTime)
			}
			if got.ID != "tx-1" || got.Category != "Groceries" {
				t.Errorf("id/category = %q %q", got.ID, got.Category)
			}
		})
	}
}

func TestRowsToDomain(t *testing.T) {
	rows := []*TransactionRow{
		{TransactionID: "a", Amount: big.NewRat(-1, 1)},
		{TransactionID: "b", Amount: big.NewRat(2, 1)},
	}
	got := rowsToDomain(rows)
	if len(got) != 2 || got[0].ID != "a" || got[1].Type != domain.Credit {
		t.Errorf("rowsToDomain() = %+v", got)
	}
}
