package postgres

import (
	"testing"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestTransactionRow_ToDomain(t *testing.T) {
	at := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	tests := []struct {
		name       string
		row        transactionRow
		wantAmount float64
		wantType   domain.TransactionType
	}{
		{"explicit debit", transactionRow{Amount: 42.5, Direction: "debit"}, 42.5, domain.Debit},
		{"explicit credit", transactionRow{Amount: 100, Direction: "CREDIT"}, 100, domain.Credit},
		{"negative amount with direction", transactionRow{Amount: -7, Direction: "debit"}, 7, domain.Debit},
		{"signed outflow", transactionRow{Amount: -15}, 15, domain.Debit},
		{"signed inflow", transactionRow{Amount: 15, Direction: "  "}, 15, domain.Credit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.ID = "t1"
			tt.row.OccurredAt = at
			got := tt.row.toDomain()
			if got.Amount != tt.wantAmount || got.Type != tt.wantType {
				t.Errorf("toDomain() = %v %v, want %v %v", got.Amount, got.Type, tt.wantAmount, tt.wantType)
			}
			if got.ID != "t1" || got.OccurredAt.Location() != time.UTC || !got.OccurredAt.Equal(at) {
				t.Errorf("toDomain() id/time = %q %v", got.ID, got.OccurredAt)
			}
		})
	}
}
