package domain

import (
	"strings"
	"time"
)

// TransactionType is the signed direction of a transaction.
type TransactionType string

const (
	// Debit is money leaving the user's account.
	Debit TransactionType = "debit"
	// Credit is money entering the user's account.
	Credit TransactionType = "credit"
)

// Transaction is one normalized, immutable ledger entry owned by a user.
// Amount is always non-negative; the direction lives in Type.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"transaction_type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"date"`

	Merchant  string `json:"merchant,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// CategoryOrOther returns the category label, or "Other" when it is blank.
func (t Transaction) CategoryOrOther() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return "Other"
}

// ParseTransactionType maps free-form direction labels onto Debit or Credit.
// Unknown labels default to Debit, which is how untyped rows were treated
// historically.
func ParseTransactionType(s string) TransactionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "cr", "in", "income", "deposit":
		return Credit
	default:
		return Debit
	}
}

// FromSignedAmount splits a signed amount (IN = positive, OUT = negative)
// into a non-negative amount and its direction.
func FromSignedAmount(amount float64) (float64, TransactionType) {
	if amount < 0 {
		return -amount, Debit
	}
	return amount, Credit
}
