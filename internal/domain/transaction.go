package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes the direction of a financial movement.
type TransactionType string

const (
	TransactionExpense TransactionType = "EXPENSE"
	TransactionIncome  TransactionType = "INCOME"
	TransactionDebt    TransactionType = "DEBT"
)

// TransactionStatus tracks progress through the one-way verification state
// machine: PROVISIONAL -> VERIFIED | VERIFIED_MANUAL. Both VERIFIED and
// VERIFIED_MANUAL are terminal; no further transitions are legal.
type TransactionStatus string

const (
	StatusProvisional    TransactionStatus = "PROVISIONAL"
	StatusVerified       TransactionStatus = "VERIFIED"
	StatusVerifiedManual TransactionStatus = "VERIFIED_MANUAL"
)

// Terminal reports whether s is one of the states a Transaction cannot
// leave.
func (s TransactionStatus) Terminal() bool {
	return s == StatusVerified || s == StatusVerifiedManual
}

// Transaction is an atomic financial movement belonging to exactly one
// owner. Amount uses decimal.Decimal rather than float64 so that sums
// produced by the ledger are exact for the zero-hallucination guarantee on
// numeric responses.
type Transaction struct {
	ID       string            `json:"id"`
	OwnerID  string            `json:"owner_id"`
	Type     TransactionType   `json:"type"`
	Amount   decimal.Decimal   `json:"amount"`
	Concept  string            `json:"concept"`
	Category *Category         `json:"category,omitempty"`
	Merchant *string           `json:"merchant,omitempty"`
	Status   TransactionStatus `json:"status"`

	// TransactionDate is a calendar date, not a timestamp: the hour a
	// receipt was issued is never semantically meaningful here.
	TransactionDate *civil.Date `json:"transaction_date,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// Clone returns a deep copy safe to hand to a caller outside the store's
// lock.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Category != nil {
		c := *t.Category
		clone.Category = &c
	}
	if t.Merchant != nil {
		m := *t.Merchant
		clone.Merchant = &m
	}
	if t.TransactionDate != nil {
		d := *t.TransactionDate
		clone.TransactionDate = &d
	}
	if t.VerifiedAt != nil {
		v := *t.VerifiedAt
		clone.VerifiedAt = &v
	}
	return &clone
}

// Valid checks the invariants that must hold for every persisted
// Transaction regardless of status.
func (t *Transaction) Valid() error {
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if t.Concept == "" {
		return ErrInvalidConcept
	}
	if t.OwnerID == "" {
		return ErrUserNotFound
	}
	return nil
}
