package bigquery

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/numa-app/numa-core/internal/domain"
)

// transactionRow is the BigQuery row schema for the transactions table,
// following the Null-type and civil.Date conventions of the teacher's
// internal/bigquery/types.go TransactionRow.
type transactionRow struct {
	TransactionID   string             `bigquery:"transaction_id"`
	OwnerID         string             `bigquery:"owner_id"`
	Type            string             `bigquery:"type"`
	Amount          string             `bigquery:"amount"`
	Concept         string             `bigquery:"concept"`
	Category        bigquery.NullString `bigquery:"category"`
	Merchant        bigquery.NullString `bigquery:"merchant"`
	Status          string             `bigquery:"status"`
	TransactionDate bigquery.NullDate  `bigquery:"transaction_date"`
	CreatedAt       time.Time          `bigquery:"created_at"`
	VerifiedAt      bigquery.NullTimestamp `bigquery:"verified_at"`
}

func rowFromTransaction(t *domain.Transaction) *transactionRow {
	row := &transactionRow{
		TransactionID: t.ID,
		OwnerID:       t.OwnerID,
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		Concept:       t.Concept,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
	}
	if t.Category != nil {
		row.Category = bigquery.NullString{StringVal: string(*t.Category), Valid: true}
	}
	if t.Merchant != nil {
		row.Merchant = bigquery.NullString{StringVal: *t.Merchant, Valid: true}
	}
	if t.TransactionDate != nil {
		row.TransactionDate = bigquery.NullDate{Date: *t.TransactionDate, Valid: true}
	}
	if t.VerifiedAt != nil {
		row.VerifiedAt = bigquery.NullTimestamp{Timestamp: *t.VerifiedAt, Valid: true}
	}
	return row
}

func (row *transactionRow) toTransaction() (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("bigquery: parse amount %q: %w", row.Amount, err)
	}

	t := &domain.Transaction{
		ID:        row.TransactionID,
		OwnerID:   row.OwnerID,
		Type:      domain.TransactionType(row.Type),
		Amount:    amount,
		Concept:   row.Concept,
		Status:    domain.TransactionStatus(row.Status),
		CreatedAt: row.CreatedAt,
	}
	if row.Category.Valid {
		c := domain.Category(row.Category.StringVal)
		t.Category = &c
	}
	if row.Merchant.Valid {
		m := row.Merchant.StringVal
		t.Merchant = &m
	}
	if row.TransactionDate.Valid {
		d := row.TransactionDate.Date
		t.TransactionDate = &d
	}
	if row.VerifiedAt.Valid {
		v := row.VerifiedAt.Timestamp
		t.VerifiedAt = &v
	}
	return t, nil
}

// Save implements the bigquery.ValueSaver interface used by Inserter.Put.
func (row *transactionRow) Save() (map[string]bigquery.Value, string, error) {
	values := map[string]bigquery.Value{
		"transaction_id": row.TransactionID,
		"owner_id":       row.OwnerID,
		"type":           row.Type,
		"amount":         row.Amount,
		"concept":        row.Concept,
		"status":         row.Status,
		"created_at":     row.CreatedAt,
	}
	if row.Category.Valid {
		values["category"] = row.Category.StringVal
	}
	if row.Merchant.Valid {
		values["merchant"] = row.Merchant.StringVal
	}
	if row.TransactionDate.Valid {
		values["transaction_date"] = row.TransactionDate.Date
	}
	if row.VerifiedAt.Valid {
		values["verified_at"] = row.VerifiedAt.Timestamp
	}
	return values, row.TransactionID, nil
}
